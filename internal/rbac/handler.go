package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BnB-Initivatives/stox-prod-test/internal/platform/httpx"
)

// Handler exposes users, roles and permissions over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers RBAC routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.listUsers)
		r.Post("/", h.createUser)
		r.Get("/{id}", h.getUser)
		r.Put("/{id}", h.updateUser)
		r.Delete("/{id}", h.deleteUser)
		r.Get("/{id}/permissions", h.effectivePermissions)
		r.Put("/{id}/roles/{rid}", h.assignRole)
		r.Delete("/{id}/roles/{rid}", h.removeRole)
	})
	r.Route("/roles", func(r chi.Router) {
		r.Get("/", h.listRoles)
		r.Post("/", h.createRole)
		r.Get("/{id}", h.getRole)
		r.Put("/{id}", h.updateRole)
		r.Delete("/{id}", h.deleteRole)
		r.Put("/{id}/permissions/{pid}", h.grantPermission)
		r.Delete("/{id}/permissions/{pid}", h.revokePermission)
	})
	r.Route("/permissions", func(r chi.Router) {
		r.Get("/", h.listPermissions)
		r.Post("/", h.createPermission)
		r.Get("/{id}", h.getPermission)
		r.Put("/{id}", h.updatePermission)
		r.Delete("/{id}", h.deletePermission)
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !httpx.IsClientError(err) {
		h.logger.Error("rbac request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

// ids parses the named URL parameters in order.
func (h *Handler) ids(w http.ResponseWriter, r *http.Request, names ...string) ([]int64, bool) {
	out := make([]int64, 0, len(names))
	for _, name := range names {
		id, err := httpx.IDParam(r, name)
		if err != nil {
			h.fail(w, r, err)
			return nil, false
		}
		out = append(out, id)
	}
	return out, true
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if users == nil {
		users = []User{}
	}
	httpx.JSON(w, http.StatusOK, users)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	ids, ok := h.ids(w, r, "id")
	if !ok {
		return
	}
	u, err := h.service.GetUser(r.Context(), ids[0])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var in UserInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.service.CreateUser(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, u)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	ids, ok := h.ids(w, r, "id")
	if !ok {
		return
	}
	var upd UserUpdate
	if err := httpx.DecodeJSON(r, &upd); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.service.UpdateUser(r.Context(), ids[0], upd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	ids, ok := h.ids(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteUser(r.Context(), ids[0]); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) effectivePermissions(w http.ResponseWriter, r *http.Request) {
	ids, ok := h.ids(w, r, "id")
	if !ok {
		return
	}
	perms, err := h.service.EffectivePermissions(r.Context(), ids[0])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user_id": ids[0], "permissions": perms})
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	ids, ok := h.ids(w, r, "id", "rid")
	if !ok {
		return
	}
	created, err := h.service.AssignRole(r.Context(), ids[0], ids[1])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeUpsert(w, created)
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	ids, ok := h.ids(w, r, "id", "rid")
	if !ok {
		return
	}
	if err := h.service.RemoveRole(r.Context(), ids[0], ids[1]); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if roles == nil {
		roles = []Role{}
	}
	httpx.JSON(w, http.StatusOK, roles)
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	ids, ok := h.ids(w, r, "id")
	if !ok {
		return
	}
	role, err := h.service.GetRole(r.Context(), ids[0])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var in RoleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	role, err := h.service.CreateRole(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	ids, ok := h.ids(w, r, "id")
	if !ok {
		return
	}
	var upd RoleUpdate
	if err := httpx.DecodeJSON(r, &upd); err != nil {
		h.fail(w, r, err)
		return
	}
	role, err := h.service.UpdateRole(r.Context(), ids[0], upd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	ids, ok := h.ids(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteRole(r.Context(), ids[0]); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) grantPermission(w http.ResponseWriter, r *http.Request) {
	ids, ok := h.ids(w, r, "id", "pid")
	if !ok {
		return
	}
	created, err := h.service.GrantPermission(r.Context(), ids[0], ids[1])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeUpsert(w, created)
}

func (h *Handler) revokePermission(w http.ResponseWriter, r *http.Request) {
	ids, ok := h.ids(w, r, "id", "pid")
	if !ok {
		return
	}
	if err := h.service.RevokePermission(r.Context(), ids[0], ids[1]); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if perms == nil {
		perms = []Permission{}
	}
	httpx.JSON(w, http.StatusOK, perms)
}

func (h *Handler) getPermission(w http.ResponseWriter, r *http.Request) {
	ids, ok := h.ids(w, r, "id")
	if !ok {
		return
	}
	p, err := h.service.GetPermission(r.Context(), ids[0])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) createPermission(w http.ResponseWriter, r *http.Request) {
	var in PermissionInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.service.CreatePermission(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) updatePermission(w http.ResponseWriter, r *http.Request) {
	ids, ok := h.ids(w, r, "id")
	if !ok {
		return
	}
	var upd PermissionUpdate
	if err := httpx.DecodeJSON(r, &upd); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.service.UpdatePermission(r.Context(), ids[0], upd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) deletePermission(w http.ResponseWriter, r *http.Request) {
	ids, ok := h.ids(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeletePermission(r.Context(), ids[0]); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeUpsert answers 201 when a join row was inserted and 204 when it
// already existed.
func writeUpsert(w http.ResponseWriter, created bool) {
	if created {
		w.WriteHeader(http.StatusCreated)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
