package catalog

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BnB-Initivatives/stox-prod-test/internal/platform/httpx"
)

// Handler exposes catalog maintenance over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers catalog routes under the API router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/departments", func(r chi.Router) {
		r.Get("/", list(h, h.service.ListDepartments))
		r.Post("/", create(h, h.service.CreateDepartment))
		r.Get("/{id}", get(h, h.service.GetDepartment))
		r.Put("/{id}", update(h, h.service.UpdateDepartment))
		r.Delete("/{id}", remove(h, h.service.DeleteDepartment))
	})
	r.Route("/employees", func(r chi.Router) {
		r.Get("/", list(h, h.service.ListEmployees))
		r.Post("/", create(h, h.service.CreateEmployee))
		r.Get("/number/{number}", h.getEmployeeByNumber)
		r.Get("/{id}", get(h, h.service.GetEmployee))
		r.Put("/{id}", update(h, h.service.UpdateEmployee))
		r.Delete("/{id}", remove(h, h.service.DeleteEmployee))
	})
	r.Route("/vendors", func(r chi.Router) {
		r.Get("/", list(h, h.service.ListVendors))
		r.Post("/", create(h, h.service.CreateVendor))
		r.Get("/{id}", get(h, h.service.GetVendor))
		r.Put("/{id}", update(h, h.service.UpdateVendor))
		r.Delete("/{id}", remove(h, h.service.DeleteVendor))
	})
	r.Route("/item-categories", func(r chi.Router) {
		r.Get("/", list(h, h.service.ListItemCategories))
		r.Post("/", create(h, h.service.CreateItemCategory))
		r.Get("/{id}", get(h, h.service.GetItemCategory))
		r.Put("/{id}", update(h, h.service.UpdateItemCategory))
		r.Delete("/{id}", remove(h, h.service.DeleteItemCategory))
	})
	r.Route("/units", func(r chi.Router) {
		r.Get("/", list(h, h.service.ListUnitsOfMeasure))
		r.Post("/", create(h, h.service.CreateUnitOfMeasure))
		r.Get("/{id}", get(h, h.service.GetUnitOfMeasure))
		r.Put("/{id}", update(h, h.service.UpdateUnitOfMeasure))
		r.Delete("/{id}", remove(h, h.service.DeleteUnitOfMeasure))
	})
	r.Route("/items", func(r chi.Router) {
		r.Get("/", list(h, h.service.ListItems))
		r.Post("/", create(h, h.service.CreateItem))
		r.Get("/no-barcode", list(h, h.service.ListItemsWithoutBarcode))
		r.Get("/low-stock", list(h, h.service.ListLowStockItems))
		r.Get("/barcode/{barcode}", h.getItemByBarcode)
		r.Get("/{id}", get(h, h.service.GetItemByID))
		r.Put("/{id}", update(h, h.service.UpdateItem))
		r.Delete("/{id}", remove(h, h.service.DeleteItem))
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !httpx.IsClientError(err) {
		h.logger.Error("catalog request failed",
			slog.String("path", r.URL.Path),
			slog.String("method", r.Method),
			slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) getEmployeeByNumber(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.GetEmployeeByNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) getItemByBarcode(w http.ResponseWriter, r *http.Request) {
	it, err := h.service.GetItemByBarcode(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, it)
}

func list[T any](h *Handler, fn func(context.Context) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := fn(r.Context())
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if out == nil {
			out = []T{}
		}
		httpx.JSON(w, http.StatusOK, out)
	}
}

func get[T any](h *Handler, fn func(context.Context, int64) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			h.fail(w, r, err)
			return
		}
		out, err := fn(r.Context(), id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, out)
	}
}

func create[In, Out any](h *Handler, fn func(context.Context, In) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in In
		if err := httpx.DecodeJSON(r, &in); err != nil {
			h.fail(w, r, err)
			return
		}
		out, err := fn(r.Context(), in)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, out)
	}
}

func update[In, Out any](h *Handler, fn func(context.Context, int64, In) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			h.fail(w, r, err)
			return
		}
		var in In
		if err := httpx.DecodeJSON(r, &in); err != nil {
			h.fail(w, r, err)
			return
		}
		out, err := fn(r.Context(), id, in)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, out)
	}
}

func remove(h *Handler, fn func(context.Context, int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if err := fn(r.Context(), id); err != nil {
			h.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
