package inventory

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/BnB-Initivatives/stox-prod-test/internal/catalog"
	"github.com/BnB-Initivatives/stox-prod-test/internal/platform/httpx"
)

// IdempotencyHeader carries the optional client retry key.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes the transaction engine over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", h.listCheckouts)
		r.Post("/", h.processCheckout)
		r.Get("/{id}", h.getCheckout)
		r.Post("/{id}/resume", h.resume(KindCheckout))
	})
	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", h.listReceipts)
		r.Post("/", h.processReceipt)
		r.Get("/{id}", h.getReceipt)
		r.Post("/{id}/resume", h.resume(KindReceipt))
	})
	r.Post("/adjustments", h.postAdjustment)
	r.Route("/logs", func(r chi.Router) {
		r.Get("/", h.listLogs)
		r.Get("/{id}", h.getLog)
	})
	r.Get("/low-stock", h.lowStock)
}

func (h *Handler) idempotencyKey(r *http.Request) (string, error) {
	key := r.Header.Get(IdempotencyHeader)
	if key == "" {
		return "", nil
	}
	parsed, err := uuid.Parse(key)
	if err != nil {
		return "", validationf("%s must be a UUID", IdempotencyHeader)
	}
	return parsed.String(), nil
}

func (h *Handler) processCheckout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	key, err := h.idempotencyKey(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	req.IdempotencyKey = key
	res, err := h.service.ProcessCheckout(r.Context(), req)
	if err != nil {
		h.failProcess(w, r, err)
		return
	}
	httpx.JSON(w, created(res), map[string]any{"transaction_id": res.ID, "replayed": res.Replayed})
}

func (h *Handler) processReceipt(w http.ResponseWriter, r *http.Request) {
	var req ReceiptRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	key, err := h.idempotencyKey(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	req.IdempotencyKey = key
	res, err := h.service.ProcessReceipt(r.Context(), req)
	if err != nil {
		h.failProcess(w, r, err)
		return
	}
	httpx.JSON(w, created(res), map[string]any{"scan_id": res.ID, "replayed": res.Replayed})
}

func created(res Result) int {
	if res.Replayed {
		return http.StatusOK
	}
	return http.StatusCreated
}

func (h *Handler) listCheckouts(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListTransactions(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) getCheckout(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.service.GetTransaction(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) listReceipts(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListReceipts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) getReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rec, err := h.service.GetReceipt(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) resume(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			h.fail(w, r, err)
			return
		}
		applied, err := h.service.ResumeAdjustments(r.Context(), kind, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"kind": kind, "id": id, "applied_lines": applied})
	}
}

func (h *Handler) postAdjustment(w http.ResponseWriter, r *http.Request) {
	var req ManualAdjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	entry, err := h.service.PostManualAdjustment(r.Context(), req)
	if err != nil {
		h.failProcess(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) listLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := parseLogFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.service.ListAdjustmentLogs(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func parseLogFilter(r *http.Request) (LogFilter, error) {
	q := r.URL.Query()
	var filter LogFilter
	if raw := q.Get("item_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return LogFilter{}, validationf("invalid item_id %q", raw)
		}
		filter.ItemID = id
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return LogFilter{}, validationf("invalid limit %q", raw)
		}
		filter.Limit = limit
	}
	filter.Type = AdjustmentType(q.Get("type"))
	return filter, nil
}

func (h *Handler) getLog(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	entry, err := h.service.GetAdjustmentLog(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	levels, err := h.service.LowStockItems(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, levels)
}

// failProcess reports a referenced entity that does not exist as 422, since
// the request itself named it.
func (h *Handler) failProcess(w http.ResponseWriter, r *http.Request, err error) {
	var nf *catalog.NotFoundError
	if !errors.Is(err, ErrInconsistent) && errors.As(err, &nf) {
		httpx.ProblemWithMeta(w, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error(), nf.ProblemFields())
		return
	}
	h.fail(w, r, err)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ie *InconsistencyError
	if errors.As(err, &ie) {
		h.logger.Error("inventory transaction left inconsistent",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		httpx.ProblemWithMeta(w, http.StatusInternalServerError, "Inconsistent Transaction",
			fmt.Sprintf("%s %d was recorded but stock was not fully adjusted; it will be resumed", ie.Kind, ie.TransactionID),
			ie.ProblemFields())
		return
	}
	if !httpx.IsClientError(err) {
		h.logger.Error("inventory request failed",
			slog.String("path", r.URL.Path),
			slog.String("method", r.Method),
			slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
