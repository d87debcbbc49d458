// internal/handlers/stock.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
	"github.com/ammerola/stockledger/internal/pkg/logger"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
	maxBodyBytes        = 1 << 20
)

var validate = newValidator()

// newValidator lets numeric tags apply to decimal fields
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// StockHandler exposes the stock ledger over HTTP
type StockHandler struct {
	ledger       ports.StockLedger
	maxBatchSize int
	logger       *slog.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(ledger ports.StockLedger, maxBatchSize int, logger *slog.Logger) *StockHandler {
	if maxBatchSize <= 0 {
		maxBatchSize = 100
	}
	return &StockHandler{
		ledger:       ledger,
		maxBatchSize: maxBatchSize,
		logger:       logger.With(slog.String("handler", "stock")),
	}
}

// RegisterRoutes mounts the stock routes on mux
func (h *StockHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/items/{id}/adjustments", h.ApplyAdjustment)
	mux.HandleFunc("GET /api/v1/items/{id}/adjustments", h.GetHistory)
	mux.HandleFunc("GET /api/v1/items/{id}/quantity", h.GetQuantity)
	mux.HandleFunc("POST /api/v1/adjustments/batch", h.ApplyBatch)
}

// ApplyAdjustment handles POST /api/v1/items/{id}/adjustments
func (h *StockHandler) ApplyAdjustment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body AdjustmentBody
	if err := decodeJSON(w, r, &body); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(body); err != nil {
		h.respondError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	req := body.ToDomain(r.PathValue("id"), actorFromRequest(r))
	rec, err := h.ledger.ApplyAdjustment(ctx, req)
	h.respondOutcome(w, r, rec, err)
}

// ApplyBatch handles POST /api/v1/adjustments/batch
func (h *StockHandler) ApplyBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body BatchBody
	if err := decodeJSON(w, r, &body); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(body); err != nil {
		h.respondError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	if len(body.Adjustments) > h.maxBatchSize {
		h.respondError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("A batch may hold at most %d adjustments", h.maxBatchSize))
		return
	}

	actor := actorFromRequest(r)
	reqs := make([]domain.AdjustmentRequest, len(body.Adjustments))
	for i, adj := range body.Adjustments {
		reqs[i] = adj.AdjustmentBody.ToDomain(adj.ItemID, actor)
	}

	results := h.ledger.ApplyBatch(ctx, reqs)

	resp := BatchResponse{Results: make([]BatchResultResponse, len(results))}
	for i, res := range results {
		item := BatchResultResponse{Index: res.Index, Record: res.Record}
		if res.Err != nil {
			item.Error = h.errorBody(r, res.Err)
			resp.Failed++
		} else {
			resp.Applied++
		}
		resp.Results[i] = item
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// GetHistory handles GET /api/v1/items/{id}/adjustments?order=asc|desc&limit=N
func (h *StockHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	itemID := r.PathValue("id")

	q := r.URL.Query()
	orderParam := strings.ToLower(q.Get("order"))
	if orderParam != "" && orderParam != string(ports.SortAscending) && orderParam != string(ports.SortDescending) {
		h.respondError(w, http.StatusBadRequest, "order must be asc or desc")
		return
	}
	order := ports.ParseSortOrder(orderParam)

	limit := defaultHistoryLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryLimit {
			h.respondError(w, http.StatusBadRequest,
				fmt.Sprintf("limit must be between 1 and %d", maxHistoryLimit))
			return
		}
		limit = n
	}

	records, err := h.ledger.GetHistory(ctx, itemID, order, limit)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			h.respondError(w, http.StatusBadRequest, "Item id is required")
			return
		}
		h.logger.ErrorContext(ctx, "failed to read adjustment history",
			slog.String("item_id", itemID),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to read adjustment history")
		return
	}

	h.respondJSON(w, http.StatusOK, HistoryResponse{
		ItemID:  itemID,
		Order:   order,
		Count:   len(records),
		Records: records,
	})
}

// GetQuantity handles GET /api/v1/items/{id}/quantity
func (h *StockHandler) GetQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	itemID := r.PathValue("id")

	quantity, err := h.ledger.CurrentQuantity(ctx, itemID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrItemNotFound):
			h.respondError(w, http.StatusNotFound, domain.CauseItemNotFound.Message())
		case errors.Is(err, domain.ErrInvalidRequest):
			h.respondError(w, http.StatusBadRequest, "Item id is required")
		default:
			h.logger.ErrorContext(ctx, "failed to read quantity",
				slog.String("item_id", itemID),
				slog.String("error", err.Error()))
			h.respondError(w, http.StatusInternalServerError, "Failed to read quantity")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, QuantityResponse{ItemID: itemID, Quantity: quantity})
}

// respondOutcome writes an applied or rejected record with the matching status
func (h *StockHandler) respondOutcome(w http.ResponseWriter, r *http.Request, rec *domain.AdjustmentRecord, err error) {
	if err == nil {
		h.respondJSON(w, http.StatusCreated, AdjustmentResponse{Record: rec})
		return
	}

	cause, ok := domain.CauseOf(err)
	if !ok {
		h.logger.ErrorContext(r.Context(), "adjustment failed",
			slog.String("error", err.Error()))
		h.respondJSON(w, http.StatusInternalServerError, AdjustmentResponse{
			Record: rec,
			Error:  h.errorBody(r, err),
		})
		return
	}

	if cause == domain.CauseConflictRetryExhausted {
		w.Header().Set("Retry-After", "1")
	}
	h.respondJSON(w, statusForCause(cause), AdjustmentResponse{
		Record: rec,
		Error:  h.errorBody(r, err),
	})
}

func (h *StockHandler) errorBody(r *http.Request, err error) *ErrorBody {
	cause, ok := domain.CauseOf(err)
	if !ok {
		return &ErrorBody{
			Message:   "The adjustment could not be applied.",
			RequestID: logger.RequestIDFromContext(r.Context()),
		}
	}
	var adjErr *domain.AdjustmentError
	retryable := errors.As(err, &adjErr) && adjErr.Retryable()
	return &ErrorBody{
		Cause:     cause,
		Message:   cause.Message(),
		Retryable: retryable,
		RequestID: logger.RequestIDFromContext(r.Context()),
	}
}

func statusForCause(cause domain.RejectionCause) int {
	switch cause {
	case domain.CauseInvalidRequest:
		return http.StatusBadRequest
	case domain.CauseItemNotFound:
		return http.StatusNotFound
	case domain.CauseWouldGoNegative:
		return http.StatusUnprocessableEntity
	case domain.CauseConflictRetryExhausted:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *StockHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}

func (h *StockHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func actorFromRequest(r *http.Request) string {
	actor, _ := r.Context().Value(logger.ContextKeyActor).(string)
	return actor
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	return strings.Join(msgs, "; ")
}

// Request/Response DTOs

// AdjustmentBody is the request body for a single adjustment. A zero delta
// is left to the ledger, which records nothing and reports invalid_request.
type AdjustmentBody struct {
	Delta    int64            `json:"delta"`
	Reason   string           `json:"reason" validate:"omitempty,max=32"`
	Notes    string           `json:"notes,omitempty" validate:"max=1024"`
	Actor    string           `json:"actor,omitempty" validate:"max=128"`
	UnitCost *decimal.Decimal `json:"unit_cost,omitempty" validate:"omitempty,gte=0,lte=1000000000"`
}

// ToDomain builds the ledger request. The body's actor wins over the header.
func (b AdjustmentBody) ToDomain(itemID, headerActor string) domain.AdjustmentRequest {
	actor := b.Actor
	if actor == "" {
		actor = headerActor
	}
	return domain.AdjustmentRequest{
		ItemID:   itemID,
		Delta:    b.Delta,
		Reason:   domain.ParseReason(b.Reason),
		Notes:    b.Notes,
		Actor:    actor,
		UnitCost: b.UnitCost,
	}
}

// BatchItemBody is one adjustment in a batch
type BatchItemBody struct {
	ItemID string `json:"item_id"`
	AdjustmentBody
}

// BatchBody is the request body for a batch
type BatchBody struct {
	Adjustments []BatchItemBody `json:"adjustments" validate:"required,min=1,dive"`
}

// ErrorBody describes why an adjustment was rejected
type ErrorBody struct {
	Cause     domain.RejectionCause `json:"cause,omitempty"`
	Message   string                `json:"message"`
	Retryable bool                  `json:"retryable"`
	RequestID string                `json:"request_id,omitempty"`
}

// AdjustmentResponse wraps the record written for an attempt
type AdjustmentResponse struct {
	Record *domain.AdjustmentRecord `json:"record,omitempty"`
	Error  *ErrorBody               `json:"error,omitempty"`
}

// BatchResultResponse is one entry of a batch response
type BatchResultResponse struct {
	Index  int                      `json:"index"`
	Record *domain.AdjustmentRecord `json:"record,omitempty"`
	Error  *ErrorBody               `json:"error,omitempty"`
}

// BatchResponse lists batch outcomes in request order
type BatchResponse struct {
	Applied int                   `json:"applied"`
	Failed  int                   `json:"failed"`
	Results []BatchResultResponse `json:"results"`
}

// HistoryResponse is a page of an item's adjustment records
type HistoryResponse struct {
	ItemID  string                    `json:"item_id"`
	Order   ports.SortOrder           `json:"order"`
	Count   int                       `json:"count"`
	Records []domain.AdjustmentRecord `json:"records"`
}

// QuantityResponse carries an item's committed quantity
type QuantityResponse struct {
	ItemID   string `json:"item_id"`
	Quantity int64  `json:"quantity"`
}
