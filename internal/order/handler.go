package order

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"linkmart/internal/benchmark"
	"linkmart/pkg/domain"
	dErrors "linkmart/pkg/domain-errors"
	"linkmart/pkg/platform/httputil"
	"linkmart/pkg/requestcontext"
)

// Handler exposes order lifecycle endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the order routes. The caller supplies the middleware chain.
func (h *Handler) Register(r chi.Router) {
	r.Post("/orders", h.handleCreate)
	r.Get("/orders/{orderID}", h.handleGet)
	r.Get("/orders/{orderID}/history", h.handleHistory)
	r.Get("/orders/{orderID}/benchmarks", h.handleBenchmarks)
	r.Post("/orders/{orderID}/confirm", h.handleConfirm)
	r.Post("/orders/{orderID}/complete", h.handleComplete)
	r.Post("/orders/{orderID}/resubmit", h.handleResubmit)
}

type createRequest struct {
	AccountID     string              `json:"accountId,omitempty"`
	Preferences   Preferences         `json:"preferences"`
	InternalNotes string              `json:"internalNotes,omitempty"`
	LineItems     []createLineItemReq `json:"lineItems"`
}

type createLineItemReq struct {
	ClientID       string `json:"clientId,omitempty"`
	TargetPageURL  string `json:"targetPageUrl"`
	AnchorText     string `json:"anchorText,omitempty"`
	EstimatedPrice int64  `json:"estimatedPrice"`
}

type orderEnvelope struct {
	Success   bool           `json:"success"`
	Order     OrderView      `json:"order"`
	LineItems []LineItemView `json:"lineItems,omitempty"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	in := CreateInput{
		Preferences:   req.Preferences,
		InternalNotes: req.InternalNotes,
	}
	if req.AccountID != "" {
		accountID, err := domain.ParseAccountID(req.AccountID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		in.AccountID = accountID
	}
	for _, item := range req.LineItems {
		input := LineItemInput{
			TargetPageURL:  item.TargetPageURL,
			AnchorText:     item.AnchorText,
			EstimatedPrice: item.EstimatedPrice,
		}
		if item.ClientID != "" {
			clientID, err := domain.ParseClientID(item.ClientID)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			input.ClientID = clientID
		}
		in.LineItems = append(in.LineItems, input)
	}

	result, err := h.service.Create(ctx, in)
	if err != nil {
		h.logError(ctx, "create order failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, envelope(result))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, err := orderIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Get(ctx, orderID)
	if err != nil {
		h.logError(ctx, "get order failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, envelope(result))
}

type historyEntryView struct {
	FromStatus string `json:"fromStatus,omitempty"`
	ToStatus   string `json:"toStatus"`
	FromState  string `json:"fromState,omitempty"`
	ToState    string `json:"toState"`
	ActorID    string `json:"actorId"`
	Notes      string `json:"notes,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, err := orderIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.service.History(ctx, orderID)
	if err != nil {
		h.logError(ctx, "list order history failed", err)
		httputil.WriteError(w, err)
		return
	}

	views := make([]historyEntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, historyEntryView{
			FromStatus: string(entry.FromStatus),
			ToStatus:   string(entry.ToStatus),
			FromState:  string(entry.FromState),
			ToState:    string(entry.ToState),
			ActorID:    entry.ActorID.String(),
			Notes:      entry.Notes,
			CreatedAt:  entry.CreatedAt.UTC().Format(timeFormat),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"history": views})
}

type benchmarkView struct {
	ID         string          `json:"id"`
	OrderID    string          `json:"orderId"`
	CapturedBy string          `json:"capturedBy"`
	Type       string          `json:"benchmarkType"`
	Snapshot   json.RawMessage `json:"snapshot"`
	CreatedAt  string          `json:"createdAt"`
}

func (h *Handler) handleBenchmarks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, err := orderIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	benchmarks, err := h.service.Benchmarks(ctx, orderID)
	if err != nil {
		h.logError(ctx, "list benchmarks failed", err)
		httputil.WriteError(w, err)
		return
	}

	views := make([]benchmarkView, 0, len(benchmarks))
	for _, b := range benchmarks {
		views = append(views, newBenchmarkView(b))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"benchmarks": views})
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.service.Confirm)
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.service.Complete)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id domain.OrderID) (*Order, error)) {
	ctx := r.Context()
	orderID, err := orderIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	o, err := op(ctx, orderID)
	if err != nil {
		h.logError(ctx, "order transition failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, orderEnvelope{Success: true, Order: NewOrderView(o)})
}

type resubmitRequest struct {
	Notes string `json:"notes,omitempty"`
}

type resubmitResponse struct {
	Success           bool           `json:"success"`
	Order             OrderView      `json:"order"`
	ResubmissionCount int            `json:"resubmissionCount"`
	Benchmark         *benchmarkView `json:"benchmark"`
}

func (h *Handler) handleResubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, err := orderIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req resubmitRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
	}

	result, err := h.service.Resubmit(ctx, orderID, req.Notes)
	if err != nil {
		h.logError(ctx, "resubmit order failed", err)
		httputil.WriteError(w, err)
		return
	}

	resp := resubmitResponse{
		Success:           true,
		Order:             NewOrderView(result.Order),
		ResubmissionCount: result.ResubmissionCount,
	}
	if result.Benchmark != nil {
		view := newBenchmarkView(result.Benchmark)
		resp.Benchmark = &view
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

const timeFormat = time.RFC3339Nano

func envelope(result *Result) orderEnvelope {
	env := orderEnvelope{Success: true, Order: NewOrderView(result.Order)}
	for _, item := range result.LineItems {
		env.LineItems = append(env.LineItems, NewLineItemView(item))
	}
	return env
}

func newBenchmarkView(b *benchmark.Benchmark) benchmarkView {
	return benchmarkView{
		ID:         b.ID.String(),
		OrderID:    b.OrderID.String(),
		CapturedBy: b.CapturedBy.String(),
		Type:       string(b.Type),
		Snapshot:   b.Snapshot,
		CreatedAt:  b.CreatedAt.UTC().Format(timeFormat),
	}
}

func orderIDFromPath(r *http.Request) (domain.OrderID, error) {
	return domain.ParseOrderID(chi.URLParam(r, "orderID"))
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
		return
	}
	h.logger.WarnContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
}
