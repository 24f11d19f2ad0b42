package assignment

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"linkmart/pkg/domain"
	dErrors "linkmart/pkg/domain-errors"
	"linkmart/pkg/platform/httputil"
	"linkmart/pkg/requestcontext"
)

// Handler exposes the assign/unassign endpoints on a line item.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/orders/{orderID}/line-items/{lineItemID}/assign-domain", h.handleAssign)
	r.Delete("/orders/{orderID}/line-items/{lineItemID}/assign-domain", h.handleUnassign)
}

type assignRequest struct {
	SubmissionID string `json:"submissionId"`
	DomainID     string `json:"domainId"`
}

type resultResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, lineItemID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	submissionID, err := domain.ParseSubmissionID(req.SubmissionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	websiteID, err := domain.ParseWebsiteID(req.DomainID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.AssignDomain(ctx, orderID, lineItemID, submissionID, websiteID); err != nil {
		h.logError(ctx, "assign domain failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resultResponse{Success: true, Message: "domain assigned"})
}

func (h *Handler) handleUnassign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, lineItemID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.UnassignDomain(ctx, orderID, lineItemID); err != nil {
		h.logError(ctx, "unassign domain failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resultResponse{Success: true, Message: "domain unassigned"})
}

func pathIDs(r *http.Request) (domain.OrderID, domain.LineItemID, error) {
	orderID, err := domain.ParseOrderID(chi.URLParam(r, "orderID"))
	if err != nil {
		return domain.OrderID{}, domain.LineItemID{}, err
	}
	lineItemID, err := domain.ParseLineItemID(chi.URLParam(r, "lineItemID"))
	if err != nil {
		return domain.OrderID{}, domain.LineItemID{}, err
	}
	return orderID, lineItemID, nil
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
		return
	}
	h.logger.WarnContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
}
