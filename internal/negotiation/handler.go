package negotiation

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

// Handler exposes the request-more-sites negotiation endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/orders/{orderID}/groups/{groupID}/request-more-sites", h.handleRequestMoreSites)
	r.Get("/orders/{orderID}/groups/{groupID}/request-more-sites", h.handleGetStatus)
}

type moreSitesRequest struct {
	ShortfallCount   int                        `json:"shortfallCount"`
	RequestedTotal   int                        `json:"requestedTotal"`
	ApprovedCount    int                        `json:"approvedCount"`
	GeneralFeedback  string                     `json:"generalFeedback,omitempty"`
	RejectionReasons map[string]RejectionReason `json:"rejectionReasons,omitempty"`
}

type moreSitesResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	NextRound  int    `json:"nextRound"`
	OrderState string `json:"orderState"`
}

func (h *Handler) handleRequestMoreSites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, groupID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req moreSitesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.ShortfallCount < 0 || req.RequestedTotal < 0 || req.ApprovedCount < 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "counts must not be negative"))
		return
	}

	in := MoreSitesInput{
		ShortfallCount:  req.ShortfallCount,
		RequestedTotal:  req.RequestedTotal,
		ApprovedCount:   req.ApprovedCount,
		GeneralFeedback: req.GeneralFeedback,
	}
	if len(req.RejectionReasons) > 0 {
		in.RejectionReasons = make(map[domain.SubmissionID]RejectionReason, len(req.RejectionReasons))
		for rawID, reason := range req.RejectionReasons {
			submissionID, err := domain.ParseSubmissionID(rawID)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			in.RejectionReasons[submissionID] = reason
		}
	}

	result, err := h.service.RequestMoreSites(ctx, orderID, groupID, in)
	if err != nil {
		h.logError(ctx, "request more sites failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, moreSitesResponse{
		Success:    true,
		Message:    "more site suggestions requested",
		NextRound:  result.NextRound,
		OrderState: result.OrderState,
	})
}

func (h *Handler) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, groupID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	status, err := h.service.GetStatus(ctx, orderID, groupID)
	if err != nil {
		h.logError(ctx, "get negotiation status failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

func pathIDs(r *http.Request) (domain.OrderID, domain.GroupID, error) {
	orderID, err := domain.ParseOrderID(chi.URLParam(r, "orderID"))
	if err != nil {
		return domain.OrderID{}, domain.GroupID{}, err
	}
	groupID, err := domain.ParseGroupID(chi.URLParam(r, "groupID"))
	if err != nil {
		return domain.OrderID{}, domain.GroupID{}, err
	}
	return orderID, groupID, nil
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
		return
	}
	h.logger.WarnContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
}
