// AngelaMos | 2026
// handler.go

package entitlement

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/reelvault/reelvault/internal/core"
	"github.com/reelvault/reelvault/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/access", h.CheckAccess)
		r.Post("/access", h.CheckAccessPost)
		r.Get("/purchases", h.ListMyPurchases)
	})
}

// CheckAccess gates the watch page. Non-admins can only query themselves.
func (h *Handler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	req := AccessCheckRequest{
		ContentID: r.URL.Query().Get("content_id"),
		UserID:    r.URL.Query().Get("user_id"),
	}
	h.checkAccess(w, r, req)
}

func (h *Handler) CheckAccessPost(w http.ResponseWriter, r *http.Request) {
	var req AccessCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	h.checkAccess(w, r, req)
}

func (h *Handler) checkAccess(
	w http.ResponseWriter,
	r *http.Request,
	req AccessCheckRequest,
) {
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	userID := middleware.GetUserID(r.Context())
	if req.UserID != "" && req.UserID != userID {
		if !middleware.IsAdmin(r.Context()) {
			core.Forbidden(w, "cannot check another user's access")
			return
		}
		userID = req.UserID
	}

	hasAccess, purchase, err := h.service.HasAccess(
		r.Context(),
		userID,
		req.ContentID,
	)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	resp := AccessCheckResponse{HasAccess: hasAccess}
	if purchase != nil {
		resp.Entitlement = ToPurchaseResponse(
			purchase,
			h.service.StrikeThreshold(),
		)
	}

	core.OK(w, resp)
}

func (h *Handler) ListMyPurchases(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	purchases, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	responses := make([]*PurchaseResponse, 0, len(purchases))
	for i := range purchases {
		responses = append(responses, ToPurchaseResponse(
			&purchases[i],
			h.service.StrikeThreshold(),
		))
	}

	core.OK(w, responses)
}
