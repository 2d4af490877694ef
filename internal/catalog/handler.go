// AngelaMos | 2026
// handler.go

package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/reelvault/reelvault/internal/core"
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

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/catalog", func(r chi.Router) {
		r.Get("/videos", h.ListVideos)
		r.Get("/videos/{videoID}", h.GetVideo)
		r.Get("/collections", h.ListCollections)
		r.Get("/collections/{collectionID}", h.GetCollection)
		r.Get("/collections/{collectionID}/videos", h.ListCollectionVideos)
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/catalog", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Post("/videos", h.CreateVideo)
		r.Put("/videos/{videoID}", h.UpdateVideo)
		r.Delete("/videos/{videoID}", h.DeleteVideo)
		r.Post("/collections", h.CreateCollection)
	})
}

func (h *Handler) ListVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := h.service.ListVideos(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToVideoResponseList(videos))
}

func (h *Handler) GetVideo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")

	video, err := h.service.GetVideo(r.Context(), videoID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "video")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToVideoResponse(video))
}

func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.service.ListCollections(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToCollectionResponseList(collections))
}

func (h *Handler) GetCollection(w http.ResponseWriter, r *http.Request) {
	collectionID := chi.URLParam(r, "collectionID")

	collection, err := h.service.GetCollection(r.Context(), collectionID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "collection")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToCollectionResponse(collection))
}

func (h *Handler) ListCollectionVideos(
	w http.ResponseWriter,
	r *http.Request,
) {
	collectionID := chi.URLParam(r, "collectionID")

	videos, err := h.service.ListCollectionVideos(r.Context(), collectionID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "collection")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToVideoResponseList(videos))
}

func (h *Handler) CreateVideo(w http.ResponseWriter, r *http.Request) {
	var req CreateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	video, err := h.service.CreateVideo(r.Context(), req)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "collection")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, ToVideoResponse(video))
}

func (h *Handler) UpdateVideo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")

	var req UpdateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	video, err := h.service.UpdateVideo(r.Context(), videoID, req)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "video")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToVideoResponse(video))
}

func (h *Handler) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")

	if err := h.service.DeleteVideo(r.Context(), videoID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "video")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req CreateCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	collection, err := h.service.CreateCollection(r.Context(), req)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, ToCollectionResponse(collection))
}
