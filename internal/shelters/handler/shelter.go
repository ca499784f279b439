package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"shelterbook/internal/shelters/service"
	"shelterbook/internal/shelters/spatial"
	apperrors "shelterbook/pkg/errors"
	httputil "shelterbook/pkg/http"
	"shelterbook/pkg/logger"
	"shelterbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ShelterHandler struct {
	service service.ShelterService
	log     *logger.Logger
}

func NewShelterHandler(service service.ShelterService, log *logger.Logger) *ShelterHandler {
	return &ShelterHandler{
		service: service,
		log:     log,
	}
}

func (h *ShelterHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	shelter := model.Shelter{IsActive: true}
	if err := json.NewDecoder(r.Body).Decode(&shelter); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid request body")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := h.service.Create(r.Context(), &shelter); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, shelter); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *ShelterHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	shelter, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, shelter); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ShelterHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var updates model.ShelterUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid request body")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Update", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	shelter, err := h.service.Update(r.Context(), id, &updates)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Update", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, shelter); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ShelterHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Delete", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

// Search lists shelters inside min_lat/max_lat/min_lon/max_lon. The box only
// applies when all four bounds are present.
func (h *ShelterHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	bounds, limit, err := parseSearchQuery(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Search", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	shelters, err := h.service.Search(r.Context(), bounds, limit)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Search", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, shelters); err != nil {
		h.log.Error("failed to write success response", "handler", "Search", "operation", "WriteSuccess", "error", err)
	}
}

func parseSearchQuery(r *http.Request) (spatial.BoundsQuery, int, error) {
	var bounds spatial.BoundsQuery
	var err error

	for name, dst := range map[string]**float64{
		"min_lat": &bounds.MinLat,
		"max_lat": &bounds.MaxLat,
		"min_lon": &bounds.MinLon,
		"max_lon": &bounds.MaxLon,
	} {
		if *dst, err = httputil.ExtractFloat(r, name); err != nil {
			return spatial.BoundsQuery{}, 0, err
		}
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 1 {
			return spatial.BoundsQuery{}, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
	}

	return bounds, limit, nil
}

func (h *ShelterHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/shelters", h.Create)
	router.GET("/api/v1/shelters", h.Search)
	router.GET("/api/v1/shelters/id/:id", h.GetByID)
	router.PATCH("/api/v1/shelters/id/:id", h.Update)
	router.DELETE("/api/v1/shelters/id/:id", h.Delete)
}
