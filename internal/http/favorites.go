package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/cityweather/internal/models"
	"github.com/kjstillabower/cityweather/internal/store"
	"github.com/kjstillabower/cityweather/internal/validation"
)

type dashboardResponse struct {
	Items   []store.SavedCity        `json:"items"`
	Reports []models.WeatherSnapshot `json:"reports"`
	Page    int                      `json:"page"`
	PerPage int                      `json:"perPage"`
	Total   int64                    `json:"total"`
	Pages   int                      `json:"pages"`
	HasPrev bool                     `json:"hasPrev"`
	HasNext bool                     `json:"hasNext"`
}

// GetDashboard handles GET /favorites?page=: one page of saved cities with
// current conditions for each. Cities without data are left out of reports.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	page := 1
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	ctx := r.Context()
	result, err := h.favorites.List(ctx, user.ID, page, h.opts.PageSize)
	if err != nil {
		h.writeStoreError(w, r, "list saved cities", err)
		return
	}
	cities := make([]string, 0, len(result.Items))
	for _, c := range result.Items {
		cities = append(cities, c.CityName)
	}
	items := result.Items
	if items == nil {
		items = []store.SavedCity{}
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		Items:   items,
		Reports: h.weather.Dashboard(ctx, cities),
		Page:    result.Page,
		PerPage: result.PerPage,
		Total:   result.Total,
		Pages:   result.Pages(),
		HasPrev: result.HasPrev(),
		HasNext: result.HasNext(),
	})
}

// SaveFavorite handles POST /favorites/{city}. Saving twice reports already_saved.
func (h *Handler) SaveFavorite(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	city, err := validation.ValidateCity(mux.Vars(r)["city"])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_CITY", err.Error())
		return
	}
	outcome, err := h.favorites.Save(r.Context(), user.ID, city)
	if err != nil {
		h.writeStoreError(w, r, "save city", err)
		return
	}
	status := http.StatusOK
	if outcome == store.OutcomeSaved {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]interface{}{"outcome": outcome, "city": city})
}

// RemoveFavorite handles DELETE /favorites/{city}. Removing an unsaved city reports not_found.
func (h *Handler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	city, err := validation.ValidateCity(mux.Vars(r)["city"])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_CITY", err.Error())
		return
	}
	outcome, err := h.favorites.Remove(r.Context(), user.ID, city)
	if err != nil {
		h.writeStoreError(w, r, "remove city", err)
		return
	}
	status := http.StatusOK
	if outcome == store.OutcomeNotFound {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]interface{}{"outcome": outcome, "city": city})
}

// GetHistory handles GET /history.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	items, err := h.history.Recent(r.Context(), user.ID, h.opts.HistoryLimit)
	if err != nil {
		h.writeStoreError(w, r, "load search history", err)
		return
	}
	if items == nil {
		items = []store.SearchHistory{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, action string, err error) {
	h.log(r.Context()).Error("store operation failed", zap.String("action", action), zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "INTERNAL", "Unable to "+action)
}
