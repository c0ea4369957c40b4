package http

import (
	"net/http"
	"strconv"

	"budget/internal/core"
)

const defaultTrendMonths = 6

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, user core.User) {
	items, err := s.loadItems(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, core.Summarize(items))
}

func (s *Server) handleCategorySummary(w http.ResponseWriter, r *http.Request, user core.User) {
	itemType := core.ItemType(r.URL.Query().Get("type"))
	if itemType == "" {
		itemType = core.Expense
	}
	if itemType != core.Income && itemType != core.Expense {
		writeError(w, r, core.ErrInvalidType)
		return
	}

	items, err := s.loadItems(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, core.ByCategory(items, itemType))
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request, user core.User) {
	months := defaultTrendMonths
	if v := r.URL.Query().Get("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 120 {
			writeError(w, r, core.ErrInvalidFormat)
			return
		}
		months = n
	}

	items, err := s.loadItems(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, core.MonthlyTrend(items, months))
}
