package http

import (
	"io"
	"net/http"

	"budget/internal/core"
	"budget/internal/export"
)

type itemRequest struct {
	Type        core.ItemType `json:"type"`
	Description string        `json:"description"`
	Amount      core.Money    `json:"amount"`
	Category    string        `json:"category"`
	Date        core.DateTime `json:"date"`
}

type importResponse struct {
	Imported int `json:"imported"`
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request, user core.User) {
	items, err := s.loadItems(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request, user core.User) {
	var req itemRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := s.items.Add(r.Context(), user.ID, core.ItemDraft{
		Type:        req.Type,
		Description: req.Description,
		Amount:      req.Amount,
		Category:    req.Category,
		Date:        req.Date.Time,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateItems(user.ID)
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request, user core.User) {
	if err := s.items.Remove(r.Context(), user.ID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateItems(user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// handleImportItems replaces the user's collection with an uploaded JSON
// backup. The body is the same shape the JSON export produces.
func (s *Server) handleImportItems(w http.ResponseWriter, r *http.Request, user core.User) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 8<<20))
	if err != nil {
		writeError(w, r, core.ErrInvalidFormat)
		return
	}

	drafts, err := export.ParseJSON(body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	n, err := s.items.ImportAll(r.Context(), user.ID, drafts)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateItems(user.ID)
	writeJSON(w, http.StatusOK, importResponse{Imported: n})
}

// handleCategories returns the default category names, optionally filtered by
// item type. It needs no session: the lists are static.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if v := r.URL.Query().Get("type"); v != "" {
		t := core.ItemType(v)
		categories, ok := core.DefaultCategories[t]
		if !ok {
			writeError(w, r, core.ErrInvalidType)
			return
		}
		writeJSON(w, http.StatusOK, categories)
		return
	}
	writeJSON(w, http.StatusOK, core.DefaultCategories)
}
