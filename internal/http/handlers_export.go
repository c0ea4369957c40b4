package http

import (
	"net/http"
	"time"

	"budget/internal/core"
	"budget/internal/export"
)

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request, user core.User) {
	items, err := s.loadItems(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	body, err := export.JSON(items)
	if err != nil {
		writeError(w, r, err)
		return
	}

	serveDownload(w, body, "application/json", exportName("json"))
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request, user core.User) {
	items, err := s.loadItems(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	body, err := export.CSV(items)
	if err != nil {
		writeError(w, r, err)
		return
	}

	serveDownload(w, body, "text/csv; charset=utf-8", exportName("csv"))
}

func serveDownload(w http.ResponseWriter, body []byte, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func exportName(ext string) string {
	now := time.Now().UTC()
	return export.Filename(ext, now.Year(), int(now.Month()), now.Day())
}
