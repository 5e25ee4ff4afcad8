package http

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// indexPage is the data rendered into the form page
type indexPage struct {
	URL      string // echoed back after a rejected submission
	ShortURL string
	Error    string
}

// renderIndex renders the form page. It buffers first so a template error
// can still become a clean 500.
func (h *Handler) renderIndex(w http.ResponseWriter, statusCode int, page indexPage) {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, page); err != nil {
		h.logger.Error("Failed to render index", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = buf.WriteTo(w)
}
