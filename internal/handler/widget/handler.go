package widget

import (
	"html/template"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler serves the built-in chat page. The page is self-contained: it
// creates a session on load, renders from the session's SSE event stream,
// and submits through the REST send endpoint.
type Handler struct {
	tmpl    *template.Template
	botName string
}

// New creates the widget handler with the configured bot display name.
func New(botName string) *Handler {
	return &Handler{
		tmpl:    template.Must(template.New("widget").Parse(pageHTML)),
		botName: botName,
	}
}

// RegisterRoutes mounts the page at the site root.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handlePage)
}

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.Execute(w, map[string]string{"BotName": h.botName}); err != nil {
		log.Printf("[widget] render failed: %v", err)
	}
}
