package stream

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	chatservice "github.com/usharani/chat-widget/backend/internal/service/chat"
	"github.com/usharani/chat-widget/backend/pkg/utils"
)

// Handler streams session state changes over Server-Sent Events. The widget
// page renders exclusively from this stream: a snapshot on connect, then
// one event per mutation.
type Handler struct {
	chatSvc *chatservice.Service
}

// New creates a stream handler.
func New(chatSvc *chatservice.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

const keepaliveInterval = 25 * time.Second

// HandleEvents subscribes to the session and forwards events until the
// client disconnects. Errors are only returned before any frame is
// written, so callers may still produce a regular error response.
func (h *Handler) HandleEvents(ctx context.Context, w http.ResponseWriter, sessionID string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	// Subscribe before snapshotting: a mutation landing between the two
	// calls shows up as a duplicate event, never a gap.
	events, unwatch, err := h.chatSvc.Watch(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unwatch()

	state, err := h.chatSvc.State(ctx, sessionID)
	if err != nil {
		return err
	}

	utils.SetupSSEHeaders(w)
	utils.SendSSEEvent(w, flusher, "state", state)

	log.Printf("[sse] opened event stream for session=%s", sessionID)

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[sse] closing event stream for session=%s", sessionID)
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			utils.SendSSEEvent(w, flusher, string(event.Type), event)
		case <-keepalive.C:
			utils.SendSSEComment(w, flusher, "keepalive")
		}
	}
}
