package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/usharani/chat-widget/backend/internal/model/chat"
	"github.com/usharani/chat-widget/backend/internal/service/ai"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionBusy rejects a submission while a completion request is
	// outstanding. At most one request is in flight per session.
	ErrSessionBusy = errors.New("a send is already in flight for this session")
)

// Fixed bot replies substituted when a completion call does not produce
// usable text. The wording is part of the widget's behavior and must not
// change.
const (
	fallbackMalformed    = "Sorry, I couldn't get a response. Please try again."
	fallbackConnectivity = "There was an error connecting to the bot. Please check your internet connection."
)

const watcherBuffer = 32

// sessionState is everything the widget tracks for one conversation: the
// append-only message history, the unsent input buffer, and the typing flag
// that gates re-entrancy. Watchers receive an event for every mutation.
type sessionState struct {
	meta        chat.Session
	messages    []chat.Message
	input       string
	typing      bool
	watchers    map[int]chan chat.Event
	nextWatcher int
}

// Service holds all widget sessions and drives the send cycle against the
// completion client.
type Service struct {
	mu       sync.RWMutex
	llm      *ai.Client
	sessions map[string]*sessionState
}

// NewService bootstraps the in-memory chat service. llm must be non-nil;
// every send settles through it.
func NewService(llm *ai.Client) *Service {
	return &Service{
		llm:      llm,
		sessions: make(map[string]*sessionState),
	}
}

// CreateSession provisions a fresh session: empty conversation, empty input
// buffer, typing flag down.
func (s *Service) CreateSession(_ context.Context) (chat.Session, error) {
	session := chat.Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = &sessionState{
		meta:     session,
		messages: make([]chat.Message, 0, 16),
		watchers: make(map[int]chan chat.Event),
	}
	s.mu.Unlock()

	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return st.meta, nil
}

// LoadTranscript returns a copy of the session's conversation.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(st.messages))
	copy(copied, st.messages)
	return copied, nil
}

// State returns a snapshot of the session for rendering.
func (s *Service) State(_ context.Context, sessionID string) (chat.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		return chat.State{}, ErrSessionNotFound
	}

	messages := make([]chat.Message, len(st.messages))
	copy(messages, st.messages)
	return chat.State{
		SessionID: sessionID,
		Messages:  messages,
		Input:     st.input,
		Typing:    st.typing,
	}, nil
}

// SetInput replaces the session's input buffer. The buffer is rejected
// while a send is in flight, matching the disabled input control.
func (s *Service) SetInput(_ context.Context, sessionID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if st.typing {
		return ErrSessionBusy
	}

	st.input = text
	s.notifyLocked(st, chat.Event{
		Type:      chat.EventInput,
		SessionID: sessionID,
		Input:     st.input,
		Typing:    st.typing,
	})
	return nil
}

// Watch subscribes to the session's state events. Events arrive in mutation
// order on a buffered channel; a consumer that falls behind loses events
// rather than stalling the session. The returned func unsubscribes and
// closes the channel.
func (s *Service) Watch(_ context.Context, sessionID string) (<-chan chat.Event, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil, ErrSessionNotFound
	}

	id := st.nextWatcher
	st.nextWatcher++
	ch := make(chan chat.Event, watcherBuffer)
	st.watchers[id] = ch

	unwatch := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := st.watchers[id]; ok {
			delete(st.watchers, id)
			close(ch)
		}
	}
	return ch, unwatch, nil
}

// Send drives one full request/response cycle for the submitted text.
//
// A trimmed-empty submission is silently ignored: no state change, no
// request, a nil message. Otherwise, before any network activity, the user
// message is appended, the input buffer cleared, and the typing flag
// raised, all in one critical section. The completion call then runs
// outside the lock with no timeout of its own. Whatever the outcome,
// settlement appends exactly one bot message and lowers the typing flag as
// the final step.
func (s *Service) Send(ctx context.Context, sessionID, text string) (*chat.Message, error) {
	if strings.TrimSpace(text) == "" {
		s.mu.RLock()
		_, ok := s.sessions[sessionID]
		s.mu.RUnlock()
		if !ok {
			return nil, ErrSessionNotFound
		}
		return nil, nil
	}

	s.mu.Lock()
	st, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	if st.typing {
		s.mu.Unlock()
		return nil, ErrSessionBusy
	}

	userMsg := chat.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Sender:    chat.SenderUser,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	st.messages = append(st.messages, userMsg)
	st.input = ""
	st.typing = true

	s.notifyLocked(st, chat.Event{
		Type:      chat.EventMessage,
		SessionID: sessionID,
		Message:   &userMsg,
		Input:     st.input,
		Typing:    st.typing,
	})
	s.notifyLocked(st, chat.Event{
		Type:      chat.EventInput,
		SessionID: sessionID,
		Input:     st.input,
		Typing:    st.typing,
	})
	s.notifyLocked(st, chat.Event{
		Type:      chat.EventTyping,
		SessionID: sessionID,
		Input:     st.input,
		Typing:    st.typing,
	})
	s.mu.Unlock()

	outcome := s.llm.Complete(ctx, text)

	var botText string
	switch outcome.Kind {
	case ai.OutcomeReply:
		botText = outcome.Text
	case ai.OutcomeMalformed:
		botText = fallbackMalformed
	default:
		botText = fallbackConnectivity
	}
	if outcome.Err != nil {
		log.Printf("[chat] send settled with transport failure session=%s: %v", sessionID, outcome.Err)
	}

	botMsg := chat.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Sender:    chat.SenderBot,
		Text:      botText,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st.messages = append(st.messages, botMsg)
	st.typing = false

	s.notifyLocked(st, chat.Event{
		Type:      chat.EventMessage,
		SessionID: sessionID,
		Message:   &botMsg,
		Input:     st.input,
		Typing:    st.typing,
	})
	s.notifyLocked(st, chat.Event{
		Type:      chat.EventTyping,
		SessionID: sessionID,
		Input:     st.input,
		Typing:    st.typing,
	})

	return &botMsg, nil
}

func (s *Service) notifyLocked(st *sessionState, event chat.Event) {
	for id, ch := range st.watchers {
		select {
		case ch <- event:
		default:
			log.Printf("[chat] watcher %d lagging on session=%s, dropping %s event", id, event.SessionID, event.Type)
		}
	}
}
