package chat_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/usharani/chat-widget/backend/internal/config"
	"github.com/usharani/chat-widget/backend/internal/model/chat"
	"github.com/usharani/chat-widget/backend/internal/service/ai"
	chatservice "github.com/usharani/chat-widget/backend/internal/service/chat"
)

func newService(t *testing.T, upstream string) *chatservice.Service {
	t.Helper()
	client := ai.NewClient(config.AIConfig{
		APIKey:  "",
		Model:   "gemini-2.0-flash",
		BaseURL: upstream,
	})
	return chatservice.NewService(client)
}

func wellFormedBody(text string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, text)
}

func replyServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func waitForTyping(t *testing.T, svc *chatservice.Service, sessionID string, want bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		state, err := svc.State(context.Background(), sessionID)
		if err != nil {
			t.Fatalf("State err: %v", err)
		}
		if state.Typing == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("typing flag never became %v", want)
}

func nextEvent(t *testing.T, events <-chan chat.Event) chat.Event {
	t.Helper()
	select {
	case event, ok := <-events:
		if !ok {
			t.Fatal("event channel closed early")
		}
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return chat.Event{}
}

func TestCreateAndGetSession(t *testing.T) {
	svc := newService(t, "http://unused")
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	if session.ID == "" {
		t.Fatal("expected non-empty session ID")
	}

	got, err := svc.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if got.ID != session.ID {
		t.Fatalf("unexpected session ID: got %s want %s", got.ID, session.ID)
	}

	state, err := svc.State(ctx, session.ID)
	if err != nil {
		t.Fatalf("State err: %v", err)
	}
	if len(state.Messages) != 0 || state.Input != "" || state.Typing {
		t.Fatalf("fresh session should be empty, got %+v", state)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	svc := newService(t, "http://unused")

	if _, err := svc.GetSession(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for missing session")
	}
}

func TestSetInputUpdatesState(t *testing.T) {
	svc := newService(t, "http://unused")
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	if err := svc.SetInput(ctx, session.ID, "draft text"); err != nil {
		t.Fatalf("SetInput err: %v", err)
	}

	state, err := svc.State(ctx, session.ID)
	if err != nil {
		t.Fatalf("State err: %v", err)
	}
	if state.Input != "draft text" {
		t.Fatalf("expected input buffer %q, got %q", "draft text", state.Input)
	}
}

func TestSendEmptyInputIsNoOp(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, wellFormedBody("should never be seen"))
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	if err := svc.SetInput(ctx, session.ID, "  "); err != nil {
		t.Fatalf("SetInput err: %v", err)
	}

	for _, input := range []string{"", "   ", "\t\n "} {
		reply, err := svc.Send(ctx, session.ID, input)
		if err != nil {
			t.Fatalf("Send(%q) err: %v", input, err)
		}
		if reply != nil {
			t.Fatalf("Send(%q) returned a message: %+v", input, reply)
		}
	}

	state, err := svc.State(ctx, session.ID)
	if err != nil {
		t.Fatalf("State err: %v", err)
	}
	if len(state.Messages) != 0 {
		t.Fatalf("conversation changed: %+v", state.Messages)
	}
	if state.Input != "  " {
		t.Fatalf("input buffer changed: %q", state.Input)
	}
	if state.Typing {
		t.Fatal("typing flag raised")
	}
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Fatalf("expected no completion requests, got %d", got)
	}
}

func TestSendAppendsUserMessageBeforeSettlement(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	releaseUpstream := func() { once.Do(func() { close(release) }) }

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		fmt.Fprint(w, wellFormedBody("done"))
	}))
	defer srv.Close()
	defer releaseUpstream()

	svc := newService(t, srv.URL)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	if err := svc.SetInput(ctx, session.ID, "Hi there "); err != nil {
		t.Fatalf("SetInput err: %v", err)
	}

	done := make(chan struct{})
	var reply *chat.Message
	var sendErr error
	go func() {
		reply, sendErr = svc.Send(ctx, session.ID, "Hi there ")
		close(done)
	}()

	waitForTyping(t, svc, session.ID, true)

	state, err := svc.State(ctx, session.ID)
	if err != nil {
		t.Fatalf("State err: %v", err)
	}
	if len(state.Messages) != 1 {
		t.Fatalf("expected exactly one message before settlement, got %d", len(state.Messages))
	}
	if state.Messages[0].Sender != chat.SenderUser || state.Messages[0].Text != "Hi there " {
		t.Fatalf("unexpected user message: %+v", state.Messages[0])
	}
	if state.Input != "" {
		t.Fatalf("input buffer not cleared immediately: %q", state.Input)
	}

	releaseUpstream()
	<-done

	if sendErr != nil {
		t.Fatalf("Send err: %v", sendErr)
	}
	if reply == nil || reply.Sender != chat.SenderBot || reply.Text != "done" {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	state, err = svc.State(ctx, session.ID)
	if err != nil {
		t.Fatalf("State err: %v", err)
	}
	if len(state.Messages) != 2 {
		t.Fatalf("expected exactly two messages after settlement, got %d", len(state.Messages))
	}
	if state.Typing {
		t.Fatal("typing flag not cleared after settlement")
	}
}

func TestSendSettlementBranches(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantText string
	}{
		{
			name:     "well-formed reply",
			body:     `{"candidates":[{"content":{"parts":[{"text":"Hello!"}]}}]}`,
			wantText: "Hello!",
		},
		{
			name:     "empty object",
			body:     `{}`,
			wantText: "Sorry, I couldn't get a response. Please try again.",
		},
		{
			name:     "empty candidate list",
			body:     `{"candidates":[]}`,
			wantText: "Sorry, I couldn't get a response. Please try again.",
		},
		{
			name:     "missing parts",
			body:     `{"candidates":[{"content":{"parts":[]}}]}`,
			wantText: "Sorry, I couldn't get a response. Please try again.",
		},
		{
			name:     "type-mismatched candidates",
			body:     `{"candidates": 17}`,
			wantText: "Sorry, I couldn't get a response. Please try again.",
		},
		{
			name:     "non-JSON body",
			body:     `this is not json`,
			wantText: "There was an error connecting to the bot. Please check your internet connection.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := replyServer(t, tt.body)
			svc := newService(t, srv.URL)
			ctx := context.Background()

			session, err := svc.CreateSession(ctx)
			if err != nil {
				t.Fatalf("CreateSession err: %v", err)
			}

			reply, err := svc.Send(ctx, session.ID, "ping")
			if err != nil {
				t.Fatalf("Send err: %v", err)
			}
			if reply == nil {
				t.Fatal("expected a bot message")
			}
			if reply.Sender != chat.SenderBot {
				t.Fatalf("expected bot sender, got %s", reply.Sender)
			}
			if reply.Text != tt.wantText {
				t.Fatalf("bot text = %q, want %q", reply.Text, tt.wantText)
			}

			state, err := svc.State(ctx, session.ID)
			if err != nil {
				t.Fatalf("State err: %v", err)
			}
			if len(state.Messages) != 2 {
				t.Fatalf("expected exactly two messages, got %d", len(state.Messages))
			}
			if state.Typing {
				t.Fatal("typing flag not cleared")
			}
		})
	}
}

func TestSendTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream := srv.URL
	srv.Close()

	svc := newService(t, upstream)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	reply, err := svc.Send(ctx, session.ID, "anyone there?")
	if err != nil {
		t.Fatalf("Send err: %v", err)
	}
	if reply == nil {
		t.Fatal("expected a bot message")
	}
	if reply.Text != "There was an error connecting to the bot. Please check your internet connection." {
		t.Fatalf("unexpected fallback text: %q", reply.Text)
	}

	state, err := svc.State(ctx, session.ID)
	if err != nil {
		t.Fatalf("State err: %v", err)
	}
	if state.Typing {
		t.Fatal("typing flag not cleared after transport failure")
	}
}

func TestSendUnknownSession(t *testing.T) {
	svc := newService(t, "http://unused")

	if _, err := svc.Send(context.Background(), "missing", "hello"); err != chatservice.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSequentialSendsPreserveOrder(t *testing.T) {
	srv := replyServer(t, wellFormedBody("Sure!"))
	svc := newService(t, srv.URL)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	for _, text := range []string{"A", "B"} {
		if _, err := svc.Send(ctx, session.ID, text); err != nil {
			t.Fatalf("Send(%q) err: %v", text, err)
		}
	}

	messages, err := svc.LoadTranscript(ctx, session.ID)
	if err != nil {
		t.Fatalf("LoadTranscript err: %v", err)
	}
	if len(messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(messages))
	}

	wantSenders := []string{chat.SenderUser, chat.SenderBot, chat.SenderUser, chat.SenderBot}
	for i, want := range wantSenders {
		if messages[i].Sender != want {
			t.Fatalf("message %d sender = %s, want %s", i, messages[i].Sender, want)
		}
	}
	if messages[0].Text != "A" || messages[2].Text != "B" {
		t.Fatalf("user texts out of order: %q, %q", messages[0].Text, messages[2].Text)
	}
}

func TestSendWhileTypingRejected(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	releaseUpstream := func() { once.Do(func() { close(release) }) }

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		fmt.Fprint(w, wellFormedBody("finally"))
	}))
	defer srv.Close()
	defer releaseUpstream()

	svc := newService(t, srv.URL)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	done := make(chan struct{})
	go func() {
		svc.Send(ctx, session.ID, "first")
		close(done)
	}()

	waitForTyping(t, svc, session.ID, true)

	if _, err := svc.Send(ctx, session.ID, "second"); err != chatservice.ErrSessionBusy {
		t.Fatalf("expected ErrSessionBusy, got %v", err)
	}
	if err := svc.SetInput(ctx, session.ID, "edit attempt"); err != chatservice.ErrSessionBusy {
		t.Fatalf("expected ErrSessionBusy from SetInput, got %v", err)
	}

	messages, err := svc.LoadTranscript(ctx, session.ID)
	if err != nil {
		t.Fatalf("LoadTranscript err: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("second submit changed the conversation: %d messages", len(messages))
	}

	releaseUpstream()
	<-done

	messages, err = svc.LoadTranscript(ctx, session.ID)
	if err != nil {
		t.Fatalf("LoadTranscript err: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages after settlement, got %d", len(messages))
	}
}

func TestWatchReceivesLifecycleEvents(t *testing.T) {
	srv := replyServer(t, wellFormedBody("Hi!"))
	svc := newService(t, srv.URL)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	events, unwatch, err := svc.Watch(ctx, session.ID)
	if err != nil {
		t.Fatalf("Watch err: %v", err)
	}

	if err := svc.SetInput(ctx, session.ID, "Hello"); err != nil {
		t.Fatalf("SetInput err: %v", err)
	}
	if _, err := svc.Send(ctx, session.ID, "Hello"); err != nil {
		t.Fatalf("Send err: %v", err)
	}

	wantTypes := []chat.EventType{
		chat.EventInput,
		chat.EventMessage,
		chat.EventInput,
		chat.EventTyping,
		chat.EventMessage,
		chat.EventTyping,
	}

	got := make([]chat.Event, 0, len(wantTypes))
	for range wantTypes {
		got = append(got, nextEvent(t, events))
	}
	for i, want := range wantTypes {
		if got[i].Type != want {
			t.Fatalf("event %d type = %s, want %s", i, got[i].Type, want)
		}
	}

	if got[0].Input != "Hello" {
		t.Fatalf("first input event = %q, want %q", got[0].Input, "Hello")
	}
	if got[1].Message == nil || got[1].Message.Sender != chat.SenderUser || got[1].Message.Text != "Hello" {
		t.Fatalf("unexpected user message event: %+v", got[1])
	}
	if got[2].Input != "" {
		t.Fatalf("input not cleared in event: %q", got[2].Input)
	}
	if !got[3].Typing {
		t.Fatal("typing event should carry true")
	}
	if got[4].Message == nil || got[4].Message.Sender != chat.SenderBot || got[4].Message.Text != "Hi!" {
		t.Fatalf("unexpected bot message event: %+v", got[4])
	}
	if got[5].Typing {
		t.Fatal("final typing event should carry false")
	}

	unwatch()
	if _, ok := <-events; ok {
		t.Fatal("expected channel to close after unwatch")
	}
}
