package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/usharani/chat-widget/backend/internal/config"
	"github.com/usharani/chat-widget/backend/internal/model/chat"
	"github.com/usharani/chat-widget/backend/internal/service/ai"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] no .env file, using system environment variables: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	mode := flag.String("mode", "", "probe mode: complete (call the model endpoint directly) or send (drive a running server)")
	text := flag.String("text", "", "user text to submit")
	server := flag.String("server", "http://localhost:8080", "base URL of a running widget server (send mode)")
	session := flag.String("session", "", "existing session id (send mode), empty creates a new one")
	timeout := flag.Duration("timeout", 45*time.Second, "probe deadline")

	flag.Parse()

	if *mode != "complete" && *mode != "send" {
		flag.Usage()
		log.Fatal("specify -mode=complete or -mode=send")
	}

	if strings.TrimSpace(*text) == "" {
		log.Fatal("provide the text to submit via -text")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "complete":
		runComplete(ctx, cfg, *text)
	case "send":
		runSend(ctx, *server, *session, *text)
	}
}

// runComplete exercises the completion client directly and reports which
// outcome branch fired.
func runComplete(ctx context.Context, cfg *config.Config, text string) {
	log.Printf("completing against %s model=%s", cfg.AI.BaseURL, cfg.AI.Model)

	client := ai.NewClient(cfg.AI)
	outcome := client.Complete(ctx, text)

	switch outcome.Kind {
	case ai.OutcomeReply:
		log.Printf("outcome=%s text=%q", outcome.Kind, outcome.Text)
	case ai.OutcomeMalformed:
		log.Printf("outcome=%s (the widget would reply with its apologetic fallback)", outcome.Kind)
	default:
		log.Printf("outcome=%s err=%v (the widget would reply with its connectivity fallback)", outcome.Kind, outcome.Err)
	}
}

// runSend drives a running server over REST: create or reuse a session,
// submit the text, print the settled bot message.
func runSend(ctx context.Context, server, sessionID, text string) {
	base := strings.TrimRight(server, "/")

	if sessionID == "" {
		session, err := createSession(ctx, base)
		if err != nil {
			log.Fatalf("create session failed: %v", err)
		}
		sessionID = session.ID
		log.Printf("created session %s", sessionID)
	}

	payload, err := json.Marshal(map[string]string{"sessionId": sessionID, "text": text})
	if err != nil {
		log.Fatalf("marshal send payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/messages", bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("build send request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("send request failed: %v", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var reply chat.Message
		if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
			log.Fatalf("decode reply: %v", err)
		}
		log.Printf("bot replied: %q", reply.Text)
	case http.StatusNoContent:
		log.Printf("submission was empty and silently ignored")
	case http.StatusConflict:
		log.Printf("a send is already in flight for session %s", sessionID)
	default:
		body, _ := io.ReadAll(resp.Body)
		log.Fatalf("unexpected status %d: %s", resp.StatusCode, body)
	}
}

func createSession(ctx context.Context, base string) (chat.Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/session", nil)
	if err != nil {
		return chat.Session{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return chat.Session{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return chat.Session{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	var session chat.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return chat.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}
