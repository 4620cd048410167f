package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/usharani/chat-widget/backend/internal/config"
)

// OutcomeKind classifies how a completion call settled.
type OutcomeKind int

const (
	// OutcomeReply carries generated text from a well-formed response.
	OutcomeReply OutcomeKind = iota
	// OutcomeMalformed marks a JSON response without the expected
	// candidate/content/parts structure.
	OutcomeMalformed
	// OutcomeTransportFailure marks a request that never produced a
	// parseable response: network error, unreadable body, or non-JSON body.
	OutcomeTransportFailure
)

// String returns the kind in log-friendly form.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeReply:
		return "reply"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeTransportFailure:
		return "transport-failure"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the settled result of one completion request. Exactly one kind
// applies. Text is set only for OutcomeReply; Err records the underlying
// cause of a transport failure and is diagnostic only.
type Outcome struct {
	Kind OutcomeKind
	Text string
	Err  error
}

// Wire shapes for the generateContent endpoint.
type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Client issues single-turn completion requests against a Gemini-style
// generateContent REST endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
}

// NewClient builds a completion client. The underlying http.Client carries
// no Timeout: a completion call runs until it settles or the caller's
// context ends.
func NewClient(cfg config.AIConfig) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
	}
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
}

// Complete forwards one user turn and classifies the settlement. It never
// returns a Go error: the three outcome kinds cover every path, and the
// response body alone decides between them. HTTP status codes are not
// consulted; an error-status JSON body lands in the malformed branch like
// any other unexpected structure.
func (c *Client) Complete(ctx context.Context, text string) Outcome {
	payload := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: text}}}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Outcome{Kind: OutcomeTransportFailure, Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return Outcome{Kind: OutcomeTransportFailure, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[ai] completion request failed: %v", err)
		return Outcome{Kind: OutcomeTransportFailure, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[ai] reading completion response failed: %v", err)
		return Outcome{Kind: OutcomeTransportFailure, Err: fmt.Errorf("read response: %w", err)}
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		// A type mismatch inside valid JSON is an unexpected structure,
		// not a broken transport.
		if json.Valid(raw) {
			log.Printf("[ai] unexpected completion structure: %s", raw)
			return Outcome{Kind: OutcomeMalformed}
		}
		log.Printf("[ai] completion response is not valid JSON: %v", err)
		return Outcome{Kind: OutcomeTransportFailure, Err: fmt.Errorf("decode response: %w", err)}
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		log.Printf("[ai] unexpected completion structure: %s", raw)
		return Outcome{Kind: OutcomeMalformed}
	}

	return Outcome{Kind: OutcomeReply, Text: parsed.Candidates[0].Content.Parts[0].Text}
}
