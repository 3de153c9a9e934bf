package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"orderdesk/internal"
	"orderdesk/internal/config"
	"orderdesk/internal/parse"
	"orderdesk/internal/unit"
)

// Failures are typed and distinct from an empty result, so callers can fall
// back to the local parser or show what to fix.
var (
	ErrNotConfigured = errors.New("ai backend not configured")
	ErrRequestFailed = errors.New("ai request failed")
	ErrBadReply      = errors.New("ai reply not usable")
)

// Client is the AI-assisted backend. It talks to an OpenAI-style
// chat-completions endpoint and post-processes the reply until it honors the
// same output contract as the local parser.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(cfg config.Config) *Client {
	rpm := cfg.AIRequestsPerMin
	if rpm <= 0 {
		rpm = 30
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.AITimeoutMs) * time.Millisecond},
		limiter:    rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type replyItem struct {
	MatchedItemID string  `json:"matchedItemId"`
	NewItemName   string  `json:"newItemName"`
	Quantity      float64 `json:"quantity"`
	Unit          string  `json:"unit"`
}

// ParseItems implements the backend contract. A failed call returns a typed
// error and no partial results.
func (c *Client) ParseItems(ctx context.Context, text string, catalog []internal.CatalogItem, rules internal.AliasRules) ([]internal.ParsedItem, error) {
	if strings.TrimSpace(c.cfg.AIAPIKey) == "" {
		return nil, fmt.Errorf("%w: AI_API_KEY is empty", ErrNotConfigured)
	}
	if strings.TrimSpace(text) == "" {
		return []internal.ParsedItem{}, nil
	}

	payload := chatRequest{
		Model: c.cfg.AIModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(text, catalog, rules)},
		},
		Temperature: c.cfg.AITemperature,
	}

	reply, err := c.complete(ctx, payload)
	if err != nil {
		return nil, err
	}
	entries, err := decodeReply(reply)
	if err != nil {
		return nil, err
	}
	return sanitize(entries, catalog), nil
}

func (c *Client) complete(ctx context.Context, payload chatRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	endpoint := strings.TrimRight(c.cfg.AIBaseURL, "/") + "/chat/completions"

	attempts := c.cfg.AIMaxAttempts
	if attempts <= 0 {
		attempts = 3
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.AIAPIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", fmt.Errorf("%w: %v", ErrRequestFailed, ctx.Err())
			}
			lastErr = err
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < attempts {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				select {
				case <-ctx.Done():
					return "", fmt.Errorf("%w: %v", ErrRequestFailed, ctx.Err())
				case <-time.After(backoff):
				}
				lastErr = fmt.Errorf("status %d", resp.StatusCode)
				continue
			}
			return "", fmt.Errorf("%w: status=%d body=%s", ErrRequestFailed, resp.StatusCode, truncate(string(respBody), 300))
		}

		var parsed chatResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return "", fmt.Errorf("%w: %v", ErrBadReply, err)
		}
		if parsed.Error != nil {
			return "", fmt.Errorf("%w: %s", ErrRequestFailed, parsed.Error.Message)
		}
		if len(parsed.Choices) == 0 {
			return "", fmt.Errorf("%w: reply has no choices", ErrBadReply)
		}
		return parsed.Choices[0].Message.Content, nil
	}

	if lastErr == nil {
		lastErr = errors.New("all attempts failed")
	}
	return "", fmt.Errorf("%w: %v", ErrRequestFailed, lastErr)
}

// decodeReply tolerates code fences and prose around the JSON array by
// slicing between the outermost brackets.
func decodeReply(raw string) ([]replyItem, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON array in %q", ErrBadReply, truncate(cleaned, 120))
	}

	var entries []replyItem
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadReply, err)
	}
	return entries, nil
}

// sanitize restores the output invariants no matter what the model sent:
// exactly one name field per item, positive quantities, lexicon units on new
// items, catalog units on matched items, duplicates aggregated.
func sanitize(entries []replyItem, catalog []internal.CatalogItem) []internal.ParsedItem {
	byID := make(map[string]internal.CatalogItem, len(catalog))
	for _, it := range catalog {
		byID[it.ID] = it
	}

	out := make([]internal.ParsedItem, 0, len(entries))
	for _, e := range entries {
		qty := e.Quantity
		if qty <= 0 {
			qty = 1
		}

		if id := strings.TrimSpace(e.MatchedItemID); id != "" {
			if cat, ok := byID[id]; ok {
				out = append(out, internal.ParsedMatch(cat.ID, qty, cat.Unit))
				continue
			}
			// Unknown id: treat as a new item when the model also sent a name.
		}

		name := strings.TrimSpace(e.NewItemName)
		if name == "" {
			continue
		}
		var u unit.Unit
		if normalized, ok := unit.Normalize(e.Unit); ok {
			u = normalized
		}
		out = append(out, internal.ParsedNew(name, qty, u))
	}
	return parse.Aggregate(out)
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
