package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"orderdesk/internal"
	"orderdesk/internal/config"
	"orderdesk/internal/unit"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testConfig() config.Config {
	return config.Config{
		AIBaseURL:        "https://example.test/v1",
		AIAPIKey:         "test",
		AIModel:          "test-model",
		AIMaxAttempts:    3,
		AIRequestsPerMin: 600000,
	}
}

func chatReply(content string) *http.Response {
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
	blob, _ := json.Marshal(payload)
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(string(blob))),
		Header:     make(http.Header),
	}
}

func TestParseItemsSuccess(t *testing.T) {
	catalog := []internal.CatalogItem{{ID: "i1", Name: "Angkor Beer (can)", Unit: unit.Can, SupplierID: "s1"}}

	client := NewClient(testConfig())
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Path != "/v1/chat/completions" {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer test" {
				t.Fatalf("unexpected auth header %q", got)
			}
			content := "```json\n[{\"matchedItemId\":\"i1\",\"quantity\":8},{\"newItemName\":\"carrots\",\"quantity\":2,\"unit\":\"KG\"}]\n```"
			return chatReply(content), nil
		}),
	}

	got, err := client.ParseItems(context.Background(), "angkor beer x8\n2kg carrots", catalog, internal.AliasRules{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d items want 2", len(got))
	}
	if want := internal.ParsedMatch("i1", 8, unit.Can); got[0] != want {
		t.Fatalf("got %+v want %+v", got[0], want)
	}
	if want := internal.ParsedNew("carrots", 2, unit.Kilogram); got[1] != want {
		t.Fatalf("got %+v want %+v", got[1], want)
	}
}

func TestParseItemsRetriesRetryableStatus(t *testing.T) {
	attempt := 0
	client := NewClient(testConfig())
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			attempt++
			if attempt == 1 {
				return &http.Response{
					StatusCode: http.StatusServiceUnavailable,
					Body:       io.NopCloser(strings.NewReader(`{"error":"overloaded"}`)),
					Header:     make(http.Header),
				}, nil
			}
			return chatReply(`[{"newItemName":"rice","quantity":1}]`), nil
		}),
	}

	got, err := client.ParseItems(context.Background(), "rice", nil, internal.AliasRules{})
	if err != nil {
		t.Fatal(err)
	}
	if attempt != 2 {
		t.Fatalf("attempts = %d want 2", attempt)
	}
	if len(got) != 1 || got[0].NewItemName != "rice" {
		t.Fatalf("got %+v want rice", got)
	}
}

func TestParseItemsDoesNotRetryClientError(t *testing.T) {
	attempt := 0
	client := NewClient(testConfig())
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			attempt++
			return &http.Response{
				StatusCode: http.StatusUnauthorized,
				Body:       io.NopCloser(strings.NewReader(`{"error":"bad key"}`)),
				Header:     make(http.Header),
			}, nil
		}),
	}

	_, err := client.ParseItems(context.Background(), "rice", nil, internal.AliasRules{})
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("err = %v want ErrRequestFailed", err)
	}
	if attempt != 1 {
		t.Fatalf("attempts = %d want 1", attempt)
	}
}

func TestParseItemsBadReplyIsTyped(t *testing.T) {
	client := NewClient(testConfig())
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return chatReply("sorry, I could not parse that"), nil
		}),
	}

	_, err := client.ParseItems(context.Background(), "rice", nil, internal.AliasRules{})
	if !errors.Is(err, ErrBadReply) {
		t.Fatalf("err = %v want ErrBadReply", err)
	}
}

func TestParseItemsWithoutKeyIsTyped(t *testing.T) {
	cfg := testConfig()
	cfg.AIAPIKey = ""
	client := NewClient(cfg)
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			t.Fatal("no request expected")
			return nil, nil
		}),
	}

	_, err := client.ParseItems(context.Background(), "rice", nil, internal.AliasRules{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v want ErrNotConfigured", err)
	}
}

func TestSanitize(t *testing.T) {
	catalog := []internal.CatalogItem{{ID: "i1", Name: "Angkor Beer (can)", Unit: unit.Can}}

	entries := []replyItem{
		{MatchedItemID: "i1", Quantity: 2, Unit: "btl"},
		{MatchedItemID: "ghost", NewItemName: "holy basil", Quantity: 0},
		{MatchedItemID: "ghost"},
		{NewItemName: "carrots", Quantity: 2, Unit: "bunch"},
		{MatchedItemID: "i1", Quantity: 3},
	}

	got := sanitize(entries, catalog)
	if len(got) != 3 {
		t.Fatalf("got %d items want 3: %+v", len(got), got)
	}
	if want := internal.ParsedMatch("i1", 5, unit.Can); got[0] != want {
		t.Fatalf("got %+v want %+v (typed unit dropped, duplicates summed)", got[0], want)
	}
	if want := internal.ParsedNew("holy basil", 1, ""); got[1] != want {
		t.Fatalf("got %+v want %+v (unknown id demoted, qty defaulted)", got[1], want)
	}
	if want := internal.ParsedNew("carrots", 2, ""); got[2] != want {
		t.Fatalf("got %+v want %+v (unknown unit dropped)", got[2], want)
	}
}

func TestBuildUserPromptListsCatalogAndAliases(t *testing.T) {
	catalog := []internal.CatalogItem{{ID: "i1", Name: "Angkor Beer (can)", Unit: unit.Can}}
	rules := internal.AliasRules{Global: map[string]string{"ab": "angkor beer"}}

	prompt := buildUserPrompt("ab x2", catalog, rules)
	for _, want := range []string{
		"i1 | Angkor Beer (can) | can",
		"ab -> angkor beer",
		"Item list:\nab x2",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
