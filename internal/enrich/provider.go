// Package enrich fills in missing bookmark metadata (title, description,
// tags, category) using an LLM over the page's extracted text. Results are
// cached without expiry and evicted only after the bookmark update lands.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// ErrCannotAccess means the page content could not be read, by us or by the
// model. Such links are skipped, never cached, and retried on a later run.
var ErrCannotAccess = errors.New("content not accessible")

// Result is the model's suggested metadata for one link.
type Result struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Tags              []string `json:"tags"`
	Category          string   `json:"category"`
	SuggestedCategory string   `json:"suggested_category,omitempty"`
}

// Provider generates metadata for a page given its extracted text.
type Provider interface {
	Enrich(ctx context.Context, pageURL, content string) (Result, error)
}

// Config selects and configures the LLM backend.
type Config struct {
	// Provider is "claude" or "openai".
	Provider string
	APIKey   string
	Model    string
	// BaseURL overrides the provider endpoint, for OpenAI-compatible
	// gateways. Empty uses the provider default.
	BaseURL string
	Timeout time.Duration
}

// New builds the configured Provider.
func New(cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("enrich: api key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	switch cfg.Provider {
	case "claude":
		model := cfg.Model
		if model == "" {
			model = "claude-haiku-4-5-20251001"
		}
		return &claudeProvider{apiKey: cfg.APIKey, model: model, client: client}, nil
	case "openai":
		model := cfg.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		return &openaiProvider{apiKey: cfg.APIKey, model: model, baseURL: strings.TrimRight(baseURL, "/"), client: client}, nil
	default:
		return nil, fmt.Errorf("unknown enrich provider: %q (valid: claude, openai)", cfg.Provider)
	}
}

const enrichPrompt = `You are a bookmarking assistant. Given a web page's URL and extracted text, produce metadata for the bookmark.

Respond with a single JSON object with these keys:
  "title": concise page title, max 100 characters
  "description": 1-2 sentence summary, max 300 characters
  "tags": up to 5 lowercase topic tags (like: databases, rust, security)
  "category": one broad category word
  "suggested_category": a narrower category if one fits, else null

If the text clearly is not the page content (a CAPTCHA, a login wall, an error page), respond with the JSON value null instead of an object.

URL: %s

Page text:
%s`

var codeFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// parseResponse decodes the model's reply, tolerating Markdown code fences.
// A JSON null reply means the model judged the content inaccessible.
func parseResponse(text string) (Result, error) {
	raw := strings.TrimSpace(text)
	if m := codeFencePattern.FindStringSubmatch(raw); m != nil {
		raw = strings.TrimSpace(m[1])
	}
	if raw == "" || raw == "null" {
		return Result{}, ErrCannotAccess
	}

	var res Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return Result{}, fmt.Errorf("decode model response: %w", err)
	}
	res.Title = html.UnescapeString(res.Title)
	res.Description = html.UnescapeString(res.Description)
	for i, t := range res.Tags {
		res.Tags[i] = html.UnescapeString(t)
	}
	return res, nil
}
