package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/travel-contentgen/internal/module/contentgen/domain"
)

const validPayload = `{
  "title": "Sunset Sailing in Santorini",
  "description": "A relaxed catamaran cruise around the caldera.",
  "longDescription": "Board a modern catamaran...",
  "highlights": ["Caldera views", "BBQ dinner on board"],
  "included": ["Dinner", "Drinks"],
  "excluded": ["Hotel pickup"],
  "itinerary": [{"time": "17:00", "title": "Boarding", "description": "Meet at Vlychada port"}],
  "reviews": [{"author": "Anna", "country": "DE", "rating": 5, "title": "Great", "text": "Lovely evening", "date": "2024-05-01"}],
  "seo": {"metaTitle": "Santorini Sunset Cruise", "metaDescription": "Book a sunset cruise.", "keywords": ["santorini", "cruise"]}
}`

func completionBody(content, finishReason string) string {
	body := map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini-2024-07-18",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": finishReason,
				"logprobs":      nil,
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     120,
			"completion_tokens": 380,
			"total_tokens":      500,
		},
	}
	b, _ := json.Marshal(body)
	return string(b)
}

type capturedRequest struct {
	mu   sync.Mutex
	body map[string]any
}

func newTestServer(t *testing.T, status int, response string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if captured != nil {
			raw, _ := io.ReadAll(r.Body)
			captured.mu.Lock()
			_ = json.Unmarshal(raw, &captured.body)
			captured.mu.Unlock()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestGenerator(t *testing.T, srv *httptest.Server) *OpenAIGenerator {
	t.Helper()
	g, err := NewOpenAIGenerator(GeneratorConfig{
		APIKey:      "test-key",
		Model:       "gpt-4o-mini",
		Temperature: 0.5,
		BaseURL:     srv.URL + "/",
		SiteURL:     "https://travel.example.com",
		MaxRetries:  0,
	})
	require.NoError(t, err)
	return g
}

func TestNewOpenAIGenerator_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIGenerator(GeneratorConfig{})
	assert.ErrorIs(t, err, ErrAPIKeyNotSet)
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	captured := &capturedRequest{}
	srv := newTestServer(t, http.StatusOK, completionBody(validPayload, "stop"), captured)
	g := newTestGenerator(t, srv)

	rating := 4.8
	reviews := 120
	product := domain.Product{
		ID:          "tour-santorini-sunset",
		Category:    domain.CategoryTour,
		Name:        "Santorini Sunset Cruise",
		Price:       95,
		Images:      []string{"https://cdn.example.com/santorini.jpg"},
		Rating:      &rating,
		ReviewCount: &reviews,
	}

	content, err := g.Generate(context.Background(), product, domain.LocaleDE)
	require.NoError(t, err)

	assert.Equal(t, "tour-santorini-sunset", content.ProductID)
	assert.Equal(t, domain.LocaleDE, content.Locale)
	assert.Equal(t, "gpt-4o-mini-2024-07-18", content.Model)
	assert.Equal(t, "Sunset Sailing in Santorini", content.Title)
	assert.Len(t, content.Itinerary, 1)
	assert.False(t, content.GeneratedAt.IsZero())
	require.NoError(t, content.Validate())

	assert.Equal(t, "https://travel.example.com/de/tours/tour-santorini-sunset", content.SEO.CanonicalURL)
	assert.Equal(t, "https://cdn.example.com/santorini.jpg", content.SEO.OpenGraph.Image)
	assert.Equal(t, "product", content.SEO.OpenGraph.Type)
	assert.Equal(t, "Product", content.SEO.StructuredData["@type"])
	assert.Contains(t, content.SEO.StructuredData, "aggregateRating")

	usage := g.Usage()
	assert.Equal(t, int64(1), usage.Requests)
	assert.Equal(t, int64(500), usage.TotalTokens)

	captured.mu.Lock()
	defer captured.mu.Unlock()
	assert.Equal(t, "gpt-4o-mini", captured.body["model"])
	messages, ok := captured.body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 2)
	format, ok := captured.body["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])
}

func TestOpenAIGenerator_InvalidResponses(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		finishReason string
	}{
		{name: "JSONではない", content: "Sorry, I cannot help with that.", finishReason: "stop"},
		{name: "タイトルなし", content: `{"description": "only description"}`, finishReason: "stop"},
		{name: "途中で打ち切り", content: `{"title": "Cut`, finishReason: "length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, http.StatusOK, completionBody(tt.content, tt.finishReason), nil)
			g := newTestGenerator(t, srv)

			_, err := g.Generate(context.Background(), domain.Product{ID: "hotel-1", Category: domain.CategoryHotel, Name: "H"}, domain.LocaleEN)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidResponseFormat)
			assert.Equal(t, ErrorTypeJSONParseFailed, ClassifyError(err))
		})
	}
}

func TestOpenAIGenerator_RateLimited(t *testing.T) {
	srv := newTestServer(t, http.StatusTooManyRequests,
		`{"error": {"message": "Rate limit reached", "type": "requests", "code": "rate_limit_exceeded"}}`, nil)
	g := newTestGenerator(t, srv)

	_, err := g.Generate(context.Background(), domain.Product{ID: "car-1", Category: domain.CategoryCarRental, Name: "C"}, domain.LocaleEN)
	require.Error(t, err)
	assert.Equal(t, ErrorTypeRateLimitExceeded, ClassifyError(err))
}

func TestParseContent(t *testing.T) {
	fenced := "```json\n" + validPayload + "\n```"
	content, err := ParseContent(fenced)
	require.NoError(t, err)
	assert.Equal(t, "Sunset Sailing in Santorini", content.Title)
	assert.Equal(t, []string{"santorini", "cruise"}, content.SEO.Keywords)

	content, err = ParseContent(`{"title": " T ", "description": " D "}`)
	require.NoError(t, err)
	assert.Equal(t, "T", content.Title)
	assert.NotNil(t, content.Highlights)
	assert.NotNil(t, content.Reviews)

	_, err = ParseContent("   ")
	assert.ErrorIs(t, err, ErrInvalidResponseFormat)
}
