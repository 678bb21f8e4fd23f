package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/jinford/travel-contentgen/internal/module/contentgen/domain"
)

const (
	// DefaultModel はデフォルトで使用するOpenAIモデル
	DefaultModel = "gpt-4o-mini"

	// DefaultSiteURL は canonical URL の既定のサイトURL
	DefaultSiteURL = "https://www.example-travel.com"

	// DefaultCurrency は構造化データの既定通貨
	DefaultCurrency = "EUR"

	// DefaultSDKMaxRetries はSDK内部のリトライ回数
	// バッチ側でもリトライするため少なめにする
	DefaultSDKMaxRetries = 1
)

var (
	// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
	ErrAPIKeyNotSet = errors.New("OpenAI API key not set: please set OPENAI_API_KEY environment variable")

	// ErrInvalidResponseFormat は不正なレスポンス形式のエラー
	ErrInvalidResponseFormat = errors.New("invalid response format")
)

// GeneratorConfig はOpenAIGeneratorの設定
type GeneratorConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	// BaseURL はAPIエンドポイントの上書き（テスト・互換APIサーバ用）
	BaseURL string
	// SiteURL は canonical URL の生成に使うサイトURL
	SiteURL  string
	Currency string
	// MaxRetries はSDK内部のリトライ回数
	MaxRetries int
	Logger     *slog.Logger
}

// Usage はAPI使用量の累計
type Usage struct {
	Requests         int64
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

// OpenAIGenerator は OpenAI Chat Completions API を使った domain.Generator 実装
type OpenAIGenerator struct {
	client openai.Client
	config GeneratorConfig
	logger *slog.Logger

	requests         atomic.Int64
	promptTokens     atomic.Int64
	completionTokens atomic.Int64
	totalTokens      atomic.Int64
}

// NewOpenAIGenerator は新しいOpenAIGeneratorを作成する
func NewOpenAIGenerator(cfg GeneratorConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.SiteURL == "" {
		cfg.SiteURL = DefaultSiteURL
	}
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIGenerator{
		client: openai.NewClient(opts...),
		config: cfg,
		logger: logger,
	}, nil
}

// ModelName はモデル名を返す
func (g *OpenAIGenerator) ModelName() string {
	return g.config.Model
}

// Usage はこれまでのAPI使用量を返す
func (g *OpenAIGenerator) Usage() Usage {
	return Usage{
		Requests:         g.requests.Load(),
		PromptTokens:     g.promptTokens.Load(),
		CompletionTokens: g.completionTokens.Load(),
		TotalTokens:      g.totalTokens.Load(),
	}
}

// Generate は商品とロケールからコンテンツを生成する
func (g *OpenAIGenerator) Generate(ctx context.Context, product domain.Product, locale domain.Locale) (*domain.GeneratedContent, error) {
	system, user := BuildPrompt(product, locale)

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.config.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(g.config.Temperature),
		MaxTokens:   openai.Int(int64(g.config.MaxTokens)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{
				Type: "json_object",
			},
		},
	}

	start := time.Now()
	completion, err := g.client.Chat.Completions.New(ctx, params)
	g.requests.Add(1)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}

	g.promptTokens.Add(completion.Usage.PromptTokens)
	g.completionTokens.Add(completion.Usage.CompletionTokens)
	g.totalTokens.Add(completion.Usage.TotalTokens)

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: no completion choices returned", ErrInvalidResponseFormat)
	}

	choice := completion.Choices[0]
	if choice.FinishReason == "length" {
		return nil, fmt.Errorf("%w: response truncated at %d tokens", ErrInvalidResponseFormat, g.config.MaxTokens)
	}

	content, err := ParseContent(choice.Message.Content)
	if err != nil {
		return nil, err
	}

	content.ProductID = product.ID
	content.Locale = locale
	content.Model = completion.Model
	content.GeneratedAt = time.Now().UTC()
	completeSEO(&content.SEO, content, product, locale, g.config.SiteURL, g.config.Currency)

	g.logger.DebugContext(ctx, "content generated",
		"product", product.ID,
		"locale", locale,
		"tokens", completion.Usage.TotalTokens,
		"latency", time.Since(start).Round(time.Millisecond).String(),
	)

	return content, nil
}

// contentPayload はLLMが返すJSONの形
type contentPayload struct {
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	LongDescription string                 `json:"longDescription"`
	Highlights      []string               `json:"highlights"`
	Included        []string               `json:"included"`
	Excluded        []string               `json:"excluded"`
	Itinerary       []domain.ItineraryItem `json:"itinerary"`
	Amenities       []string               `json:"amenities"`
	RoomFeatures    []string               `json:"roomFeatures"`
	VehicleFeatures []string               `json:"vehicleFeatures"`
	Reviews         []domain.Review        `json:"reviews"`
	SEO             struct {
		MetaTitle       string   `json:"metaTitle"`
		MetaDescription string   `json:"metaDescription"`
		Keywords        []string `json:"keywords"`
	} `json:"seo"`
}

// ParseContent はLLMのレスポンス本文を GeneratedContent に変換する
// コードフェンスで囲まれている場合は取り除く
func ParseContent(raw string) (*domain.GeneratedContent, error) {
	body := stripCodeFence(raw)
	if body == "" {
		return nil, fmt.Errorf("%w: empty response", ErrInvalidResponseFormat)
	}

	var payload contentPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponseFormat, err)
	}

	if strings.TrimSpace(payload.Title) == "" || strings.TrimSpace(payload.Description) == "" {
		return nil, fmt.Errorf("%w: title and description are required", ErrInvalidResponseFormat)
	}

	highlights := payload.Highlights
	if highlights == nil {
		highlights = []string{}
	}
	reviews := payload.Reviews
	if reviews == nil {
		reviews = []domain.Review{}
	}

	return &domain.GeneratedContent{
		Title:           strings.TrimSpace(payload.Title),
		Description:     strings.TrimSpace(payload.Description),
		LongDescription: payload.LongDescription,
		Highlights:      highlights,
		Included:        payload.Included,
		Excluded:        payload.Excluded,
		Itinerary:       payload.Itinerary,
		Amenities:       payload.Amenities,
		RoomFeatures:    payload.RoomFeatures,
		VehicleFeatures: payload.VehicleFeatures,
		Reviews:         reviews,
		SEO: domain.SEO{
			MetaTitle:       payload.SEO.MetaTitle,
			MetaDescription: payload.SEO.MetaDescription,
			Keywords:        payload.SEO.Keywords,
		},
	}, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// インターフェース実装の確認
var _ domain.Generator = (*OpenAIGenerator)(nil)
