package llm

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/jinford/travel-contentgen/internal/module/contentgen/domain"
)

// ModelPricing はモデルごとの価格情報（USD）
type ModelPricing struct {
	InputPricePer1kTokens  float64 `yaml:"input_price_per_1k_tokens"`
	OutputPricePer1kTokens float64 `yaml:"output_price_per_1k_tokens"`
	Description            string  `yaml:"description"`
}

// PricingConfig は価格設定ファイルの構造
type PricingConfig struct {
	Models map[string]ModelPricing `yaml:"models"`
}

// DefaultPricing は組み込みの価格表を返す
func DefaultPricing() PricingConfig {
	return PricingConfig{
		Models: map[string]ModelPricing{
			"gpt-4o-mini":  {InputPricePer1kTokens: 0.00015, OutputPricePer1kTokens: 0.0006},
			"gpt-4o":       {InputPricePer1kTokens: 0.0025, OutputPricePer1kTokens: 0.01},
			"gpt-4.1-mini": {InputPricePer1kTokens: 0.0004, OutputPricePer1kTokens: 0.0016},
			"gpt-4.1":      {InputPricePer1kTokens: 0.002, OutputPricePer1kTokens: 0.008},
		},
	}
}

// LoadPricing はYAMLの価格表を読み込み、組み込みの価格表に上書きする
// path が空の場合は組み込みの価格表を返す
func LoadPricing(path string) (PricingConfig, error) {
	pricing := DefaultPricing()
	if path == "" {
		return pricing, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return PricingConfig{}, fmt.Errorf("failed to read pricing config: %w", err)
	}

	var override PricingConfig
	if err := yaml.Unmarshal(data, &override); err != nil {
		return PricingConfig{}, fmt.Errorf("failed to parse pricing config: %w", err)
	}

	for model, p := range override.Models {
		pricing.Models[model] = p
	}
	return pricing, nil
}

// CostEstimate はコスト見積もりの結果
type CostEstimate struct {
	Model          string
	Requests       int
	PromptTokens   int
	ResponseTokens int
	InputCost      float64
	OutputCost     float64
	// ByLocale はロケール別のプロンプトトークン数
	ByLocale map[domain.Locale]int
}

// TotalCost は合計コストを返す
func (e CostEstimate) TotalCost() float64 {
	return e.InputCost + e.OutputCost
}

// TotalTokens は合計トークン数を返す
func (e CostEstimate) TotalTokens() int {
	return e.PromptTokens + e.ResponseTokens
}

// CostEstimator は (商品 × ロケール) マトリクスの生成コストを見積もる
// API呼び出しは行わない
type CostEstimator struct {
	pricing PricingConfig
	counter Counter
}

// NewCostEstimator は新しいCostEstimatorを作成する
func NewCostEstimator(pricing PricingConfig, counter Counter) *CostEstimator {
	if counter == nil {
		counter = ApproxCounter{}
	}
	return &CostEstimator{pricing: pricing, counter: counter}
}

// Models は価格表にあるモデル名を返す
func (ce *CostEstimator) Models() []string {
	models := make([]string, 0, len(ce.pricing.Models))
	for m := range ce.pricing.Models {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}

// Estimate はプロンプトのトークン数を数え、レスポンスは ExpectedResponseTokens と仮定して見積もる
func (ce *CostEstimator) Estimate(model string, products []domain.Product, locales []domain.Locale) (CostEstimate, error) {
	pricing, ok := ce.pricing.Models[model]
	if !ok {
		return CostEstimate{}, fmt.Errorf("pricing not found for model: %s", model)
	}

	estimate := CostEstimate{
		Model:    model,
		ByLocale: make(map[domain.Locale]int, len(locales)),
	}

	systemTokens := ce.counter.CountTokens(systemPrompt)
	for _, product := range products {
		for _, locale := range locales {
			_, user := BuildPrompt(product, locale)
			tokens := systemTokens + ce.counter.CountTokens(user)

			estimate.Requests++
			estimate.PromptTokens += tokens
			estimate.ResponseTokens += ExpectedResponseTokens
			estimate.ByLocale[locale] += tokens
		}
	}

	estimate.InputCost = float64(estimate.PromptTokens) / 1000.0 * pricing.InputPricePer1kTokens
	estimate.OutputCost = float64(estimate.ResponseTokens) / 1000.0 * pricing.OutputPricePer1kTokens

	return estimate, nil
}
