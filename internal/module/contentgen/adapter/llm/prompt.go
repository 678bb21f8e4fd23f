package llm

import (
	"fmt"
	"strings"

	"github.com/jinford/travel-contentgen/internal/module/contentgen/domain"
)

const (
	// PromptVersion は商品コンテンツ生成プロンプトのバージョン
	PromptVersion = "1.0"

	// DefaultTemperature は生成の温度設定
	DefaultTemperature = 0.7

	// DefaultMaxTokens は生成する最大トークン数
	DefaultMaxTokens = 3000

	// ExpectedResponseTokens はコスト見積もりで想定するレスポンスのトークン数
	ExpectedResponseTokens = 1800

	// reviewsPerProduct は1商品あたりに生成するレビュー数
	reviewsPerProduct = 5
)

const systemPrompt = `You are a senior travel copywriter and SEO specialist for a multi-region booking platform.

Your task is to write localized marketing content for a single bookable product.

Guidelines:
- Write natively in the requested language, not as a literal translation
- Be specific and factual; only use facts present in the product data
- Never invent prices, discounts or availability
- Keep metaTitle under 60 characters and metaDescription under 160 characters
- Reviews must sound like real travellers from different countries
- Return a single valid JSON object and nothing else`

// categoryInstructions はカテゴリ固有の追加フィールド指示
var categoryInstructions = map[domain.Category]string{
	domain.CategoryTour: `Also include:
- "included": list of what is included in the tour
- "excluded": list of what is not included
- "itinerary": list of {"time", "title", "description"} steps`,
	domain.CategoryHotel: `Also include:
- "amenities": list of hotel amenities
- "roomFeatures": list of typical room features`,
	domain.CategoryCarRental: `Also include:
- "vehicleFeatures": list of vehicle features and rental conditions`,
	domain.CategoryTransfer: `Also include:
- "vehicleFeatures": list of vehicle and service features (meet & greet, luggage, waiting time)`,
	domain.CategoryRental: `Also include:
- "amenities": list of property amenities`,
}

// BuildPrompt は (商品, ロケール) に対するシステムプロンプトとユーザープロンプトを返す
func BuildPrompt(product domain.Product, locale domain.Locale) (string, string) {
	var b strings.Builder

	fmt.Fprintf(&b, "Write content in %s (locale code %q) for the following %s.\n\n", locale.LanguageName(), locale, categoryLabel(product.Category))

	b.WriteString("Product data:\n")
	fmt.Fprintf(&b, "- id: %s\n", product.ID)
	fmt.Fprintf(&b, "- category: %s\n", product.Category)
	fmt.Fprintf(&b, "- name: %s\n", product.Name)
	if product.Region != "" {
		fmt.Fprintf(&b, "- region: %s\n", product.Region)
	}
	fmt.Fprintf(&b, "- price: %.2f\n", product.Price)
	if product.Rating != nil {
		fmt.Fprintf(&b, "- rating: %.1f/5", *product.Rating)
		if product.ReviewCount != nil {
			fmt.Fprintf(&b, " from %d reviews", *product.ReviewCount)
		}
		b.WriteString("\n")
	}
	if product.Description != "" {
		fmt.Fprintf(&b, "- description: %s\n", product.Description)
	}

	b.WriteString(`
Return JSON with these fields:
- "title": page title
- "description": 1-2 sentence summary
- "longDescription": 3-5 paragraphs
- "highlights": 4-6 short bullet points
`)
	fmt.Fprintf(&b, "- \"reviews\": %d objects {\"author\", \"country\", \"rating\" (1-5), \"title\", \"text\", \"date\" (YYYY-MM-DD)}\n", reviewsPerProduct)
	b.WriteString(`- "seo": {"metaTitle", "metaDescription", "keywords" (8-12 items)}
`)

	if extra, ok := categoryInstructions[product.Category]; ok {
		b.WriteString("\n")
		b.WriteString(extra)
		b.WriteString("\n")
	}

	return systemPrompt, b.String()
}

func categoryLabel(c domain.Category) string {
	switch c {
	case domain.CategoryCarRental:
		return "car rental offer"
	case domain.CategoryRental:
		return "vacation rental"
	case domain.CategoryTransfer:
		return "private transfer"
	default:
		return string(c)
	}
}
