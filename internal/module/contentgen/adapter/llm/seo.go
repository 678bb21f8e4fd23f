package llm

import (
	"strings"

	"github.com/jinford/travel-contentgen/internal/module/contentgen/domain"
)

// categoryPaths はカテゴリごとのURLパス
var categoryPaths = map[domain.Category]string{
	domain.CategoryTour:      "tours",
	domain.CategoryHotel:     "hotels",
	domain.CategoryCarRental: "car-rentals",
	domain.CategoryRental:    "rentals",
	domain.CategoryTransfer:  "transfers",
	domain.CategoryFlight:    "flights",
}

// CanonicalURL は <siteURL>/<locale>/<categoryPath>/<productId> を返す
func CanonicalURL(siteURL string, product domain.Product, locale domain.Locale) string {
	path, ok := categoryPaths[product.Category]
	if !ok {
		path = string(product.Category)
	}
	return strings.TrimRight(siteURL, "/") + "/" + string(locale) + "/" + path + "/" + product.ID
}

// completeSEO はLLMが生成したSEO項目に、商品データから決まる項目を補完する
func completeSEO(seo *domain.SEO, content *domain.GeneratedContent, product domain.Product, locale domain.Locale, siteURL, currency string) {
	if seo.MetaTitle == "" {
		seo.MetaTitle = content.Title
	}
	if seo.MetaDescription == "" {
		seo.MetaDescription = content.Description
	}
	if seo.Keywords == nil {
		seo.Keywords = []string{}
	}
	seo.CanonicalURL = CanonicalURL(siteURL, product, locale)

	image := ""
	if len(product.Images) > 0 {
		image = product.Images[0]
	}

	seo.OpenGraph = domain.OpenGraph{
		Title:       seo.MetaTitle,
		Description: seo.MetaDescription,
		Image:       image,
		Type:        "product",
	}
	seo.StructuredData = structuredData(content, product, locale, seo.CanonicalURL, currency)
}

// structuredData は schema.org の Product 構造化データを組み立てる
func structuredData(content *domain.GeneratedContent, product domain.Product, locale domain.Locale, url, currency string) map[string]any {
	data := map[string]any{
		"@context":    "https://schema.org",
		"@type":       "Product",
		"name":        content.Title,
		"description": content.Description,
		"sku":         product.ID,
		"url":         url,
		"inLanguage":  string(locale),
		"category":    string(product.Category),
		"offers": map[string]any{
			"@type":         "Offer",
			"price":         product.Price,
			"priceCurrency": currency,
			"availability":  "https://schema.org/InStock",
			"url":           url,
		},
	}

	if len(product.Images) > 0 {
		data["image"] = product.Images
	}

	if product.Rating != nil && product.ReviewCount != nil && *product.ReviewCount > 0 {
		data["aggregateRating"] = map[string]any{
			"@type":       "AggregateRating",
			"ratingValue": *product.Rating,
			"reviewCount": *product.ReviewCount,
			"bestRating":  5,
		}
	}

	return data
}
