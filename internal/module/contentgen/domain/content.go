package domain

import (
	"fmt"
	"time"
)

// === GeneratedContent ===

// Review は生成されたレビュー1件
type Review struct {
	Author  string  `json:"author"`
	Country string  `json:"country,omitempty"`
	Rating  float64 `json:"rating"`
	Title   string  `json:"title,omitempty"`
	Text    string  `json:"text"`
	Date    string  `json:"date,omitempty"`
}

// ItineraryItem はツアー行程の1項目
type ItineraryItem struct {
	Time        string `json:"time,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// OpenGraph はOpen Graphメタデータ
type OpenGraph struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
	Type        string `json:"type"`
}

// SEO はページのSEOメタデータ
type SEO struct {
	MetaTitle       string         `json:"metaTitle"`
	MetaDescription string         `json:"metaDescription"`
	Keywords        []string       `json:"keywords"`
	CanonicalURL    string         `json:"canonicalUrl"`
	OpenGraph       OpenGraph      `json:"openGraph"`
	StructuredData  map[string]any `json:"structuredData,omitempty"`
}

// GeneratedContent は (商品, ロケール) 1組に対する生成結果
// 一度書き込まれた後は変更されません
type GeneratedContent struct {
	ProductID       string   `json:"productId"`
	Locale          Locale   `json:"locale"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	LongDescription string   `json:"longDescription"`
	Highlights      []string `json:"highlights"`

	// ツアー向け
	Included  []string        `json:"included,omitempty"`
	Excluded  []string        `json:"excluded,omitempty"`
	Itinerary []ItineraryItem `json:"itinerary,omitempty"`

	// ホテル向け
	Amenities    []string `json:"amenities,omitempty"`
	RoomFeatures []string `json:"roomFeatures,omitempty"`

	// レンタカー・送迎向け
	VehicleFeatures []string `json:"vehicleFeatures,omitempty"`

	Reviews []Review `json:"reviews"`
	SEO     SEO      `json:"seo"`

	GeneratedAt time.Time `json:"generatedAt"`
	Model       string    `json:"model,omitempty"`
}

// Validate は生成結果が最低限の項目を満たしているか検証します
func (c *GeneratedContent) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil content", ErrInvalidContent)
	}
	if c.ProductID == "" || c.Locale == "" {
		return fmt.Errorf("%w: productId and locale are required", ErrInvalidContent)
	}
	if c.Title == "" {
		return fmt.Errorf("%w: title is empty", ErrInvalidContent)
	}
	if c.Description == "" {
		return fmt.Errorf("%w: description is empty", ErrInvalidContent)
	}
	return nil
}
