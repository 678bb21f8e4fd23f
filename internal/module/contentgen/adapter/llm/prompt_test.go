package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jinford/travel-contentgen/internal/module/contentgen/domain"
)

func TestBuildPrompt(t *testing.T) {
	rating := 4.5
	count := 80

	tests := []struct {
		name        string
		product     domain.Product
		locale      domain.Locale
		contains    []string
		notContains []string
	}{
		{
			name:     "ツアーは行程を要求する",
			product:  domain.Product{ID: "tour-1", Category: domain.CategoryTour, Name: "Old Town Walk", Price: 25, Rating: &rating, ReviewCount: &count},
			locale:   domain.LocaleES,
			contains: []string{"Spanish", `"es"`, "- id: tour-1", "rating: 4.5/5 from 80 reviews", `"itinerary"`, `"reviews": 5 objects`},
		},
		{
			name:        "ホテルは設備を要求する",
			product:     domain.Product{ID: "hotel-1", Category: domain.CategoryHotel, Name: "Sea View", Region: "Crete"},
			locale:      domain.LocaleFR,
			contains:    []string{"French", "- region: Crete", `"amenities"`, `"roomFeatures"`},
			notContains: []string{`"itinerary"`, "- rating:"},
		},
		{
			name:        "航空券は追加フィールドなし",
			product:     domain.Product{ID: "flight-1", Category: domain.CategoryFlight, Name: "ATH-JTR"},
			locale:      domain.LocaleZH,
			contains:    []string{"Chinese", "following flight"},
			notContains: []string{"Also include"},
		},
		{
			name:     "レンタカーのラベル",
			product:  domain.Product{ID: "car-1", Category: domain.CategoryCarRental, Name: "Fiat Panda"},
			locale:   domain.LocaleEN,
			contains: []string{"car rental offer", `"vehicleFeatures"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			system, user := BuildPrompt(tt.product, tt.locale)
			assert.Contains(t, system, "valid JSON")
			for _, s := range tt.contains {
				assert.Contains(t, user, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, user, s)
			}
		})
	}
}

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		name    string
		site    string
		product domain.Product
		locale  domain.Locale
		want    string
	}{
		{"ツアー", "https://travel.example.com", domain.Product{ID: "tour-1", Category: domain.CategoryTour}, domain.LocaleEN, "https://travel.example.com/en/tours/tour-1"},
		{"末尾スラッシュ", "https://travel.example.com/", domain.Product{ID: "car-9", Category: domain.CategoryCarRental}, domain.LocaleIT, "https://travel.example.com/it/car-rentals/car-9"},
		{"ホテル", "https://t.example", domain.Product{ID: "hotel-2", Category: domain.CategoryHotel}, domain.LocaleRU, "https://t.example/ru/hotels/hotel-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalURL(tt.site, tt.product, tt.locale))
		})
	}
}

func TestCompleteSEO_FillsDefaults(t *testing.T) {
	content := &domain.GeneratedContent{Title: "Transfer to Airport", Description: "Private car to ATH"}
	product := domain.Product{ID: "transfer-1", Category: domain.CategoryTransfer, Price: 40}

	completeSEO(&content.SEO, content, product, domain.LocalePT, "https://t.example", "EUR")

	assert.Equal(t, "Transfer to Airport", content.SEO.MetaTitle)
	assert.Equal(t, "Private car to ATH", content.SEO.MetaDescription)
	assert.NotNil(t, content.SEO.Keywords)
	assert.Equal(t, "https://t.example/pt/transfers/transfer-1", content.SEO.CanonicalURL)
	assert.Empty(t, content.SEO.OpenGraph.Image)
	assert.NotContains(t, content.SEO.StructuredData, "aggregateRating")
	assert.NotContains(t, content.SEO.StructuredData, "image")

	offers, ok := content.SEO.StructuredData["offers"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "EUR", offers["priceCurrency"])
	assert.Equal(t, 40.0, offers["price"])
}
