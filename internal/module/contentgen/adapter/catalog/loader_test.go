package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/travel-contentgen/internal/module/contentgen/domain"
)

func writeCatalog(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadFile_YAMLCategoryKeys(t *testing.T) {
	products, err := LoadFile(filepath.Join("testdata", "catalog.yaml"))
	require.NoError(t, err)
	require.Len(t, products, 4)

	byID := make(map[string]domain.Product)
	for _, p := range products {
		byID[p.ID] = p
	}

	assert.Equal(t, domain.CategoryTour, byID["tour-acropolis-morning"].Category)
	assert.Equal(t, domain.CategoryHotel, byID["hotel-santorini-caldera"].Category)
	assert.Equal(t, domain.CategoryCarRental, byID["car-heraklion-compact"].Category)
	assert.Equal(t, domain.CategoryTransfer, byID["transfer-ath-airport"].Category)

	tour := byID["tour-acropolis-morning"]
	assert.Equal(t, 4.8, tour.RatingValue())
	assert.Equal(t, 312, tour.ReviewCountValue())
	assert.Equal(t, []string{"https://cdn.example.com/tours/acropolis.jpg"}, tour.Images)
	assert.Nil(t, byID["car-heraklion-compact"].Rating)
}

func TestLoadFile_JSONList(t *testing.T) {
	products, err := LoadFile(filepath.Join("testdata", "catalog.json"))
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "tour-delphi-day", products[0].ID)
	assert.Equal(t, domain.CategoryRental, products[1].Category)
}

func TestLoadFile_JSONObject(t *testing.T) {
	path := writeCatalog(t, "catalog.json", `{
	"hotels": [{"id": "hotel-1", "name": "Hotel One", "price": 100}],
	"flights": [{"id": "flight-1", "name": "Flight One", "price": 60}]
}`)

	products, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, domain.CategoryHotel, products[0].Category)
	assert.Equal(t, domain.CategoryFlight, products[1].Category)
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr error
	}{
		{
			name:    "未対応の拡張子",
			file:    "catalog.csv",
			body:    "id,name",
			wantErr: ErrUnsupportedFormat,
		},
		{
			name:    "空のYAML",
			file:    "empty.yaml",
			body:    "",
			wantErr: ErrEmptyCatalog,
		},
		{
			name:    "空のリスト",
			file:    "empty.json",
			body:    "[]",
			wantErr: ErrEmptyCatalog,
		},
		{
			name:    "IDの重複",
			file:    "dup.yaml",
			body:    "- {id: tour-1, category: tour, name: A, price: 1}\n- {id: tour-1, category: tour, name: B, price: 2}\n",
			wantErr: ErrDuplicateProduct,
		},
		{
			name:    "不正な評価値",
			file:    "bad.yaml",
			body:    "- {id: tour-1, category: tour, name: A, price: 1, rating: 7}\n",
			wantErr: domain.ErrInvalidProduct,
		},
		{
			name:    "IDにパス区切り",
			file:    "bad.json",
			body:    `[{"id": "../etc", "category": "tour", "name": "A", "price": 1}]`,
			wantErr: domain.ErrInvalidProduct,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeCatalog(t, tt.file, tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadFile_CategoryMismatch(t *testing.T) {
	path := writeCatalog(t, "catalog.yaml", "hotels:\n  - {id: tour-1, category: tour, name: A, price: 1}\n")
	_, err := LoadFile(path)
	assert.ErrorContains(t, err, `listed under "hotel"`)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFilterByCategoryAndLimit(t *testing.T) {
	products := []domain.Product{
		{ID: "tour-1", Category: domain.CategoryTour},
		{ID: "hotel-1", Category: domain.CategoryHotel},
		{ID: "tour-2", Category: domain.CategoryTour},
		{ID: "flight-1", Category: domain.CategoryFlight},
	}

	tours := FilterByCategory(products, domain.CategoryTour)
	require.Len(t, tours, 2)
	assert.Equal(t, "tour-2", tours[1].ID)

	assert.Len(t, FilterByCategory(products), 4)
	assert.Len(t, FilterByCategory(products, domain.CategoryTour, domain.CategoryFlight), 3)

	assert.Len(t, Limit(products, 2), 2)
	assert.Len(t, Limit(products, 0), 4)
	assert.Len(t, Limit(products, 10), 4)
}

func TestParseCategories(t *testing.T) {
	categories, err := ParseCategories("tour, Hotel ,car-rental")
	require.NoError(t, err)
	assert.Equal(t, []domain.Category{domain.CategoryTour, domain.CategoryHotel, domain.CategoryCarRental}, categories)

	categories, err = ParseCategories("")
	require.NoError(t, err)
	assert.Empty(t, categories)

	_, err = ParseCategories("tour,cruise")
	assert.Error(t, err)
}
