package domain

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// === Product ===

// Category は商品のカテゴリを表します
type Category string

const (
	CategoryTour      Category = "tour"
	CategoryHotel     Category = "hotel"
	CategoryCarRental Category = "car-rental"
	CategoryRental    Category = "rental"
	CategoryTransfer  Category = "transfer"
	CategoryFlight    Category = "flight"
)

// AllCategories は定義済みの全カテゴリを返します
func AllCategories() []Category {
	return []Category{
		CategoryTour,
		CategoryHotel,
		CategoryCarRental,
		CategoryRental,
		CategoryTransfer,
		CategoryFlight,
	}
}

// Valid はカテゴリが定義済みかどうかを返します
func (c Category) Valid() bool {
	for _, known := range AllCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// Product はカタログ上の1商品を表します
// 実行中に変更されることはありません
type Product struct {
	ID          string   `json:"id" yaml:"id" validate:"required,excludesall=/\\"`
	Category    Category `json:"category" yaml:"category" validate:"required,oneof=tour hotel car-rental rental transfer flight"`
	Region      string   `json:"region" yaml:"region"`
	Name        string   `json:"name" yaml:"name" validate:"required"`
	Description string   `json:"description" yaml:"description"`
	Price       float64  `json:"price" yaml:"price" validate:"gte=0"`
	Images      []string `json:"images" yaml:"images" validate:"omitempty,dive,url"`
	Rating      *float64 `json:"rating,omitempty" yaml:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	ReviewCount *int     `json:"reviewCount,omitempty" yaml:"reviewCount,omitempty" validate:"omitempty,gte=0"`
}

// RatingValue は評価値を返します（未設定の場合は0）
func (p Product) RatingValue() float64 {
	if p.Rating == nil {
		return 0
	}
	return *p.Rating
}

// ReviewCountValue はレビュー件数を返します（未設定の場合は0）
func (p Product) ReviewCountValue() int {
	if p.ReviewCount == nil {
		return 0
	}
	return *p.ReviewCount
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func productValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate は商品の必須項目と値域を検証します
func (p Product) Validate() error {
	if err := productValidator().Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: product %q: invalid fields %s", ErrInvalidProduct, p.ID, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: product %q: %v", ErrInvalidProduct, p.ID, err)
	}
	return nil
}
