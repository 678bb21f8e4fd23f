package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jinford/travel-contentgen/internal/module/contentgen/domain"
)

var (
	// ErrEmptyCatalog はカタログに商品が1件もない場合のエラー
	ErrEmptyCatalog = errors.New("catalog has no products")

	// ErrDuplicateProduct は同じIDの商品が複数ある場合のエラー
	ErrDuplicateProduct = errors.New("duplicate product id")

	// ErrUnsupportedFormat は対応していない拡張子のエラー
	ErrUnsupportedFormat = errors.New("unsupported catalog format")
)

// document はオブジェクト形式のカタログ
// products にはカテゴリ付きの商品、カテゴリ名のキーにはカテゴリ省略可の商品を置く
type document struct {
	Products   []domain.Product `json:"products" yaml:"products"`
	Tours      []domain.Product `json:"tours" yaml:"tours"`
	Hotels     []domain.Product `json:"hotels" yaml:"hotels"`
	CarRentals []domain.Product `json:"carRentals" yaml:"carRentals"`
	Rentals    []domain.Product `json:"rentals" yaml:"rentals"`
	Transfers  []domain.Product `json:"transfers" yaml:"transfers"`
	Flights    []domain.Product `json:"flights" yaml:"flights"`
}

func (d document) flatten() ([]domain.Product, error) {
	products := append([]domain.Product(nil), d.Products...)

	groups := []struct {
		category domain.Category
		items    []domain.Product
	}{
		{domain.CategoryTour, d.Tours},
		{domain.CategoryHotel, d.Hotels},
		{domain.CategoryCarRental, d.CarRentals},
		{domain.CategoryRental, d.Rentals},
		{domain.CategoryTransfer, d.Transfers},
		{domain.CategoryFlight, d.Flights},
	}
	for _, g := range groups {
		for _, p := range g.items {
			if p.Category == "" {
				p.Category = g.category
			}
			if p.Category != g.category {
				return nil, fmt.Errorf("product %q: category %q listed under %q", p.ID, p.Category, g.category)
			}
			products = append(products, p)
		}
	}
	return products, nil
}

// LoadFile はカタログファイルを読み込み、検証済みの商品一覧を返す
// 対応形式は .json / .yaml / .yml
func LoadFile(path string) ([]domain.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var products []domain.Product
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		products, err = decodeJSON(data)
	case ".yaml", ".yml":
		products, err = decodeYAML(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", filepath.Base(path), err)
	}

	if err := Validate(products); err != nil {
		return nil, err
	}
	return products, nil
}

func decodeJSON(data []byte) ([]domain.Product, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmptyCatalog
	}

	if trimmed[0] == '[' {
		var products []domain.Product
		if err := json.Unmarshal(trimmed, &products); err != nil {
			return nil, err
		}
		return products, nil
	}

	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, err
	}
	return doc.flatten()
}

func decodeYAML(data []byte) ([]domain.Product, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return nil, ErrEmptyCatalog
	}

	node := root.Content[0]
	switch node.Kind {
	case yaml.SequenceNode:
		var products []domain.Product
		if err := node.Decode(&products); err != nil {
			return nil, err
		}
		return products, nil
	case yaml.MappingNode:
		var doc document
		if err := node.Decode(&doc); err != nil {
			return nil, err
		}
		return doc.flatten()
	default:
		return nil, fmt.Errorf("line %d: expected a list or a mapping of products", node.Line)
	}
}

// Validate は全商品を検証し、IDの重複を拒否する
func Validate(products []domain.Product) error {
	if len(products) == 0 {
		return ErrEmptyCatalog
	}

	seen := make(map[string]int, len(products))
	var errs []error
	for i, p := range products {
		if err := p.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("product #%d: %w", i+1, err))
			continue
		}
		if first, ok := seen[p.ID]; ok {
			errs = append(errs, fmt.Errorf("%w: %q (#%d and #%d)", ErrDuplicateProduct, p.ID, first+1, i+1))
			continue
		}
		seen[p.ID] = i
	}
	return errors.Join(errs...)
}

// FilterByCategory は指定カテゴリの商品だけを返す
// categories が空の場合はそのまま返す
func FilterByCategory(products []domain.Product, categories ...domain.Category) []domain.Product {
	if len(categories) == 0 {
		return products
	}

	want := make(map[domain.Category]bool, len(categories))
	for _, c := range categories {
		want[c] = true
	}

	var filtered []domain.Product
	for _, p := range products {
		if want[p.Category] {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// Limit は先頭 n 件を返す（n <= 0 の場合は全件）
func Limit(products []domain.Product, n int) []domain.Product {
	if n <= 0 || n >= len(products) {
		return products
	}
	return products[:n]
}

// ParseCategories はカンマ区切りのカテゴリ指定を解析する
func ParseCategories(s string) ([]domain.Category, error) {
	var categories []domain.Category
	for _, part := range strings.Split(s, ",") {
		c := domain.Category(strings.ToLower(strings.TrimSpace(part)))
		if c == "" {
			continue
		}
		if !c.Valid() {
			return nil, fmt.Errorf("unknown category %q", c)
		}
		categories = append(categories, c)
	}
	return categories, nil
}
