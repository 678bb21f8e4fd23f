package domain

import (
	"context"
	"errors"
)

// Generator は (商品, ロケール) からコンテンツを生成するバックエンドを抽象化するインターフェース
type Generator interface {
	// Generate はコンテンツを生成する。失敗時はエラーを返す
	Generate(ctx context.Context, product Product, locale Locale) (*GeneratedContent, error)
}

var (
	// ErrInvalidProduct は商品データが不正な場合のエラー
	ErrInvalidProduct = errors.New("invalid product")

	// ErrUnsupportedLocale はサポート外のロケールが指定された場合のエラー
	ErrUnsupportedLocale = errors.New("unsupported locale")

	// ErrInvalidContent は生成結果が不正な場合のエラー
	ErrInvalidContent = errors.New("invalid generated content")
)
