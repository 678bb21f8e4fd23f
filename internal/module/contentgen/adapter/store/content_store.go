package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jinford/travel-contentgen/internal/module/contentgen/domain"
)

// fallbackBucket は区切り文字を含まない、またはバケット名に使えないproductIDの格納先
const fallbackBucket = "misc"

// ContentStore は生成コンテンツを outputDir/<bucket>/<productId>-<locale>.json に保存する
type ContentStore struct {
	outputDir string
}

// NewContentStore は新しいContentStoreを作成する
func NewContentStore(outputDir string) *ContentStore {
	return &ContentStore{outputDir: outputDir}
}

// Bucket は productID の最初の '-' より前をカテゴリバケットとして返す
func Bucket(productID string) string {
	prefix, _, found := strings.Cut(productID, "-")
	// "." と ".." はディレクトリとして解決されると outputDir の外や直下を指す
	if !found || prefix == "" || prefix == "." || prefix == ".." {
		return fallbackBucket
	}
	return prefix
}

// Path は (productID, locale) に対応するファイルパスを返す
func (s *ContentStore) Path(productID string, locale domain.Locale) string {
	return filepath.Join(s.outputDir, Bucket(productID), domain.TaskKey(productID, locale)+".json")
}

// Save はコンテンツを書き出し、書き込んだパスを返す
// 同じ (productID, locale) は常に同じパスに上書きされる
func (s *ContentStore) Save(content *domain.GeneratedContent) (string, error) {
	if content == nil || content.ProductID == "" || content.Locale == "" {
		return "", fmt.Errorf("%w: productId and locale are required", domain.ErrInvalidContent)
	}

	path := s.Path(content.ProductID, content.Locale)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create bucket directory: %w", err)
	}

	if err := writeJSONAtomic(path, content); err != nil {
		return "", fmt.Errorf("failed to save content %s: %w", domain.TaskKey(content.ProductID, content.Locale), err)
	}

	return path, nil
}

// Load は保存済みのコンテンツを読み込む
func (s *ContentStore) Load(productID string, locale domain.Locale) (*domain.GeneratedContent, error) {
	data, err := os.ReadFile(s.Path(productID, locale))
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	var content domain.GeneratedContent
	if err := json.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("failed to parse content: %w", err)
	}
	return &content, nil
}
