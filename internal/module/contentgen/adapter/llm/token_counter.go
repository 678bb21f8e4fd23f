package llm

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Counter はテキストのトークン数を数える
type Counter interface {
	CountTokens(text string) int
}

// TokenCounter は tiktoken によるトークンカウンタ
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter は新しいTokenCounterを作成する
// cl100k_baseエンコーディングを使用する
func NewTokenCounter() (*TokenCounter, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}

	return &TokenCounter{
		encoding: encoding,
	}, nil
}

// CountTokens はテキストのトークン数をカウントする
func (tc *TokenCounter) CountTokens(text string) int {
	if tc.encoding == nil {
		return EstimateTokens(text)
	}
	return len(tc.encoding.Encode(text, nil, nil))
}

// ApproxCounter は文字数ベースの概算カウンタ
// エンコーディングを取得できない環境で使う
type ApproxCounter struct{}

// CountTokens は EstimateTokens を返す
func (ApproxCounter) CountTokens(text string) int {
	return EstimateTokens(text)
}

// EstimateTokens はテキストの推定トークン数を返す
// 平均的な値として3文字で1トークンとする
func EstimateTokens(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return (n + 2) / 3
}
