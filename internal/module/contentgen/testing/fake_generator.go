package testing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jinford/travel-contentgen/internal/module/contentgen/domain"
)

// FakeGenerator はテスト用のdomain.Generator実装です
// 呼び出し回数と同時実行数の最大値を記録します
type FakeGenerator struct {
	// Delay は1回の呼び出しにかかる時間
	Delay time.Duration
	// FailFunc が非nilのエラーを返した場合、その呼び出しは失敗する
	// attempt はその (商品, ロケール) に対する1から始まる呼び出し回数
	FailFunc func(product domain.Product, locale domain.Locale, attempt int) error
	// OnCall は呼び出しごとに（生成前に）呼ばれる。callNo は全体の1から始まる通し番号
	OnCall func(callNo int, product domain.Product, locale domain.Locale)
	// IgnoreContext が true の場合、Delay 中に context のキャンセルを無視する
	IgnoreContext bool

	mu          sync.Mutex
	calls       map[string]int
	order       []string
	totalCalls  int
	inFlight    int
	maxInFlight int
}

// NewFakeGenerator は常に成功するFakeGeneratorを作成します
func NewFakeGenerator() *FakeGenerator {
	return &FakeGenerator{calls: make(map[string]int)}
}

// Generate はダミーのコンテンツを返します
func (f *FakeGenerator) Generate(ctx context.Context, product domain.Product, locale domain.Locale) (*domain.GeneratedContent, error) {
	key := domain.TaskKey(product.ID, locale)

	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[key]++
	attempt := f.calls[key]
	f.totalCalls++
	callNo := f.totalCalls
	f.order = append(f.order, key)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.OnCall != nil {
		f.OnCall(callNo, product, locale)
	}

	if f.Delay > 0 {
		if f.IgnoreContext {
			time.Sleep(f.Delay)
		} else {
			select {
			case <-time.After(f.Delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	if f.FailFunc != nil {
		if err := f.FailFunc(product, locale, attempt); err != nil {
			return nil, err
		}
	}

	return &domain.GeneratedContent{
		ProductID:       product.ID,
		Locale:          locale,
		Title:           fmt.Sprintf("%s (%s)", product.Name, locale),
		Description:     fmt.Sprintf("Description of %s", product.Name),
		LongDescription: fmt.Sprintf("Long description of %s", product.Name),
		Highlights:      []string{"highlight"},
		Reviews:         []domain.Review{{Author: "Tester", Rating: 5, Text: "Great"}},
		SEO: domain.SEO{
			MetaTitle:       product.Name,
			MetaDescription: product.Description,
			Keywords:        []string{string(product.Category)},
		},
	}, nil
}

// Calls は (商品, ロケール) に対する呼び出し回数を返します
func (f *FakeGenerator) Calls(productID string, locale domain.Locale) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[domain.TaskKey(productID, locale)]
}

// TotalCalls は全呼び出し回数を返します
func (f *FakeGenerator) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.totalCalls
}

// CallOrder は呼び出されたタスクキーを呼び出し順に返します
func (f *FakeGenerator) CallOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

// MaxInFlight は同時実行数の最大値を返します
func (f *FakeGenerator) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

// FailProducts は指定した商品IDを常に失敗させるFailFuncを返します
func FailProducts(err error, productIDs ...string) func(domain.Product, domain.Locale, int) error {
	ids := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		ids[id] = true
	}
	return func(p domain.Product, _ domain.Locale, _ int) error {
		if ids[p.ID] {
			return err
		}
		return nil
	}
}

// FailKeys は指定したタスクキーを常に失敗させるFailFuncを返します
func FailKeys(err error, keys ...string) func(domain.Product, domain.Locale, int) error {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return func(p domain.Product, l domain.Locale, _ int) error {
		if set[domain.TaskKey(p.ID, l)] {
			return err
		}
		return nil
	}
}

// MemoryFailureRecorder は失敗記録をメモリに保持します
type MemoryFailureRecorder[T any] struct {
	mu      sync.Mutex
	records []T
}

// RecordFailure は記録を追加します
func (r *MemoryFailureRecorder[T]) RecordFailure(record T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

// Records は記録のコピーを返します
func (r *MemoryFailureRecorder[T]) Records() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.records...)
}
