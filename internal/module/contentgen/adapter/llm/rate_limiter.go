package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jinford/travel-contentgen/internal/module/contentgen/domain"
)

// RateLimiter は生成APIへのリクエストレートを管理する
// 1ウィンドウ（既定1分）ごとに maxRequests 個のトークンを補充するトークンバケット
type RateLimiter struct {
	mu sync.Mutex

	maxRequests int
	window      time.Duration

	tokens     int
	lastRefill time.Time
	waitQueue  int
	active     int

	// pollInterval はトークン枯渇時の再確認間隔
	pollInterval time.Duration
}

// NewRateLimiter は1分あたり maxRequestsPerMinute 回までのRateLimiterを作成する
func NewRateLimiter(maxRequestsPerMinute int) *RateLimiter {
	return newRateLimiter(maxRequestsPerMinute, time.Minute, time.Second)
}

func newRateLimiter(maxRequests int, window, poll time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests:  maxRequests,
		window:       window,
		tokens:       maxRequests,
		lastRefill:   time.Now(),
		pollInterval: poll,
	}
}

// Wait はトークンを取得できるまで待機する
// contextがキャンセルされた場合はエラーを返す
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for {
		rl.refillTokens()

		if rl.tokens > 0 {
			rl.tokens--
			rl.active++
			return nil
		}

		rl.waitQueue++
		rl.mu.Unlock()

		timer := time.NewTimer(rl.pollInterval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			rl.mu.Lock()
			rl.waitQueue--
			return ctx.Err()
		}

		rl.mu.Lock()
		rl.waitQueue--
	}
}

// Release は実行中カウントを戻す
// Wait() が成功した後に必ず呼ぶこと
func (rl *RateLimiter) Release() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.active > 0 {
		rl.active--
	}
}

// refillTokens はトークンを補充する
// 呼び出し側でロックを取得していること
func (rl *RateLimiter) refillTokens() {
	elapsed := time.Since(rl.lastRefill)
	if elapsed < rl.window {
		return
	}

	windows := int(elapsed / rl.window)
	rl.tokens = min(rl.tokens+windows*rl.maxRequests, rl.maxRequests)
	rl.lastRefill = rl.lastRefill.Add(time.Duration(windows) * rl.window)
}

// GetStatus は現在の状態を返す
func (rl *RateLimiter) GetStatus() RateLimiterStatus {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillTokens()

	return RateLimiterStatus{
		MaxRequestsPerMinute: rl.maxRequests,
		AvailableTokens:      rl.tokens,
		WaitingRequests:      rl.waitQueue,
		ActiveRequests:       rl.active,
	}
}

// RateLimiterStatus はレート制限の状態
type RateLimiterStatus struct {
	MaxRequestsPerMinute int
	AvailableTokens      int
	WaitingRequests      int
	ActiveRequests       int
}

// String はステータスを文字列表現で返す
func (s RateLimiterStatus) String() string {
	return fmt.Sprintf(
		"RateLimiter: max=%d/min, available=%d, waiting=%d, active=%d",
		s.MaxRequestsPerMinute,
		s.AvailableTokens,
		s.WaitingRequests,
		s.ActiveRequests,
	)
}

// ThrottledGenerator はレート制限付きの domain.Generator
type ThrottledGenerator struct {
	generator   domain.Generator
	rateLimiter *RateLimiter
}

// NewThrottledGenerator はレート制限付きのGeneratorを作成する
// maxRequestsPerMinute が0以下の場合はレート制限をかけずにそのまま返す
func NewThrottledGenerator(generator domain.Generator, maxRequestsPerMinute int) domain.Generator {
	if maxRequestsPerMinute <= 0 {
		return generator
	}
	return &ThrottledGenerator{
		generator:   generator,
		rateLimiter: NewRateLimiter(maxRequestsPerMinute),
	}
}

// Generate はレート制限に従って生成を呼び出す
func (tg *ThrottledGenerator) Generate(ctx context.Context, product domain.Product, locale domain.Locale) (*domain.GeneratedContent, error) {
	if err := tg.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}
	defer tg.rateLimiter.Release()

	return tg.generator.Generate(ctx, product, locale)
}

// GetRateLimiterStatus はレート制限の状態を返す
func (tg *ThrottledGenerator) GetRateLimiterStatus() RateLimiterStatus {
	return tg.rateLimiter.GetStatus()
}
