package application

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy はリトライ前の待機時間を返す
// attempt は1から始まるリトライ回数
type BackoffStrategy func(base time.Duration, attempt int) time.Duration

// LinearBackoff は base * attempt を返す
func LinearBackoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base * time.Duration(attempt)
}

// ExponentialBackoff は base * 2^(attempt-1) を limit で頭打ちにするストラテジーを返す
func ExponentialBackoff(limit time.Duration) BackoffStrategy {
	return func(base time.Duration, attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		d := time.Duration(math.Pow(2, float64(attempt-1))) * base
		if limit > 0 && (d > limit || d <= 0) {
			return limit
		}
		return d
	}
}

// WithJitter は元のストラテジーの結果に ±fraction の揺らぎを加える
func WithJitter(strategy BackoffStrategy, fraction float64) BackoffStrategy {
	return func(base time.Duration, attempt int) time.Duration {
		d := strategy(base, attempt)
		if fraction <= 0 || d <= 0 {
			return d
		}
		delta := (rand.Float64()*2 - 1) * fraction * float64(d)
		return time.Duration(float64(d) + delta)
	}
}

// sleepContext は d だけ待機する。context がキャンセルされた場合はそのエラーを返す
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
