package application

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// BatchProgress はバッチ処理の進捗状況
type BatchProgress struct {
	// Total はワークリストのタスク数
	Total int
	// Completed は終了したタスク数（成功・失敗の両方）
	Completed int
	// Failed は失敗したタスク数
	Failed int
	// ElapsedTime は経過時間
	ElapsedTime time.Duration
	// EstimatedTimeRemaining は推定残り時間
	EstimatedTimeRemaining time.Duration
}

// String はプログレスを文字列表現で返す
func (p BatchProgress) String() string {
	percentage := 0.0
	if p.Total > 0 {
		percentage = float64(p.Completed) / float64(p.Total) * 100
	}

	eta := "N/A"
	if p.EstimatedTimeRemaining > 0 {
		eta = p.EstimatedTimeRemaining.Round(time.Second).String()
	}

	return fmt.Sprintf(
		"Progress: %d/%d (%.1f%%) | Failed: %d | Elapsed: %s | ETA: %s",
		p.Completed,
		p.Total,
		percentage,
		p.Failed,
		p.ElapsedTime.Round(time.Second),
		eta,
	)
}

// ProgressTracker はバッチ処理の進捗を追跡する
type ProgressTracker struct {
	mu        sync.Mutex
	startTime time.Time
	total     int
	completed int
	failed    int
}

// NewProgressTracker は新しいProgressTrackerを作成する
func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{
		startTime: time.Now(),
		total:     total,
	}
}

// OnComplete はタスク終了時に呼ばれ、更新後の進捗を返す
func (pt *ProgressTracker) OnComplete(success bool) BatchProgress {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	pt.completed++
	if !success {
		pt.failed++
	}
	return pt.progressLocked()
}

// Progress は現在の進捗状況を返す
func (pt *ProgressTracker) Progress() BatchProgress {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.progressLocked()
}

func (pt *ProgressTracker) progressLocked() BatchProgress {
	elapsed := time.Since(pt.startTime)
	var eta time.Duration

	if pt.completed > 0 {
		avg := elapsed / time.Duration(pt.completed)
		eta = avg * time.Duration(pt.total-pt.completed)
	}

	return BatchProgress{
		Total:                  pt.total,
		Completed:              pt.completed,
		Failed:                 pt.failed,
		ElapsedTime:            elapsed,
		EstimatedTimeRemaining: eta,
	}
}

// ProgressLogger は進捗を一定間隔でログに出力する
type ProgressLogger struct {
	mu          sync.Mutex
	logger      *slog.Logger
	interval    time.Duration
	lastLogTime time.Time
}

// NewProgressLogger は新しいProgressLoggerを作成する
func NewProgressLogger(logger *slog.Logger, interval time.Duration) *ProgressLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressLogger{
		logger:   logger,
		interval: interval,
	}
}

// LogProgress は進捗をログに出力する
// interval 内の呼び出しは最終進捗を除いて読み捨てる
func (pl *ProgressLogger) LogProgress(progress BatchProgress) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	now := time.Now()
	if !pl.lastLogTime.IsZero() && now.Sub(pl.lastLogTime) < pl.interval && progress.Completed != progress.Total {
		return
	}
	pl.lastLogTime = now

	successRate := 0.0
	if progress.Completed > 0 {
		successRate = float64(progress.Completed-progress.Failed) / float64(progress.Completed) * 100
	}

	pl.logger.Info("batch progress",
		"completed", progress.Completed,
		"total", progress.Total,
		"failed", progress.Failed,
		"successRate", fmt.Sprintf("%.1f%%", successRate),
		"elapsed", progress.ElapsedTime.Round(time.Second).String(),
		"eta", progress.EstimatedTimeRemaining.Round(time.Second).String(),
	)
}

// ProgressBar はシンプルなプログレスバーを表示する
type ProgressBar struct {
	mu      sync.Mutex
	out     io.Writer
	width   int
	prefix  string
	lastBar string
}

// NewProgressBar は新しいProgressBarを作成する
func NewProgressBar(out io.Writer, width int, prefix string) *ProgressBar {
	return &ProgressBar{
		out:    out,
		width:  width,
		prefix: prefix,
	}
}

// Update はプログレスバーを更新する
func (pb *ProgressBar) Update(progress BatchProgress) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	percentage := 0.0
	if progress.Total > 0 {
		percentage = float64(progress.Completed) / float64(progress.Total)
	}

	filled := min(int(float64(pb.width)*percentage), pb.width)

	var b strings.Builder
	b.WriteString(pb.prefix)
	b.WriteString(" [")
	for i := 0; i < pb.width; i++ {
		switch {
		case i < filled:
			b.WriteByte('=')
		case i == filled:
			b.WriteByte('>')
		default:
			b.WriteByte(' ')
		}
	}
	fmt.Fprintf(&b, "] %d/%d (%.1f%%) failed=%d", progress.Completed, progress.Total, percentage*100, progress.Failed)
	bar := b.String()

	if bar != pb.lastBar {
		fmt.Fprintf(pb.out, "\r%s", bar)
		pb.lastBar = bar
	}

	if progress.Completed >= progress.Total {
		fmt.Fprintln(pb.out)
	}
}
