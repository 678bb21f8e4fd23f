package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jinford/travel-contentgen/internal/module/contentgen/domain"
)

const (
	// DefaultConcurrency は同時に実行する生成呼び出しの上限
	DefaultConcurrency = 10
	// DefaultRetryAttempts は初回呼び出し以降のリトライ回数
	DefaultRetryAttempts = 3
	// DefaultRetryDelay は線形バックオフの基準時間
	DefaultRetryDelay = 5 * time.Second
	// DefaultCallTimeout は生成呼び出し1回あたりのタイムアウト
	DefaultCallTimeout = 2 * time.Minute
	// DefaultCheckpointInterval は進捗ファイルを書き出すタスク数の間隔
	DefaultCheckpointInterval = 10
	// DefaultOutputDir は出力先のルートディレクトリ
	DefaultOutputDir = "generated-content"
)

// ErrGenerationTimeout は生成呼び出しがタイムアウトした場合のエラー
var ErrGenerationTimeout = errors.New("generation call timed out")

// ProgressStore はタスクマップの永続化を抽象化する
type ProgressStore interface {
	Load() (map[string]*domain.Task, error)
	Save(tasks map[string]*domain.Task) error
}

// ContentStore は生成コンテンツの永続化を抽象化する
type ContentStore interface {
	Save(content *domain.GeneratedContent) (string, error)
}

// FailureRecord は生成呼び出し1回分の失敗記録
type FailureRecord struct {
	RunID     string
	TaskKey   string
	ProductID string
	Category  domain.Category
	Locale    domain.Locale
	// Attempt は1から始まる試行番号
	Attempt int
	// Final はこの失敗でタスクが failed になる場合に true
	Final    bool
	Err      error
	Duration time.Duration
}

// FailureRecorder は失敗記録の出力先
type FailureRecorder interface {
	RecordFailure(record FailureRecord) error
}

// Config はバッチ処理の設定
type Config struct {
	// OutputDir は進捗ファイルとコンテンツのルートディレクトリ
	OutputDir string
	// Concurrency は同時実行数の上限
	Concurrency int
	// RetryAttempts は初回以降のリトライ回数（0ならリトライしない）
	RetryAttempts int
	// RetryDelay はバックオフの基準時間
	RetryDelay time.Duration
	// CallTimeout は生成呼び出し1回のタイムアウト（0なら無効）
	CallTimeout time.Duration
	// CheckpointInterval は進捗ファイルを書き出すタスク数の間隔
	CheckpointInterval int
	// Backoff はリトライ前の待機時間を決める（nilなら LinearBackoff）
	Backoff BackoffStrategy
	// ProgressCallback はタスク終了ごとに呼ばれる（複数のワーカーから並行に呼ばれる）
	ProgressCallback func(progress BatchProgress)
	// FailureRecorder は失敗した試行の記録先（オプション）
	FailureRecorder FailureRecorder
	// Logger は構造化ロガー（nilなら slog.Default()）
	Logger *slog.Logger
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		OutputDir:          DefaultOutputDir,
		Concurrency:        DefaultConcurrency,
		RetryAttempts:      DefaultRetryAttempts,
		RetryDelay:         DefaultRetryDelay,
		CallTimeout:        DefaultCallTimeout,
		CheckpointInterval: DefaultCheckpointInterval,
		Backoff:            LinearBackoff,
	}
}

// BatchProcessor は 商品 × ロケール のマトリクスを並列・リトライ付きで処理する
type BatchProcessor struct {
	generator domain.Generator
	progress  ProgressStore
	contents  ContentStore
	config    Config
	logger    *slog.Logger
	registry  *TaskRegistry
	now       func() time.Time

	// callSlots はバックエンド呼び出しの同時実行数を Concurrency に制限する
	// タイムアウトで見捨てた呼び出しも戻るまで枠を占有する
	callSlots chan struct{}

	// flushMu は進捗ファイルへの書き込みを直列化する
	flushMu sync.Mutex

	finishedMu sync.Mutex
	finished   int
}

// NewBatchProcessor は新しいBatchProcessorを作成する
func NewBatchProcessor(generator domain.Generator, progress ProgressStore, contents ContentStore, config Config) *BatchProcessor {
	// デフォルト値の設定
	if config.OutputDir == "" {
		config.OutputDir = DefaultOutputDir
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	if config.RetryAttempts < 0 {
		config.RetryAttempts = 0
	}
	if config.RetryDelay < 0 {
		config.RetryDelay = 0
	}
	if config.CheckpointInterval <= 0 {
		config.CheckpointInterval = DefaultCheckpointInterval
	}
	if config.Backoff == nil {
		config.Backoff = LinearBackoff
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &BatchProcessor{
		generator: generator,
		progress:  progress,
		contents:  contents,
		config:    config,
		logger:    logger,
		registry:  NewTaskRegistry(),
		now:       time.Now,
		callSlots: make(chan struct{}, config.Concurrency),
	}
}

// Config は正規化済みの設定を返す
func (bp *BatchProcessor) Config() Config {
	return bp.config
}

// Tasks は現在のタスクマップのスナップショットを返す
func (bp *BatchProcessor) Tasks() map[string]*domain.Task {
	return bp.registry.Snapshot()
}

// Initialize は出力ディレクトリを作成し、前回の進捗を読み込む
// 進捗ファイルが存在しない・壊れている場合は空の状態から開始する
func (bp *BatchProcessor) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(bp.config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", bp.config.OutputDir, err)
	}

	tasks, err := bp.progress.Load()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			bp.logger.InfoContext(ctx, "no previous progress found, starting fresh")
		} else {
			bp.logger.WarnContext(ctx, "failed to load previous progress, starting fresh", "error", err)
		}
		bp.registry.Replace(nil)
		return nil
	}

	bp.registry.Replace(tasks)
	bp.logger.InfoContext(ctx, "loaded previous progress", "tasks", len(tasks))
	return nil
}

// workItem はワークリストの1要素
type workItem struct {
	key      string
	product  domain.Product
	locale   domain.Locale
	priority domain.Priority
}

// ProcessAllProducts は全ての (商品, ロケール) を処理し、集計結果を返す
// 個々のタスクの失敗は failed として記録され、バッチ全体は止まらない
// 出力ディレクトリの作成失敗と最終フラッシュの失敗のみエラーとして返す
// context がキャンセルされた場合は未着手のタスクを pending のまま残し、集計結果とともに context のエラーを返す
func (bp *BatchProcessor) ProcessAllProducts(ctx context.Context, products []domain.Product, locales []domain.Locale) (domain.ProductStats, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	logger := bp.logger.With("runID", runID)

	if err := bp.Initialize(ctx); err != nil {
		return domain.ProductStats{}, err
	}

	products = uniqueProducts(products)
	locales = uniqueLocales(locales)

	worklist, skipped := bp.buildWorklist(products, locales)
	logger.InfoContext(ctx, "starting batch",
		"products", len(products),
		"locales", len(locales),
		"queued", len(worklist),
		"skipped", skipped,
		"concurrency", bp.config.Concurrency,
	)

	tracker := NewProgressTracker(len(worklist))
	bp.finishedMu.Lock()
	bp.finished = 0
	bp.finishedMu.Unlock()

	// タスクの失敗で他のタスクを止めないため WithContext は使わない
	var g errgroup.Group
	g.SetLimit(bp.config.Concurrency)

	for _, item := range worklist {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			bp.runTask(ctx, logger, runID, item, tracker)
			return nil
		})
	}
	_ = g.Wait()

	flushErr := bp.flush()

	stats := ComputeStats(products, locales, bp.registry.Snapshot())
	stats.Attempted = len(worklist)
	stats.Skipped = skipped
	stats.Duration = time.Since(startTime)

	logger.InfoContext(ctx, "batch finished",
		"completed", stats.Completed(),
		"failed", stats.Failed(),
		"pending", stats.ByStatus[domain.TaskStatusPending],
		"duration", stats.Duration.Round(time.Millisecond).String(),
	)

	if flushErr != nil {
		return stats, fmt.Errorf("final progress flush failed: %w", flushErr)
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

// buildWorklist はマトリクスを展開し、完了済みを除いたワークリストを優先度順に返す
func (bp *BatchProcessor) buildWorklist(products []domain.Product, locales []domain.Locale) ([]workItem, int) {
	var (
		worklist []workItem
		skipped  int
	)

	for _, product := range products {
		for _, locale := range locales {
			key := domain.TaskKey(product.ID, locale)
			if existing, ok := bp.registry.Get(key); ok && existing.IsCompleted() {
				skipped++
				continue
			}

			task := domain.NewTask(product, locale, bp.now())
			bp.registry.Put(task)
			worklist = append(worklist, workItem{
				key:      key,
				product:  product,
				locale:   locale,
				priority: task.Priority,
			})
		}
	}

	sort.SliceStable(worklist, func(i, j int) bool {
		return worklist[i].priority.Rank() < worklist[j].priority.Rank()
	})

	return worklist, skipped
}

// uniqueProducts は同じIDの商品を最初の1件だけ残す
func uniqueProducts(products []domain.Product) []domain.Product {
	seen := make(map[string]bool, len(products))
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

func uniqueLocales(locales []domain.Locale) []domain.Locale {
	seen := make(map[domain.Locale]bool, len(locales))
	out := make([]domain.Locale, 0, len(locales))
	for _, l := range locales {
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

// runTask は1タスクを処理する
func (bp *BatchProcessor) runTask(ctx context.Context, logger *slog.Logger, runID string, item workItem, tracker *ProgressTracker) {
	// キャンセル後にスロットが空いた場合は着手しない
	if ctx.Err() != nil {
		return
	}

	bp.registry.Update(item.key, func(t *domain.Task) {
		t.Status = domain.TaskStatusProcessing
		t.UpdatedAt = bp.now()
	})

	content, err := bp.generateWithRetry(ctx, runID, item)
	if err == nil {
		if _, saveErr := bp.contents.Save(content); saveErr != nil {
			err = fmt.Errorf("failed to save content: %w", saveErr)
		}
	}

	if err != nil {
		bp.registry.Update(item.key, func(t *domain.Task) {
			t.Status = domain.TaskStatusFailed
			t.Error = err.Error()
			t.UpdatedAt = bp.now()
		})
		logger.WarnContext(ctx, "task failed", "task", item.key, "error", err)
	} else {
		bp.registry.Update(item.key, func(t *domain.Task) {
			t.Status = domain.TaskStatusCompleted
			t.Error = ""
			t.UpdatedAt = bp.now()
		})
		logger.DebugContext(ctx, "task completed", "task", item.key)
	}

	progress := tracker.OnComplete(err == nil)
	bp.checkpoint(ctx, logger)

	if bp.config.ProgressCallback != nil {
		bp.config.ProgressCallback(progress)
	}
}

// generateWithRetry は最大 RetryAttempts+1 回生成を試みる
// リトライ前に Backoff(RetryDelay, attempt) だけ待機し、タスクの retries を加算する
func (bp *BatchProcessor) generateWithRetry(ctx context.Context, runID string, item workItem) (*domain.GeneratedContent, error) {
	maxAttempts := bp.config.RetryAttempts + 1
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := bp.config.Backoff(bp.config.RetryDelay, attempt)
			if err := sleepContext(ctx, delay); err != nil {
				return nil, fmt.Errorf("retry wait interrupted: %w (last error: %v)", err, lastErr)
			}
		}

		callStart := time.Now()
		content, err := bp.callGenerator(ctx, item)
		if err == nil {
			return content, nil
		}
		lastErr = err

		willRetry := attempt+1 < maxAttempts && ctx.Err() == nil
		bp.recordFailure(FailureRecord{
			RunID:     runID,
			TaskKey:   item.key,
			ProductID: item.product.ID,
			Category:  item.product.Category,
			Locale:    item.locale,
			Attempt:   attempt + 1,
			Final:     !willRetry,
			Err:       err,
			Duration:  time.Since(callStart),
		})

		if !willRetry {
			break
		}

		// 中断されてもリトライ回数が残るよう即座に反映する
		bp.registry.Update(item.key, func(t *domain.Task) {
			t.Retries++
			t.UpdatedAt = bp.now()
		})
	}

	return nil, lastErr
}

type generateResult struct {
	content *domain.GeneratedContent
	err     error
}

// callGenerator はタイムアウト付きで生成バックエンドを1回呼び出す
// バックエンドが context を無視して戻らない場合もタイムアウトで打ち切るが、
// その呼び出しが戻るまで次の呼び出しは枠の空きを待つ
func (bp *BatchProcessor) callGenerator(ctx context.Context, item workItem) (*domain.GeneratedContent, error) {
	select {
	case bp.callSlots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	callCtx := ctx
	if bp.config.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, bp.config.CallTimeout)
		defer cancel()
	}

	done := make(chan generateResult, 1)
	go func() {
		defer func() { <-bp.callSlots }()
		content, err := bp.generator.Generate(callCtx, item.product, item.locale)
		done <- generateResult{content: content, err: err}
	}()

	var res generateResult
	select {
	case res = <-done:
	case <-callCtx.Done():
		res = generateResult{err: callCtx.Err()}
	}

	if res.err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %v", ErrGenerationTimeout, bp.config.CallTimeout, res.err)
		}
		return nil, res.err
	}

	content := res.content
	if content == nil {
		return nil, fmt.Errorf("%w: generator returned no content", domain.ErrInvalidContent)
	}
	content.ProductID = item.product.ID
	content.Locale = item.locale
	if content.GeneratedAt.IsZero() {
		content.GeneratedAt = bp.now()
	}
	if err := content.Validate(); err != nil {
		return nil, err
	}

	return content, nil
}

func (bp *BatchProcessor) recordFailure(record FailureRecord) {
	if bp.config.FailureRecorder == nil {
		return
	}
	if err := bp.config.FailureRecorder.RecordFailure(record); err != nil {
		bp.logger.Warn("failed to record generation failure", "task", record.TaskKey, "error", err)
	}
}

// checkpoint は CheckpointInterval 件ごとに進捗ファイルを書き出す
// 途中のチェックポイントの失敗は警告のみとする
func (bp *BatchProcessor) checkpoint(ctx context.Context, logger *slog.Logger) {
	bp.finishedMu.Lock()
	bp.finished++
	due := bp.finished%bp.config.CheckpointInterval == 0
	finished := bp.finished
	bp.finishedMu.Unlock()

	if !due {
		return
	}

	if err := bp.flush(); err != nil {
		logger.WarnContext(ctx, "checkpoint failed", "finished", finished, "error", err)
		return
	}
	logger.DebugContext(ctx, "checkpoint saved", "finished", finished)
}

// flush はタスクマップのスナップショットを進捗ファイルに書き出す
func (bp *BatchProcessor) flush() error {
	bp.flushMu.Lock()
	defer bp.flushMu.Unlock()
	return bp.progress.Save(bp.registry.Snapshot())
}
