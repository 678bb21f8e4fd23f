package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/jinford/travel-contentgen/internal/module/contentgen/adapter/catalog"
	"github.com/jinford/travel-contentgen/internal/module/contentgen/adapter/llm"
	"github.com/jinford/travel-contentgen/internal/module/contentgen/adapter/store"
	"github.com/jinford/travel-contentgen/internal/module/contentgen/application"
	"github.com/jinford/travel-contentgen/internal/module/contentgen/domain"
	"github.com/jinford/travel-contentgen/internal/platform/config"
)

// progressLogInterval は進捗ログの出力間隔
const progressLogInterval = 10 * time.Second

// GenerateFlags は generate コマンドのフラグ
func GenerateFlags() []cli.Flag {
	return []cli.Flag{
		EnvFlag(),
		&cli.StringFlag{
			Name:     "catalog",
			Aliases:  []string{"c"},
			Usage:    "商品カタログファイル（.json / .yaml）",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "locales",
			Usage: "生成対象ロケール（カンマ区切り、省略時は CONTENTGEN_LOCALES または全ロケール）",
		},
		&cli.StringFlag{
			Name:  "category",
			Usage: "対象カテゴリ（カンマ区切り、省略時は全カテゴリ）",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "処理する商品数の上限（0は無制限）",
		},
		OutputDirFlag(),
		&cli.IntFlag{
			Name:  "concurrency",
			Usage: "同時実行数",
		},
		&cli.IntFlag{
			Name:  "retry-attempts",
			Usage: "リトライ回数（0でリトライなし）",
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "リトライ間隔の基準時間（例: 5s）",
		},
		&cli.DurationFlag{
			Name:  "call-timeout",
			Usage: "生成呼び出し1回のタイムアウト（0で無効）",
		},
		&cli.IntFlag{
			Name:  "rpm",
			Usage: "1分あたりの最大リクエスト数（0で無制限）",
		},
		&cli.StringFlag{
			Name:  "error-log-dir",
			Usage: "失敗した呼び出しのJSONLログ出力先（省略時は出力しない）",
		},
		&cli.BoolFlag{
			Name:  "no-progress",
			Usage: "プログレスバーを表示しない",
		},
	}
}

// GenerateAction は商品コンテンツを一括生成するコマンドのアクション
func GenerateAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(cmd.String("env"))
	if err != nil {
		return err
	}
	cfg := appCtx.Config
	applyGenerateFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("設定が不正です: %w", err)
	}

	products, err := loadProducts(cmd.String("catalog"), cmd.String("category"), int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	locales, err := resolveLocales(cmd.String("locales"), cfg.Locales)
	if err != nil {
		return err
	}

	slog.Info("コンテンツ生成を開始",
		"catalog", cmd.String("catalog"),
		"products", len(products),
		"locales", len(locales),
		"outputDir", cfg.Batch.OutputDir,
		"model", cfg.OpenAI.Model,
	)

	openaiGen, err := llm.NewOpenAIGenerator(llm.GeneratorConfig{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
		SiteURL:     cfg.SiteURL,
		MaxRetries:  llm.DefaultSDKMaxRetries,
		Logger:      appCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("生成クライアントの初期化に失敗: %w", err)
	}
	generator := llm.NewThrottledGenerator(openaiGen, cfg.Batch.RequestsPerMinute)

	errorLog, err := llm.NewErrorLog(cfg.Batch.ErrorLogDir, appCtx.Logger)
	if err != nil {
		return fmt.Errorf("エラーログの初期化に失敗: %w", err)
	}
	defer errorLog.Close()

	showBar := !cmd.Bool("no-progress") && term.IsTerminal(int(os.Stderr.Fd()))

	stats, runErr := executeGeneration(ctx, generationParams{
		Batch:       cfg.Batch,
		Products:    products,
		Locales:     locales,
		Generator:   generator,
		Recorder:    errorLog,
		Logger:      appCtx.Logger,
		ProgressOut: progressWriter(showBar),
	})

	renderStatsTable(os.Stdout, stats)
	usage := openaiGen.Usage()
	fmt.Printf("\nAPI requests: %d, tokens: %d (prompt %d / completion %d)\n",
		usage.Requests, usage.TotalTokens, usage.PromptTokens, usage.CompletionTokens)
	if path := errorLog.Path(); path != "" && stats.HasFailures() {
		fmt.Printf("Error log: %s\n", path)
	}

	return generationResult(stats, runErr)
}

// generationParams は executeGeneration の入力
type generationParams struct {
	Batch     config.BatchConfig
	Products  []domain.Product
	Locales   []domain.Locale
	Generator domain.Generator
	Recorder  application.FailureRecorder
	Logger    *slog.Logger
	// ProgressOut が非nilの場合はプログレスバーを表示し、nilの場合は進捗をログに出力する
	ProgressOut io.Writer
}

// executeGeneration はバッチ処理を組み立てて実行する
func executeGeneration(ctx context.Context, p generationParams) (domain.ProductStats, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var onProgress func(application.BatchProgress)
	if p.ProgressOut != nil {
		bar := application.NewProgressBar(p.ProgressOut, 40, "Generating")
		onProgress = bar.Update
	} else {
		progressLogger := application.NewProgressLogger(logger, progressLogInterval)
		onProgress = progressLogger.LogProgress
	}

	processor := application.NewBatchProcessor(
		p.Generator,
		store.NewProgressStore(p.Batch.OutputDir),
		store.NewContentStore(p.Batch.OutputDir),
		application.Config{
			OutputDir:        p.Batch.OutputDir,
			Concurrency:      p.Batch.Concurrency,
			RetryAttempts:    p.Batch.RetryAttempts,
			RetryDelay:       p.Batch.RetryDelay,
			CallTimeout:      p.Batch.CallTimeout,
			Backoff:          application.WithJitter(application.LinearBackoff, 0.1),
			ProgressCallback: onProgress,
			FailureRecorder:  p.Recorder,
			Logger:           logger,
		},
	)

	return processor.ProcessAllProducts(ctx, p.Products, p.Locales)
}

// generationResult は実行結果を終了コードに変換する
// 1件でも failed が残った場合は非ゼロで終了する
func generationResult(stats domain.ProductStats, runErr error) error {
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			slog.Warn("コンテンツ生成が中断されました。再実行すると未完了のタスクから再開します",
				"completed", stats.Completed(),
				"pending", stats.ByStatus[domain.TaskStatusPending],
			)
			return cli.Exit("処理が中断されました", 130)
		}
		slog.Error("コンテンツ生成に失敗しました", "error", runErr)
		return fmt.Errorf("コンテンツ生成に失敗: %w", runErr)
	}

	if stats.HasFailures() {
		slog.Warn("失敗したタスクがあります", "failed", stats.Failed())
		return cli.Exit(fmt.Sprintf("%d件のタスクが失敗しました（contentgen failed で詳細を確認できます）", stats.Failed()), 1)
	}

	slog.Info("コンテンツ生成が完了しました", "completed", stats.Completed())
	return nil
}

// applyGenerateFlags は指定されたフラグで設定値を上書きする
func applyGenerateFlags(cmd *cli.Command, cfg *config.Config) {
	if dir := cmd.String("output-dir"); dir != "" {
		cfg.Batch.OutputDir = dir
	}
	if cmd.IsSet("concurrency") {
		cfg.Batch.Concurrency = int(cmd.Int("concurrency"))
	}
	if cmd.IsSet("retry-attempts") {
		cfg.Batch.RetryAttempts = int(cmd.Int("retry-attempts"))
	}
	if cmd.IsSet("retry-delay") {
		cfg.Batch.RetryDelay = cmd.Duration("retry-delay")
	}
	if cmd.IsSet("call-timeout") {
		cfg.Batch.CallTimeout = cmd.Duration("call-timeout")
	}
	if cmd.IsSet("rpm") {
		cfg.Batch.RequestsPerMinute = int(cmd.Int("rpm"))
	}
	if dir := cmd.String("error-log-dir"); dir != "" {
		cfg.Batch.ErrorLogDir = dir
	}
}

// loadProducts はカタログを読み込み、カテゴリと件数で絞り込む
func loadProducts(path, categories string, limit int) ([]domain.Product, error) {
	products, err := catalog.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("カタログの読み込みに失敗: %w", err)
	}

	filter, err := catalog.ParseCategories(categories)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ指定が不正です: %w", err)
	}

	products = catalog.Limit(catalog.FilterByCategory(products, filter...), limit)
	if len(products) == 0 {
		return nil, errors.New("対象の商品がありません")
	}
	return products, nil
}

// resolveLocales はフラグ > 設定値の順でロケールを決める
func resolveLocales(flagValue, configValue string) ([]domain.Locale, error) {
	value := flagValue
	if value == "" {
		value = configValue
	}
	locales, err := domain.ParseLocales(value)
	if err != nil {
		return nil, fmt.Errorf("ロケール指定が不正です: %w", err)
	}
	return locales, nil
}

func progressWriter(showBar bool) io.Writer {
	if showBar {
		return os.Stderr
	}
	return nil
}
