package commands

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/jinford/travel-contentgen/internal/module/contentgen/domain"
	"github.com/jinford/travel-contentgen/internal/platform/config"
	"github.com/jinford/travel-contentgen/internal/platform/logger"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config *config.Config
	Logger *slog.Logger
}

// NewAppContext は設定ファイルを読み込み、ロガーを初期化して AppContext を作成する
func NewAppContext(envFile string) (*AppContext, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	appLogger := logger.New(logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})

	return &AppContext{
		Config: cfg,
		Logger: appLogger,
	}, nil
}

// EnvFlag は全コマンド共通の --env フラグ
func EnvFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}
}

// OutputDirFlag は出力ディレクトリの --output-dir フラグ
func OutputDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output-dir",
		Aliases: []string{"o"},
		Usage:   "出力ディレクトリ（省略時は CONTENTGEN_OUTPUT_DIR または generated-content）",
	}
}

// resolveOutputDir はフラグ > 設定値の順で出力ディレクトリを決める
func resolveOutputDir(cmd *cli.Command, cfg *config.Config) string {
	if dir := cmd.String("output-dir"); dir != "" {
		return dir
	}
	return cfg.Batch.OutputDir
}

// === ヘルパー関数 ===

// renderStatsTable は集計結果をテーブル形式で表示します
func renderStatsTable(w io.Writer, stats domain.ProductStats) {
	fmt.Fprintf(w, "\n=== 集計 ===\n\n")
	fmt.Fprintf(w, "Products:  %d\n", stats.TotalProducts)
	fmt.Fprintf(w, "Pages:     %d\n", stats.TotalPages)
	if stats.Attempted > 0 || stats.Skipped > 0 {
		fmt.Fprintf(w, "Attempted: %d\n", stats.Attempted)
		fmt.Fprintf(w, "Skipped:   %d\n", stats.Skipped)
	}
	if stats.Duration > 0 {
		fmt.Fprintf(w, "Duration:  %s\n", stats.Duration.Round(time.Millisecond))
	}
	fmt.Fprintln(w)

	statusTable := tablewriter.NewWriter(w)
	statusTable.Header("Status", "Count")
	for _, status := range domain.AllTaskStatuses() {
		statusTable.Append(string(status), fmt.Sprintf("%d", stats.ByStatus[status]))
	}
	statusTable.Render()

	if len(stats.ByLocale) > 0 {
		localeTable := tablewriter.NewWriter(w)
		localeTable.Header("Locale", "Pages")
		for _, locale := range sortedKeys(stats.ByLocale) {
			localeTable.Append(string(locale), fmt.Sprintf("%d", stats.ByLocale[locale]))
		}
		localeTable.Render()
	}

	if len(stats.ByCategory) > 0 {
		categoryTable := tablewriter.NewWriter(w)
		categoryTable.Header("Category", "Products")
		for _, category := range sortedKeys(stats.ByCategory) {
			categoryTable.Append(string(category), fmt.Sprintf("%d", stats.ByCategory[category]))
		}
		categoryTable.Render()
	}
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// truncateString は文字列を指定された長さに切り詰めます
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
