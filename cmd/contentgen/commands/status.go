package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/jinford/travel-contentgen/internal/module/contentgen/adapter/store"
	"github.com/jinford/travel-contentgen/internal/module/contentgen/application"
	"github.com/jinford/travel-contentgen/internal/module/contentgen/domain"
)

// StatusAction は進捗ファイルの集計を表示するコマンドのアクション
func StatusAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(cmd.String("env"))
	if err != nil {
		return err
	}

	return printStatus(os.Stdout, resolveOutputDir(cmd, appCtx.Config))
}

// loadTasks は出力ディレクトリの進捗ファイルを読み込む
func loadTasks(outputDir string) (map[string]*domain.Task, error) {
	progressStore := store.NewProgressStore(outputDir)
	tasks, err := progressStore.Load()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("進捗ファイルが見つかりません: %s", progressStore.Path())
		}
		return nil, fmt.Errorf("進捗ファイルの読み込みに失敗: %w", err)
	}
	return tasks, nil
}

// printStatus は進捗ファイルをステータス・ロケール・カテゴリ別に集計して表示する
func printStatus(w io.Writer, outputDir string) error {
	tasks, err := loadTasks(outputDir)
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		fmt.Fprintln(w, "タスクはありません")
		return nil
	}

	renderStatsTable(w, application.SummarizeTasks(tasks))
	return nil
}
