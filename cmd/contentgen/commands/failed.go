package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/jinford/travel-contentgen/internal/module/contentgen/domain"
)

// FailedAction は失敗したタスクの一覧を表示するコマンドのアクション
func FailedAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(cmd.String("env"))
	if err != nil {
		return err
	}

	return printFailed(os.Stdout, resolveOutputDir(cmd, appCtx.Config), int(cmd.Int("limit")))
}

// printFailed は failed のタスクをキー順に表示する（limit <= 0 は全件）
func printFailed(w io.Writer, outputDir string, limit int) error {
	tasks, err := loadTasks(outputDir)
	if err != nil {
		return err
	}

	var failed []*domain.Task
	for _, task := range tasks {
		if task.Status == domain.TaskStatusFailed {
			failed = append(failed, task)
		}
	}

	if len(failed) == 0 {
		fmt.Fprintln(w, "失敗したタスクはありません")
		return nil
	}

	sort.Slice(failed, func(i, j int) bool { return failed[i].Key() < failed[j].Key() })
	total := len(failed)
	if limit > 0 && limit < total {
		failed = failed[:limit]
	}

	table := tablewriter.NewWriter(w)
	table.Header("Task", "Category", "Retries", "Updated At", "Error")
	for _, task := range failed {
		table.Append(
			task.Key(),
			string(task.ProductCategory),
			fmt.Sprintf("%d", task.Retries),
			task.UpdatedAt.Format(time.DateTime),
			truncateString(task.Error, 80),
		)
	}
	table.Render()

	fmt.Fprintf(w, "\n%d / %d 件を表示しました\n", len(failed), total)
	return nil
}
