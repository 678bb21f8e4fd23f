package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/jinford/travel-contentgen/cmd/contentgen/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "contentgen",
		Usage: "旅行商品カタログの多言語コンテンツ一括生成ツール",
		Commands: []*cli.Command{
			{
				Name:   "generate",
				Usage:  "商品 × ロケールのコンテンツを一括生成（中断した場合は再実行で再開）",
				Flags:  commands.GenerateFlags(),
				Action: commands.GenerateAction,
			},
			{
				Name:  "status",
				Usage: "進捗ファイルの集計を表示",
				Flags: []cli.Flag{
					commands.EnvFlag(),
					commands.OutputDirFlag(),
				},
				Action: commands.StatusAction,
			},
			{
				Name:  "failed",
				Usage: "失敗したタスクの一覧を表示",
				Flags: []cli.Flag{
					commands.EnvFlag(),
					commands.OutputDirFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "表示件数の上限（0は全件）",
						Value: 50,
					},
				},
				Action: commands.FailedAction,
			},
			{
				Name:  "estimate",
				Usage: "APIを呼ばずに生成コストを見積もる",
				Flags: []cli.Flag{
					commands.EnvFlag(),
					&cli.StringFlag{
						Name:     "catalog",
						Aliases:  []string{"c"},
						Usage:    "商品カタログファイル（.json / .yaml）",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "locales",
						Usage: "対象ロケール（カンマ区切り、省略時は全ロケール）",
					},
					&cli.StringFlag{
						Name:  "category",
						Usage: "対象カテゴリ（カンマ区切り）",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "商品数の上限（0は無制限）",
					},
					&cli.StringFlag{
						Name:  "model",
						Usage: "見積もり対象のモデル（省略時は CONTENTGEN_MODEL）",
					},
					&cli.StringFlag{
						Name:  "pricing",
						Usage: "価格表YAML（省略時は組み込みの価格表）",
					},
				},
				Action: commands.EstimateAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
