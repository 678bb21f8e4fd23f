package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/jinford/travel-contentgen/internal/module/contentgen/adapter/llm"
)

// EstimateAction はAPIを呼ばずに生成コストを見積もるコマンドのアクション
func EstimateAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(cmd.String("env"))
	if err != nil {
		return err
	}

	products, err := loadProducts(cmd.String("catalog"), cmd.String("category"), int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	locales, err := resolveLocales(cmd.String("locales"), appCtx.Config.Locales)
	if err != nil {
		return err
	}

	pricing, err := llm.LoadPricing(cmd.String("pricing"))
	if err != nil {
		return fmt.Errorf("価格表の読み込みに失敗: %w", err)
	}

	model := cmd.String("model")
	if model == "" {
		model = appCtx.Config.OpenAI.Model
	}

	var counter llm.Counter
	tokenCounter, err := llm.NewTokenCounter()
	if err != nil {
		slog.Warn("トークナイザを初期化できないため概算で見積もります", "error", err)
		counter = llm.ApproxCounter{}
	} else {
		counter = tokenCounter
	}

	estimate, err := llm.NewCostEstimator(pricing, counter).Estimate(model, products, locales)
	if err != nil {
		return fmt.Errorf("見積もりに失敗: %w", err)
	}

	renderEstimate(os.Stdout, estimate, len(products))
	return nil
}

// renderEstimate は見積もり結果を表示します
func renderEstimate(w io.Writer, estimate llm.CostEstimate, products int) {
	fmt.Fprintf(w, "\n=== コスト見積もり ===\n\n")
	fmt.Fprintf(w, "Model:           %s\n", estimate.Model)
	fmt.Fprintf(w, "Products:        %d\n", products)
	fmt.Fprintf(w, "Requests:        %d\n", estimate.Requests)
	fmt.Fprintf(w, "Prompt tokens:   %d\n", estimate.PromptTokens)
	fmt.Fprintf(w, "Response tokens: %d (%d / request)\n", estimate.ResponseTokens, llm.ExpectedResponseTokens)
	fmt.Fprintf(w, "Estimated cost:  $%.4f (input $%.4f + output $%.4f)\n\n",
		estimate.TotalCost(), estimate.InputCost, estimate.OutputCost)

	table := tablewriter.NewWriter(w)
	table.Header("Locale", "Prompt Tokens")
	for _, locale := range sortedKeys(estimate.ByLocale) {
		table.Append(string(locale), fmt.Sprintf("%d", estimate.ByLocale[locale]))
	}
	table.Render()
}
