package application

import (
	"github.com/jinford/travel-contentgen/internal/module/contentgen/domain"
)

// ComputeStats は 商品 × ロケール の全組み合わせについてタスクマップを走査し集計する
// 前回以前の実行で完了済みのタスクも含めて数える
// マップに存在しない組み合わせは pending として数える
func ComputeStats(products []domain.Product, locales []domain.Locale, tasks map[string]*domain.Task) domain.ProductStats {
	stats := domain.ProductStats{
		TotalProducts: len(products),
		TotalPages:    len(products) * len(locales),
		ByCategory:    make(map[domain.Category]int),
		ByStatus:      make(map[domain.TaskStatus]int),
		ByLocale:      make(map[domain.Locale]int),
	}

	for _, status := range domain.AllTaskStatuses() {
		stats.ByStatus[status] = 0
	}

	for _, p := range products {
		stats.ByCategory[p.Category]++
	}

	for _, locale := range locales {
		stats.ByLocale[locale] += len(products)
	}

	for _, p := range products {
		for _, locale := range locales {
			task, ok := tasks[domain.TaskKey(p.ID, locale)]
			if !ok {
				stats.ByStatus[domain.TaskStatusPending]++
				continue
			}
			stats.ByStatus[task.Status]++
		}
	}

	return stats
}

// SummarizeTasks は進捗ファイルのタスクマップだけから集計する（status コマンド用）
func SummarizeTasks(tasks map[string]*domain.Task) domain.ProductStats {
	stats := domain.ProductStats{
		TotalPages: len(tasks),
		ByCategory: make(map[domain.Category]int),
		ByStatus:   make(map[domain.TaskStatus]int),
		ByLocale:   make(map[domain.Locale]int),
	}

	for _, status := range domain.AllTaskStatuses() {
		stats.ByStatus[status] = 0
	}

	products := make(map[string]bool)
	for _, task := range tasks {
		stats.ByStatus[task.Status]++
		stats.ByLocale[task.Locale]++
		if !products[task.ProductID] {
			products[task.ProductID] = true
			stats.ByCategory[task.ProductCategory]++
		}
	}
	stats.TotalProducts = len(products)

	return stats
}
