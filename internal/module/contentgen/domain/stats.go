package domain

import "time"

// ProductStats は1回の実行結果の集計値
type ProductStats struct {
	TotalProducts int                `json:"totalProducts"`
	TotalPages    int                `json:"totalPages"`
	ByCategory    map[Category]int   `json:"byCategory"`
	ByStatus      map[TaskStatus]int `json:"byStatus"`
	ByLocale      map[Locale]int     `json:"byLocale"`

	// Attempted は今回の実行でワークリストに積まれたタスク数
	Attempted int `json:"attempted"`
	// Skipped は前回までに完了済みだったためスキップしたタスク数
	Skipped int `json:"skipped"`

	Duration time.Duration `json:"duration"`
}

// Completed は完了タスク数を返します
func (s ProductStats) Completed() int {
	return s.ByStatus[TaskStatusCompleted]
}

// Failed は失敗タスク数を返します
func (s ProductStats) Failed() int {
	return s.ByStatus[TaskStatusFailed]
}

// HasFailures は失敗タスクが存在するかを返します
func (s ProductStats) HasFailures() bool {
	return s.Failed() > 0
}
