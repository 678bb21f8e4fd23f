package domain

import "time"

// === Task ===

// TaskStatus はタスクの状態を表します
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// AllTaskStatuses は全ステータスを返します
func AllTaskStatuses() []TaskStatus {
	return []TaskStatus{TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed}
}

// Priority はタスクの処理優先度を表します
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank はソート用の順位を返します（小さいほど先に処理される）
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

const (
	highPriorityRating   = 4.7
	mediumPriorityRating = 4.3
)

// highValueCategories は評価に関係なく高優先度とするカテゴリ
var highValueCategories = map[Category]bool{
	CategoryTour:  true,
	CategoryHotel: true,
}

// DeterminePriority は商品から処理優先度を決定します
// タスク作成時に一度だけ評価されます
func DeterminePriority(p Product) Priority {
	rating := p.RatingValue()
	switch {
	case rating >= highPriorityRating || highValueCategories[p.Category]:
		return PriorityHigh
	case rating >= mediumPriorityRating:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// TaskKey は (productID, locale) の複合キーを返します
func TaskKey(productID string, locale Locale) string {
	return productID + "-" + string(locale)
}

// Task は (商品, ロケール) 1組分の生成作業を表します
type Task struct {
	ProductID       string     `json:"productId"`
	ProductCategory Category   `json:"productCategory"`
	Locale          Locale     `json:"locale"`
	Priority        Priority   `json:"priority"`
	Status          TaskStatus `json:"status"`
	Retries         int        `json:"retries"`
	Error           string     `json:"error,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// NewTask はpending状態の新しいタスクを作成します
func NewTask(p Product, locale Locale, now time.Time) *Task {
	return &Task{
		ProductID:       p.ID,
		ProductCategory: p.Category,
		Locale:          locale,
		Priority:        DeterminePriority(p),
		Status:          TaskStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Key はタスクの複合キーを返します
func (t *Task) Key() string {
	return TaskKey(t.ProductID, t.Locale)
}

// IsCompleted は完了済みかどうかを返します
func (t *Task) IsCompleted() bool {
	return t.Status == TaskStatusCompleted
}

// Clone はタスクのコピーを返します
func (t *Task) Clone() *Task {
	c := *t
	return &c
}
