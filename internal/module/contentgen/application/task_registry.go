package application

import (
	"sync"

	"github.com/jinford/travel-contentgen/internal/module/contentgen/domain"
)

// TaskRegistry はワーカー間で共有するタスクマップ
// マップへのアクセスは必ずこの型のメソッドを経由する
type TaskRegistry struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
}

// NewTaskRegistry は空のTaskRegistryを作成する
func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{tasks: make(map[string]*domain.Task)}
}

// Replace はマップ全体を置き換える（進捗ファイルの読み込み時に使用）
func (r *TaskRegistry) Replace(tasks map[string]*domain.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks = make(map[string]*domain.Task, len(tasks))
	for key, task := range tasks {
		if task == nil {
			continue
		}
		r.tasks[key] = task.Clone()
	}
}

// Get はキーに対応するタスクのコピーを返す
func (r *TaskRegistry) Get(key string) (*domain.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[key]
	if !ok {
		return nil, false
	}
	return task.Clone(), true
}

// Put はタスクを登録する（既存エントリは上書き）
func (r *TaskRegistry) Put(task *domain.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.Key()] = task.Clone()
}

// Update はキーに対応するタスクをロック下で更新し、更新後のコピーを返す
// 存在しないキーの場合は false を返す
func (r *TaskRegistry) Update(key string, fn func(t *domain.Task)) (*domain.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[key]
	if !ok {
		return nil, false
	}
	fn(task)
	return task.Clone(), true
}

// Snapshot はマップ全体のディープコピーを返す
func (r *TaskRegistry) Snapshot() map[string]*domain.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[string]*domain.Task, len(r.tasks))
	for key, task := range r.tasks {
		snapshot[key] = task.Clone()
	}
	return snapshot
}

// Len は登録タスク数を返す
func (r *TaskRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
