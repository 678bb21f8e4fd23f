package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jinford/travel-contentgen/internal/module/contentgen/domain"
)

// ProgressFileName は進捗ファイルの名前
const ProgressFileName = "progress.json"

// ProgressStore は タスクキー → Task のマップを1つのJSONファイルに保存する
type ProgressStore struct {
	path string
}

// NewProgressStore は outputDir/progress.json を扱う ProgressStore を作成する
func NewProgressStore(outputDir string) *ProgressStore {
	return &ProgressStore{path: filepath.Join(outputDir, ProgressFileName)}
}

// Path は進捗ファイルのパスを返す
func (s *ProgressStore) Path() string {
	return s.path
}

// Load は進捗ファイルを読み込む
// ファイルが存在しない場合は os.ErrNotExist を含むエラーを返す
// 呼び出し側はエラー時に空のマップで開始してよい
func (s *ProgressStore) Load() (map[string]*domain.Task, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read progress file: %w", err)
	}

	var tasks map[string]*domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse progress file: %w", err)
	}

	// null エントリは読み捨てる
	for key, task := range tasks {
		if task == nil {
			delete(tasks, key)
		}
	}
	if tasks == nil {
		tasks = make(map[string]*domain.Task)
	}

	return tasks, nil
}

// Save はマップ全体を書き出す
func (s *ProgressStore) Save(tasks map[string]*domain.Task) error {
	if tasks == nil {
		tasks = map[string]*domain.Task{}
	}
	if err := writeJSONAtomic(s.path, tasks); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}
