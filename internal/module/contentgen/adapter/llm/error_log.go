package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/openai/openai-go/v3"

	"github.com/jinford/travel-contentgen/internal/module/contentgen/application"
	"github.com/jinford/travel-contentgen/internal/module/contentgen/domain"
)

// ErrorType はエラーの種類を表します
type ErrorType string

const (
	// ErrorTypeJSONParseFailed はレスポンスの解析・検証エラー
	ErrorTypeJSONParseFailed ErrorType = "parse_failed"
	// ErrorTypeRateLimitExceeded はレート制限エラー
	ErrorTypeRateLimitExceeded ErrorType = "rate_limit_exceeded"
	// ErrorTypeTimeout はタイムアウトエラー
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeCanceled は実行のキャンセル
	ErrorTypeCanceled ErrorType = "canceled"
	// ErrorTypeUnknown は不明なエラー
	ErrorTypeUnknown ErrorType = "unknown"
)

// ErrorRecord は失敗した生成呼び出しのログレコードです
type ErrorRecord struct {
	Timestamp    time.Time       `json:"timestamp"`
	RunID        string          `json:"run_id"`
	TaskKey      string          `json:"task_key"`
	ProductID    string          `json:"product_id"`
	Category     domain.Category `json:"category"`
	Locale       domain.Locale   `json:"locale"`
	ErrorType    ErrorType       `json:"error_type"`
	ErrorMessage string          `json:"error_message"`
	Attempt      int             `json:"attempt"`
	Final        bool            `json:"final"`
	DurationMs   int64           `json:"duration_ms"`
}

// ErrorLog は失敗した生成呼び出しをJSONLファイルに記録します
// application.FailureRecorder を実装します
type ErrorLog struct {
	logFile  *os.File
	logMutex sync.Mutex
	enabled  bool
	logger   *slog.Logger
}

// NewErrorLog は新しいErrorLogを作成します
// logDir が空の場合は記録を無効化します
func NewErrorLog(logDir string, logger *slog.Logger) (*ErrorLog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if logDir == "" {
		return &ErrorLog{enabled: false, logger: logger}, nil
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// 日付でローテーション
	logFileName := fmt.Sprintf("generation_errors_%s.jsonl", time.Now().Format("2006-01-02"))
	logFilePath := filepath.Join(logDir, logFileName)

	logFile, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &ErrorLog{
		logFile: logFile,
		enabled: true,
		logger:  logger,
	}, nil
}

// Path はログファイルのパスを返します（無効時は空文字）
func (l *ErrorLog) Path() string {
	if l.logFile == nil {
		return ""
	}
	return l.logFile.Name()
}

// Close はログファイルを閉じます
func (l *ErrorLog) Close() error {
	if l.logFile != nil {
		return l.logFile.Close()
	}
	return nil
}

// RecordFailure は失敗した試行を1行のJSONとして追記します
func (l *ErrorLog) RecordFailure(failure application.FailureRecord) error {
	if !l.enabled {
		return nil
	}

	record := ErrorRecord{
		Timestamp:  time.Now().UTC(),
		RunID:      failure.RunID,
		TaskKey:    failure.TaskKey,
		ProductID:  failure.ProductID,
		Category:   failure.Category,
		Locale:     failure.Locale,
		ErrorType:  ClassifyError(failure.Err),
		Attempt:    failure.Attempt,
		Final:      failure.Final,
		DurationMs: failure.Duration.Milliseconds(),
	}
	if failure.Err != nil {
		record.ErrorMessage = TruncateString(failure.Err.Error(), 2000)
	}

	jsonBytes, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal error record: %w", err)
	}

	l.logMutex.Lock()
	defer l.logMutex.Unlock()

	if _, err := l.logFile.Write(append(jsonBytes, '\n')); err != nil {
		return fmt.Errorf("failed to write log: %w", err)
	}

	if record.Final {
		l.logger.Warn("generation failed",
			"task", record.TaskKey,
			"type", record.ErrorType,
			"attempt", record.Attempt,
		)
	}

	return nil
}

// ClassifyError はエラーを ErrorType に分類します
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeUnknown
	}

	var apiErr *openai.Error
	switch {
	case errors.Is(err, application.ErrGenerationTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeTimeout
	case errors.Is(err, context.Canceled):
		return ErrorTypeCanceled
	case errors.As(err, &apiErr) && apiErr.StatusCode == 429:
		return ErrorTypeRateLimitExceeded
	case errors.Is(err, ErrInvalidResponseFormat), errors.Is(err, domain.ErrInvalidContent):
		return ErrorTypeJSONParseFailed
	default:
		return ErrorTypeUnknown
	}
}

// TruncateString は文字列を指定された文字数（rune単位）に切り詰めます（ログ記録用）
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "... (truncated)"
}

var _ application.FailureRecorder = (*ErrorLog)(nil)
