package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	auditLogger *Logger
	once        sync.Once
)

// Logger appends structured validation-run events to a JSON log file.
type Logger struct {
	logger zerolog.Logger
	file   *os.File
	mu     sync.Mutex
}

// Initialize sets up the audit logger singleton.
func Initialize(logPath string) error {
	var err error
	once.Do(func() {
		auditLogger, err = newLogger(logPath)
	})
	return err
}

// GetLogger returns the singleton, initializing with the default path
// if needed. If no log file can be opened, a no-op logger is returned
// so callers never have to nil-check.
func GetLogger() *Logger {
	if auditLogger == nil {
		defaultPath := "/var/log/fhsval/audit.json"
		if home, err := os.UserHomeDir(); err == nil {
			defaultPath = filepath.Join(home, ".fhsval", "audit.json")
		}
		Initialize(defaultPath)
	}
	if auditLogger == nil {
		return &Logger{logger: zerolog.Nop()}
	}
	return auditLogger
}

func newLogger(logPath string) (*Logger, error) {
	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	return &Logger{
		logger: zerolog.New(file).With().Timestamp().Logger(),
		file:   file,
	}, nil
}

// LogOperation opens an audit context for one operation. Callers
// complete it with Success or Failure.
func (a *Logger) LogOperation(ctx context.Context, operation string, params map[string]interface{}) *Context {
	correlationID := uuid.New().String()
	if ctxID, ok := ctx.Value("correlation_id").(string); ok {
		correlationID = ctxID
	}

	return &Context{
		logger:        a,
		correlationID: correlationID,
		operation:     operation,
		parameters:    params,
		startTime:     time.Now(),
	}
}

// Context tracks one in-flight audited operation.
type Context struct {
	logger        *Logger
	correlationID string
	operation     string
	parameters    map[string]interface{}
	startTime     time.Time
}

func (c *Context) Success() {
	c.complete("success", "")
}

func (c *Context) Failure(err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	c.complete("failure", msg)
}

func (c *Context) complete(result string, errorMsg string) {
	duration := time.Since(c.startTime).Milliseconds()

	c.logger.mu.Lock()
	defer c.logger.mu.Unlock()

	c.logger.logger.Info().
		Str("correlation_id", c.correlationID).
		Str("operation", c.operation).
		Interface("parameters", c.parameters).
		Str("result", result).
		Str("error", errorMsg).
		Int64("duration_ms", duration).
		Msg("audit")
}

// Close closes the audit log file.
func (a *Logger) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file != nil {
		return a.file.Close()
	}
	return nil
}
