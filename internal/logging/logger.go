// Package logging configures the engine's structured audit logger.
//
// The terminal-facing progress output (phase headers, colors, spinners)
// stays in internal/ux, matching the teacher's split between human display
// and durable records — zap here only ever writes to the audit trail file
// and, optionally, stderr for operators tailing a live run.
package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger that writes JSON lines to <artifactsDir>/audit.jsonl
// and, if mirrorStderr is true, human-readable lines to stderr as well.
func New(artifactsDir string, mirrorStderr bool) (*zap.Logger, error) {
	if err := os.MkdirAll(artifactsDir, 0755); err != nil {
		return nil, err
	}
	auditPath := filepath.Join(artifactsDir, "audit.jsonl")
	f, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	jsonEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(jsonEncoder, zapcore.AddSync(f), zap.InfoLevel)

	if mirrorStderr {
		consoleCfg := zap.NewDevelopmentEncoderConfig()
		consoleEncoder := zapcore.NewConsoleEncoder(consoleCfg)
		consoleCore := zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stderr), zap.WarnLevel)
		core = zapcore.NewTee(core, consoleCore)
	}

	return zap.New(core), nil
}

// Noop returns a logger that discards everything, for tests.
func Noop() *zap.Logger {
	return zap.NewNop()
}
