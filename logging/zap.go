// Package logging adapts zap to the engine's Logger interface.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/careerscout-labs/resumeanalysis/engine/stages"
)

// ZapLogger implements stages.Logger over a zap SugaredLogger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger builds a production logger. verbose lowers the level to
// debug. The returned sync function should be deferred from main.
func NewZapLogger(verbose bool) (*ZapLogger, func(), error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	sync := func() { _ = logger.Sync() }
	return &ZapLogger{sugar: logger.Sugar()}, sync, nil
}

// Wrap adapts an existing zap logger.
func Wrap(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: logger.Sugar()}
}

func (l *ZapLogger) Debug(msg string, kv ...any) { l.sugar.Debugw(msg, kv...) }
func (l *ZapLogger) Info(msg string, kv ...any)  { l.sugar.Infow(msg, kv...) }
func (l *ZapLogger) Warn(msg string, kv ...any)  { l.sugar.Warnw(msg, kv...) }
func (l *ZapLogger) Error(msg string, kv ...any) { l.sugar.Errorw(msg, kv...) }

// Bind implements stages.Logger.
func (l *ZapLogger) Bind(fields ...any) stages.Logger {
	return &ZapLogger{sugar: l.sugar.With(fields...)}
}
