package telemetry

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/leviathanch/Google-Companion/domain/entities"
)

// NewLogger builds the production logger: JSON to a rotated file, console
// output for the terminal, and a hook feeding the monitor's log ring.
func NewLogger(logDir string, ring *LogRing) (*zap.Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}

	fileSink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(logDir, "companion.log"),
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), fileSink, zapcore.InfoLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stdout), zapcore.InfoLevel),
	)

	logger := zap.New(core, zap.AddCaller())
	if ring != nil {
		logger = logger.WithOptions(zap.Hooks(func(entry zapcore.Entry) error {
			ring.Append(entities.LogEntry{
				Time:    entry.Time,
				Kind:    entry.Level.String(),
				Message: entry.Message,
			})
			return nil
		}))
	}
	return logger, nil
}
