package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/formflow/dms/internal/gelf"
)

// New builds the service logger: JSON to stderr, optionally mirrored to a
// GELF UDP endpoint when gelfAddr is non-empty.
func New(gelfAddr string) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	enc := zapcore.NewJSONEncoder(encCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(enc, zapcore.Lock(os.Stderr), zapcore.InfoLevel),
	}

	if gelfAddr != "" {
		if w, err := gelf.New(gelfAddr); err == nil {
			cores = append(cores, zapcore.NewCore(enc, w, zapcore.InfoLevel))
		}
	}

	return zap.New(zapcore.NewTee(cores...))
}
