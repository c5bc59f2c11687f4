// Package zap adapts go.uber.org/zap to the logger.Logger interface,
// with optional rotation via lumberjack when file output is configured.
package zap

import (
	"os"

	"chordring/internal/config"
	"chordring/internal/logger"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds a *zap.Logger from the node's logging configuration.
func New(cfg config.LoggerConfig) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	var sink zapcore.WriteSyncer
	if cfg.File != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	} else {
		sink = zapcore.AddSync(os.Stdout)
	}

	core := zapcore.NewCore(encoder, sink, level)
	return zap.New(core, zap.AddCaller()), nil
}

// Adapter implements logger.Logger on top of a *zap.Logger.
type Adapter struct {
	z *zap.Logger
}

// NewZapAdapter wraps an existing zap logger.
func NewZapAdapter(z *zap.Logger) *Adapter {
	return &Adapter{z: z}
}

func toZapFields(fields []logger.Field) []zap.Field {
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		out[i] = zap.Any(f.Key, f.Value)
	}
	return out
}

func (a *Adapter) Debug(msg string, fields ...logger.Field) { a.z.Debug(msg, toZapFields(fields)...) }
func (a *Adapter) Info(msg string, fields ...logger.Field)  { a.z.Info(msg, toZapFields(fields)...) }
func (a *Adapter) Warn(msg string, fields ...logger.Field)  { a.z.Warn(msg, toZapFields(fields)...) }
func (a *Adapter) Error(msg string, fields ...logger.Field) { a.z.Error(msg, toZapFields(fields)...) }

func (a *Adapter) Named(name string) logger.Logger {
	return &Adapter{z: a.z.Named(name)}
}

func (a *Adapter) WithNode(n logger.NodeDescriptor) logger.Logger {
	if n == nil {
		return a
	}
	return &Adapter{z: a.z.With(zap.String("node", n.LogString()))}
}
