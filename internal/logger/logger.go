// Package logger builds the zap loggers shared by the ragchat binaries.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kailas-cloud/ragchat/internal/config"
	"github.com/kailas-cloud/ragchat/internal/version"
)

// Service is attached to every entry as the "service" field.
const Service = "ragchat"

// New creates a logger for env tagged with the service, the binary's component and the build version.
// prod defaults to JSON at info, local/dev/docker to console at debug.
// cfg.Level and cfg.Format override those defaults.
func New(env string, cfg config.LoggingConfig, component string) (*zap.Logger, error) {
	zc, err := newConfig(env, cfg)
	if err != nil {
		return nil, err
	}
	return build(zc, component)
}

func newConfig(env string, cfg config.LoggingConfig) (zap.Config, error) {
	var zc zap.Config
	switch env {
	case "prod":
		zc = zap.NewProductionConfig()
	case "local", "dev", "docker":
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return zap.Config{}, fmt.Errorf("unknown environment %q for logger", env)
	}

	switch cfg.Format {
	case "":
	case "json":
		zc.Encoding = "json"
		zc.EncoderConfig = zap.NewProductionEncoderConfig()
	case "console":
		zc.Encoding = "console"
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	default:
		return zap.Config{}, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	if cfg.Level != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return zap.Config{}, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}

	return zc, nil
}

func build(zc zap.Config, component string) (*zap.Logger, error) {
	l, err := zc.Build(
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(
			zap.String("service", Service),
			zap.String("component", component),
			zap.String("version", version.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}
