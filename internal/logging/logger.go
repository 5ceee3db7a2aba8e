package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "lms-points"

type Log struct {
	Base   *zap.Logger
	Level  zap.AtomicLevel
	Closer func()
}

// Init: prod пишет JSON, иначе консольный вывод. Неизвестный уровень превращается в info.
func Init(level, env, version string) (*Log, error) {
	cfg := buildConfig(level, env, version)
	base, err := cfg.Build(zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		return nil, err
	}
	return &Log{
		Base:   base.Named(serviceName),
		Level:  cfg.Level,
		Closer: func() { _ = base.Sync() },
	}, nil
}

func buildConfig(level, env, version string) zap.Config {
	lvl := zap.NewAtomicLevel()
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	env = strings.ToLower(env)

	var cfg zap.Config
	if env == "prod" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.InitialFields = map[string]any{
		"service": serviceName,
		"env":     env,
	}
	if version != "" {
		cfg.InitialFields["version"] = version
	}
	return cfg
}
