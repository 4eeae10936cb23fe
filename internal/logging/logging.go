//go:build !tinygo

// Package logging builds the host-side zap loggers. Each component asks for
// a named logger; levels can be changed per name at run time.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfg = zap.Config{
		Level:       zap.NewAtomicLevelAt(zap.InfoLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		// stdout carries the status protocol in the simulator.
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	leveler = &levelSetter{
		levelers: make(map[string]zap.AtomicLevel),
		def:      zap.InfoLevel,
	}
)

type Leveler interface {
	SetLevel(name string, level zapcore.Level)
	GetLevel(name string) zapcore.Level
	// SetDefault changes the level of every logger created afterwards and of
	// every existing one.
	SetDefault(level zapcore.Level)
}

type levelSetter struct {
	mu       sync.RWMutex
	levelers map[string]zap.AtomicLevel
	def      zapcore.Level
}

var _ Leveler = (*levelSetter)(nil)

func GetLeveler() Leveler { return leveler }

func (lw *levelSetter) SetLevel(name string, level zapcore.Level) {
	_ = lw.setLevel(name, level)
}

func (lw *levelSetter) GetLevel(name string) zapcore.Level {
	lw.mu.RLock()
	defer lw.mu.RUnlock()
	if l, ok := lw.levelers[name]; ok {
		return l.Level()
	}
	return lw.def
}

func (lw *levelSetter) SetDefault(level zapcore.Level) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.def = level
	for _, l := range lw.levelers {
		l.SetLevel(level)
	}
}

func (lw *levelSetter) setLevel(name string, level zapcore.Level) zap.AtomicLevel {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	l, ok := lw.levelers[name]
	if !ok {
		l = zap.NewAtomicLevelAt(level)
		lw.levelers[name] = l
	}
	l.SetLevel(level)
	return l
}

func (lw *levelSetter) levelFor(name string) zap.AtomicLevel {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	l, ok := lw.levelers[name]
	if !ok {
		l = zap.NewAtomicLevelAt(lw.def)
		lw.levelers[name] = l
	}
	return l
}

// ParseLevel accepts zap level names ("debug", "info", "warn", ...).
func ParseLevel(s string) (zapcore.Level, error) {
	return zapcore.ParseLevel(s)
}

func New(name string) *zap.SugaredLogger {
	c := cfg
	c.Level = leveler.levelFor(name)
	return zap.Must(c.Build(zap.AddStacktrace(zapcore.PanicLevel))).Named(name).Sugar()
}
