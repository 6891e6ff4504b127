package logger

import (
	"wallet_client/internal/app/port"

	"go.uber.org/zap"
)

// slogAdapter implements port.Logger on top of the package-level slog facade.
type slogAdapter struct{}

// NewSlogAdapter returns a port.Logger writing through the global logger.
func NewSlogAdapter() port.Logger {
	return &slogAdapter{}
}

func (a *slogAdapter) Info(msg string, args ...any)  { Info(msg, args...) }
func (a *slogAdapter) Debug(msg string, args ...any) { Debug(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { Error(msg, args...) }

// zapAdapter implements port.Logger on a dedicated zap logger, used where a component
// should log under its own name.
type zapAdapter struct {
	s *zap.SugaredLogger
}

// NewZapAdapter wraps z. A nil z yields a no-op logger.
func NewZapAdapter(z *zap.Logger) port.Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &zapAdapter{s: z.Sugar()}
}

// NewNop returns a logger that discards everything; handy in tests.
func NewNop() port.Logger {
	return NewZapAdapter(zap.NewNop())
}

func (a *zapAdapter) Info(msg string, args ...any)  { a.s.Infow(msg, args...) }
func (a *zapAdapter) Debug(msg string, args ...any) { a.s.Debugw(msg, args...) }
func (a *zapAdapter) Warn(msg string, args ...any)  { a.s.Warnw(msg, args...) }
func (a *zapAdapter) Error(msg string, args ...any) { a.s.Errorw(msg, args...) }
