// Package logging provides a context scoped structured logger for the portal.
// The interface is shaped around uber-go/zap's sugared logger so call sites
// stay terse, while tests can swap in a recording implementation.
package logging

import "context"

type ctxkey struct {
	logger Logger
}

// With attaches a logger to the context.
//
// This can be used to create logging scopes like so:
//
//	ctx := logging.With(ctx, logger.Named("session"))
//	sessions.Validate(ctx)
func With(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, ctxkey{}, &ctxkey{
		logger: logger,
	})
}

// FromContext returns the scoped logger. Contexts without a logger get a
// no-op logger so library code never needs a nil check.
func FromContext(ctx context.Context) Logger {
	c, ok := ctx.Value(ctxkey{}).(*ctxkey)
	if ok {
		return c.logger
	}
	return noop{}
}

// Track a field across the lifetime of the context. Tracked values persist
// back up the call-chain, so the request level log lines pick them up.
func Track(ctx context.Context, field string, value interface{}) {
	c, ok := ctx.Value(ctxkey{}).(*ctxkey)
	if ok {
		c.logger = c.logger.With(field, value)
	}
}

// Logger is an abstract logging interface designed around uber-go/zap's
// sugared logger, but intended to provide interop with other libraries.
type Logger interface {
	Debug(args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Debugf(msg string, args ...interface{})
	Info(args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Infof(msg string, args ...interface{})
	Warn(args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Warnf(msg string, args ...interface{})
	Error(args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Errorf(msg string, args ...interface{})

	// Named creates a child logger with the given name.
	Named(name string) Logger

	// With creates a child logger and attaches structured context to it.
	With(field string, value interface{}) Logger
}

func Debug(ctx context.Context, msg string) {
	FromContext(ctx).Debug(msg)
}

func Debugw(ctx context.Context, msg string, fields ...interface{}) {
	FromContext(ctx).Debugw(msg, fields...)
}

func Debugf(ctx context.Context, msg string, args ...interface{}) {
	FromContext(ctx).Debugf(msg, args...)
}

func Info(ctx context.Context, msg string) {
	FromContext(ctx).Info(msg)
}

func Infow(ctx context.Context, msg string, fields ...interface{}) {
	FromContext(ctx).Infow(msg, fields...)
}

func Infof(ctx context.Context, msg string, args ...interface{}) {
	FromContext(ctx).Infof(msg, args...)
}

func Warn(ctx context.Context, msg string) {
	FromContext(ctx).Warn(msg)
}

func Warnw(ctx context.Context, msg string, fields ...interface{}) {
	FromContext(ctx).Warnw(msg, fields...)
}

func Warnf(ctx context.Context, msg string, args ...interface{}) {
	FromContext(ctx).Warnf(msg, args...)
}

func Error(ctx context.Context, msg string) {
	FromContext(ctx).Error(msg)
}

func Errorw(ctx context.Context, msg string, fields ...interface{}) {
	FromContext(ctx).Errorw(msg, fields...)
}

func Errorf(ctx context.Context, msg string, args ...interface{}) {
	FromContext(ctx).Errorf(msg, args...)
}

type noop struct{}

func (noop) Debug(args ...interface{})                       {}
func (noop) Debugw(msg string, keysAndValues ...interface{}) {}
func (noop) Debugf(msg string, args ...interface{})          {}
func (noop) Info(args ...interface{})                        {}
func (noop) Infow(msg string, keysAndValues ...interface{})  {}
func (noop) Infof(msg string, args ...interface{})           {}
func (noop) Warn(args ...interface{})                        {}
func (noop) Warnw(msg string, keysAndValues ...interface{})  {}
func (noop) Warnf(msg string, args ...interface{})           {}
func (noop) Error(args ...interface{})                       {}
func (noop) Errorw(msg string, keysAndValues ...interface{}) {}
func (noop) Errorf(msg string, args ...interface{})          {}
func (noop) Named(name string) Logger                        { return noop{} }
func (noop) With(field string, value interface{}) Logger     { return noop{} }
