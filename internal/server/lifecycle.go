// Package server runs the mapper's long-lived services with graceful
// shutdown on signals.
package server

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultStopTimeout bounds the stop hooks run after the services return.
const DefaultStopTimeout = 30 * time.Second

// Service is a long-running component. Run blocks until ctx is cancelled or
// the service has nothing more to do.
type Service interface {
	Run(ctx context.Context) error
}

// ServiceFunc adapts a function to the Service interface.
type ServiceFunc func(ctx context.Context) error

// Run calls f.
func (f ServiceFunc) Run(ctx context.Context) error { return f(ctx) }

// Lifecycle runs services concurrently. The first service to return ends the
// run for all of them; stop hooks then run in reverse registration order.
type Lifecycle struct {
	logger      *zap.Logger
	stopTimeout time.Duration
	mu          sync.Mutex
	services    []named[Service]
	stops       []named[func(context.Context) error]
}

type named[T any] struct {
	name string
	v    T
}

// NewLifecycle creates a Lifecycle.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{logger: logger.Named("lifecycle"), stopTimeout: DefaultStopTimeout}
}

// SetStopTimeout changes the deadline given to stop hooks.
func (l *Lifecycle) SetStopTimeout(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopTimeout = d
}

// Add registers a named service.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, named[Service]{name: name, v: svc})
}

// OnStop registers a hook run after every service has returned, such as a
// final save.
func (l *Lifecycle) OnStop(name string, fn func(ctx context.Context) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stops = append(l.stops, named[func(context.Context) error]{name: name, v: fn})
}

// Run starts every service and blocks until one of them returns, ctx is
// cancelled, or SIGINT/SIGTERM arrives.
//
// Postcondition: All services have returned and all stop hooks have run. The
// result joins the first service failure with every stop hook failure;
// cancellation is not a failure.
func (l *Lifecycle) Run(ctx context.Context) error {
	l.mu.Lock()
	services := append([]named[Service](nil), l.services...)
	stops := append([]named[func(context.Context) error](nil), l.stops...)
	timeout := l.stopTimeout
	l.mu.Unlock()

	start := time.Now()
	sigCtx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()
	runCtx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	for _, ns := range services {
		g.Go(func() error {
			defer cancel()
			l.logger.Info("starting service", zap.String("service", ns.name))
			svcStart := time.Now()
			err := ns.v.Run(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				l.logger.Error("service failed",
					zap.String("service", ns.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(svcStart)),
				)
				return fmt.Errorf("service %s: %w", ns.name, err)
			}
			l.logger.Info("service returned",
				zap.String("service", ns.name),
				zap.Duration("uptime", time.Since(svcStart)),
			)
			return nil
		})
	}
	l.logger.Info("all services started", zap.Int("count", len(services)))

	runErr := g.Wait()
	if sigCtx.Err() != nil && ctx.Err() == nil {
		l.logger.Info("received signal, shutting down")
	}

	stopCtx, cancelStop := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancelStop()
	errs := []error{runErr}
	for i := len(stops) - 1; i >= 0; i-- {
		hook := stops[i]
		hookStart := time.Now()
		if err := hook.v(stopCtx); err != nil {
			l.logger.Error("stop hook failed", zap.String("hook", hook.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("stopping %s: %w", hook.name, err))
			continue
		}
		l.logger.Info("stop hook done",
			zap.String("hook", hook.name),
			zap.Duration("elapsed", time.Since(hookStart)),
		)
	}

	l.logger.Info("shutdown complete", zap.Duration("total_uptime", time.Since(start)))
	return errors.Join(errs...)
}
