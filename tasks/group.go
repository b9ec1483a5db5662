// Package tasks supervises the engine's background work: dispatched
// actions, the wallet poll loop and replayed pending actions all run in a
// Group so that shutdown can cancel and join them.
package tasks

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// ErrBusy is reported by callers whose task was refused by a full Group.
var ErrBusy = errors.New("too many actions in flight")

// Group is a fire-and-forget task group with an optional in-flight limit.
// Tasks never fail the group: each one is expected to report its own
// outcome, and a panicking task is logged and dropped.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc
	eg     errgroup.Group
	log    *slog.Logger
}

// New returns a Group whose tasks observe a context derived from parent.
// limit <= 0 means unbounded.
func New(parent context.Context, limit int, log *slog.Logger) *Group {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(parent)
	g := &Group{ctx: ctx, cancel: cancel, log: log}
	if limit > 0 {
		g.eg.SetLimit(limit)
	}
	return g
}

// Go starts fn in its own goroutine and returns immediately. It returns
// false, without running fn, when the group is closed or the in-flight
// limit is reached.
func (g *Group) Go(name string, fn func(ctx context.Context)) bool {
	if g.ctx.Err() != nil {
		return false
	}
	return g.eg.TryGo(func() error {
		defer func() {
			if r := recover(); r != nil {
				g.log.Error("task panicked", "task", name, "panic", r)
			}
		}()
		fn(g.ctx)
		return nil
	})
}

// Context is cancelled by Close.
func (g *Group) Context() context.Context {
	return g.ctx
}

// Wait blocks until every started task has returned.
func (g *Group) Wait() {
	_ = g.eg.Wait()
}

// Close cancels the tasks' context and waits for them to return.
func (g *Group) Close() {
	g.cancel()
	g.Wait()
}
