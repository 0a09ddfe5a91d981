// Package cmdutil holds the pieces services are assembled from: Servers run
// together in an oklog/run.Group until the first of them returns.
package cmdutil

import (
	"context"

	"github.com/oklog/run"
)

// A Server runs until it fails or is stopped.
//
// Run and Stop have the shape of the execute and interrupt functions of an
// oklog/run.Group actor.
type Server interface {
	Run() error
	Stop(error)
}

// ServerFunc adapts a function to a Server which can't be stopped.
type ServerFunc func() error

// Run calls fn.
func (fn ServerFunc) Run() error { return fn() }

// Stop does nothing.
func (fn ServerFunc) Stop(error) {}

// ServerFuncs is a Server made of a pair of functions.
type ServerFuncs struct {
	RunFunc  func() error
	StopFunc func(error)
}

// Run calls RunFunc.
func (sf ServerFuncs) Run() error {
	return sf.RunFunc()
}

// Stop calls StopFunc, if it's non-nil.
func (sf ServerFuncs) Stop(err error) {
	if sf.StopFunc != nil {
		sf.StopFunc(err)
	}
}

// NewContextServer returns a Server running fn with a context that is
// canceled once the Server is stopped.
func NewContextServer(fn func(context.Context) error) Server {
	ctx, cancel := context.WithCancel(context.Background())

	return ServerFuncs{
		RunFunc:  func() error { return fn(ctx) },
		StopFunc: func(error) { cancel() },
	}
}

// MultiServer returns a Server running all of srvs until one of them returns
// or the MultiServer is stopped. Either way all of them are stopped.
func MultiServer(srvs ...Server) Server {
	var g run.Group

	// Keeps the group running when srvs is empty and lets Stop interrupt it.
	anchor := NewContextServer(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	g.Add(anchor.Run, anchor.Stop)

	for _, srv := range srvs {
		g.Add(srv.Run, srv.Stop)
	}

	return ServerFuncs{
		RunFunc:  g.Run,
		StopFunc: anchor.Stop,
	}
}
