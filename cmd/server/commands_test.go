package main

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nekogravitycat/field-booking-backend/internal/sweep"
)

// blockingSweeper runs until its context ends, like sweep.Sweeper.Run.
type blockingSweeper struct {
	stopped atomic.Bool
}

func (b *blockingSweeper) Name() string { return "blocking" }

func (b *blockingSweeper) RunOnce(context.Context) (sweep.Result, error) { return sweep.Result{}, nil }

func (b *blockingSweeper) Run(ctx context.Context) {
	<-ctx.Done()
	b.stopped.Store(true)
}

func runAsync(ctx context.Context, server *http.Server, sweepers []sweep.Runner) <-chan error {
	done := make(chan error, 1)
	go func() { done <- runServer(ctx, server, sweepers, zap.NewNop()) }()
	return done
}

func TestRunServerStopsSweepersWhenListenFails(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	sweeper := &blockingSweeper{}
	server := &http.Server{Addr: taken.Addr().String(), Handler: http.NotFoundHandler()}

	select {
	case err := <-runAsync(context.Background(), server, []sweep.Runner{sweeper}):
		require.Error(t, err)
		assert.Contains(t, err.Error(), "http server")
		assert.True(t, sweeper.stopped.Load())
	case <-time.After(5 * time.Second):
		t.Fatal("runServer did not return after the listener failed")
	}
}

func TestRunServerShutsDownOnSignal(t *testing.T) {
	sweeper := &blockingSweeper{}
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, server, []sweep.Runner{sweeper})
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
		assert.True(t, sweeper.stopped.Load())
	case <-time.After(5 * time.Second):
		t.Fatal("runServer did not return after cancellation")
	}
}
