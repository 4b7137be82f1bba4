package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type flakyWorker struct {
	runs       atomic.Int32
	panicUntil int32
}

func (w *flakyWorker) Run(_ context.Context) error {
	if w.runs.Add(1) <= w.panicUntil {
		panic("boom")
	}
	return nil
}

type blockingWorker struct{}

func (blockingWorker) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func Test_Supervisor_Restarts_Panicking_Worker(t *testing.T) {
	req := require.New(t)
	supervisor := NewSupervisor(slog.Default())

	worker := &flakyWorker{panicUntil: 2}
	supervisor.Add(worker)

	done := make(chan struct{})
	go func() {
		supervisor.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not finish")
	}
	req.EqualValues(3, worker.runs.Load())
}

func Test_Supervisor_Stop_Unblocks_Workers(t *testing.T) {
	supervisor := NewSupervisor(slog.Default())
	supervisor.Add(blockingWorker{})

	done := make(chan struct{})
	go func() {
		supervisor.Run(context.Background())
		close(done)
	}()

	// Give the worker a beat to start blocking, then stop everything
	time.Sleep(50 * time.Millisecond)
	supervisor.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop")
	}
}
