package workers

import (
	"chat-relay/mocks"
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSupervisor_RestartOnPanic(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	workerMock := mocks.NewMockWorker(ctrl)

	var calls atomic.Int32
	workerMock.EXPECT().
		Run(gomock.Any()).
		DoAndReturn(func(ctx context.Context) error {
			calls.Add(1)
			panic("boom")
		}).
		AnyTimes()

	sup := NewSupervisor(log, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		sup.Add(workerMock).Run(ctx)
		close(done)
	}()

	// Waiting for panics and restarts
	req.Eventually(func() bool { return calls.Load() >= 2 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done
}

func TestSupervisor_StopOnSuccess(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	workerMock := mocks.NewMockWorker(ctrl)

	// Given a worker running only once
	workerMock.EXPECT().
		Run(gomock.Any()).
		Return(nil).
		Times(1)

	sup := NewSupervisor(log, DefaultRestartInterval)

	// Given a channel to notify when Run() terminated
	done := make(chan struct{})

	go func() {
		sup.Add(workerMock).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
		// Then supervisor detected a success, returned nil and stopped
	case <-time.After(500 * time.Millisecond):
		req.Fail("Supervisor should have stopped after worker success")
	}
}

func TestSupervisor_Start_After_Run(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	first := mocks.NewMockWorker(ctrl)
	late := mocks.NewMockWorker(ctrl)

	// Given a long running worker keeping the supervisor busy
	first.EXPECT().Run(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}).Times(1)

	started := make(chan struct{})
	late.EXPECT().Run(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		close(started)
		return nil
	}).Times(1)

	sup := NewSupervisor(slog.Default(), DefaultRestartInterval)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sup.Add(first).Run(ctx)
		close(done)
	}()

	// When a worker is started while the supervisor runs
	sup.Start(ctx, late)

	// Then it runs once
	select {
	case <-started:
	case <-time.After(time.Second):
		req.Fail("late worker was not started")
	}

	// And the supervisor returns after cancellation
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("supervisor did not stop")
	}
}

func TestSupervisor_Start_Races_Run_Without_Workers(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	var entered, finished atomic.Int32
	worker := mocks.NewMockWorker(ctrl)
	worker.EXPECT().Run(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		entered.Add(1)
		time.Sleep(time.Millisecond)
		finished.Add(1)
		return nil
	}).AnyTimes()

	for i := 0; i < 50; i++ {
		// Given a supervisor with nothing to run, returning immediately
		sup := NewSupervisor(slog.Default(), DefaultRestartInterval)
		done := make(chan struct{})
		go func() {
			sup.Run(context.Background())
			close(done)
		}()

		// When a worker is started at the same time
		sup.Start(context.Background(), worker)

		// Then Run never returns while that worker is still running
		select {
		case <-done:
		case <-time.After(time.Second):
			req.Fail("supervisor did not stop")
		}
		req.Equal(entered.Load(), finished.Load())
	}
}

func TestSupervisor_Start_After_Run_Returned_Is_Ignored(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Given a supervisor whose Run already returned
	sup := NewSupervisor(slog.Default(), DefaultRestartInterval)
	sup.Run(context.Background())

	// When a worker is started, Then it never runs
	worker := mocks.NewMockWorker(ctrl)
	worker.EXPECT().Run(gomock.Any()).Times(0)
	sup.Start(context.Background(), worker)
	time.Sleep(20 * time.Millisecond)
}
