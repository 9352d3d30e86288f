package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	worker "github.com/okian/betti/internal/adapters/mq/worker"
	model "github.com/okian/betti/internal/domain/model"
	"github.com/okian/betti/internal/domain/persistence"
	logging "github.com/okian/betti/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockQueue struct {
	jobs chan model.Job
	once sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan model.Job, 64)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan model.Job { return mq.jobs }

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.jobs) })
	return nil
}

func (mq *mockQueue) add(j model.Job) { mq.jobs <- j } //nolint:gocritic // test helper

type mockComputer struct {
	mu     sync.Mutex
	errors map[string]error
	delay  time.Duration
}

func newMockComputer() *mockComputer {
	return &mockComputer{errors: make(map[string]error)}
}

func (mc *mockComputer) Compute(ctx context.Context, j model.Job) (model.Result, error) { //nolint:gocritic // matches interface
	mc.mu.Lock()
	err := mc.errors[j.ID]
	delay := mc.delay
	mc.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return model.Result{}, err
	}
	return model.Result{
		ID:        j.ID,
		Status:    model.StatusDone,
		Curves:    map[int][]int{0: {1, 0}},
		Intervals: j.Diagram.Len(),
	}, nil
}

func (mc *mockComputer) setError(id string, err error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.errors[id] = err
}

type mockWriter struct {
	mu      sync.Mutex
	results map[string]model.Result
	err     error
}

func newMockWriter() *mockWriter {
	return &mockWriter{results: make(map[string]model.Result)}
}

func (mw *mockWriter) Put(_ context.Context, r model.Result) error { //nolint:gocritic // matches interface
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if mw.err != nil {
		return mw.err
	}
	mw.results[r.ID] = r
	return nil
}

func (mw *mockWriter) get(id string) (model.Result, bool) {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	r, ok := mw.results[id]
	return r, ok
}

func (mw *mockWriter) count() int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return len(mw.results)
}

func sampleJob(id string) model.Job {
	return model.Job{
		ID:          id,
		Diagram:     persistence.Diagram{0: {{Birth: 0, Death: 1}, {Birth: 0.5, Death: 2}}},
		SubmittedAt: time.Now().UTC(),
	}
}

// waitFor polls cond until it holds or a second passes.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a new InMemoryWorker", t, func() {
		_ = logging.Init()

		queue := newMockQueue()
		computer := newMockComputer()
		writer := newMockWriter()

		convey.Convey("When creating a worker with custom options", func() {
			w := worker.NewInMemoryWorker(queue, computer, writer,
				worker.WithName("custom-worker"),
				worker.WithLogger(logging.Nop()),
			)

			convey.Convey("Then it should be created successfully", func() {
				convey.So(w, convey.ShouldNotBeNil)
				convey.So(w.Processed(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When running a worker", func() {
			w := worker.NewInMemoryWorker(queue, computer, writer)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			convey.Convey("And a job succeeds", func() {
				queue.add(sampleJob("job-1"))

				convey.Convey("Then its result should be stored as done", func() {
					convey.So(waitFor(func() bool { _, ok := writer.get("job-1"); return ok }), convey.ShouldBeTrue)
					r, _ := writer.get("job-1")
					convey.So(r.Status, convey.ShouldEqual, model.StatusDone)
					convey.So(r.Intervals, convey.ShouldEqual, 2)
					convey.So(w.Failed(), convey.ShouldEqual, 0)
				})
			})

			convey.Convey("And a job fails", func() {
				computer.setError("job-2", errors.New("grid too coarse"))
				queue.add(sampleJob("job-2"))

				convey.Convey("Then a failed result should be stored with the error", func() {
					convey.So(waitFor(func() bool { _, ok := writer.get("job-2"); return ok }), convey.ShouldBeTrue)
					r, _ := writer.get("job-2")
					convey.So(r.Status, convey.ShouldEqual, model.StatusFailed)
					convey.So(r.Error, convey.ShouldEqual, "grid too coarse")
					convey.So(r.Intervals, convey.ShouldEqual, 2)
					convey.So(r.CompletedAt.IsZero(), convey.ShouldBeFalse)
					convey.So(w.Failed(), convey.ShouldEqual, 1)
				})
			})

			convey.Convey("And the store rejects the result", func() {
				writer.mu.Lock()
				writer.err = errors.New("disk full")
				writer.mu.Unlock()
				queue.add(sampleJob("job-3"))

				convey.Convey("Then the worker should keep running", func() {
					convey.So(waitFor(func() bool { return w.Processed() == 1 }), convey.ShouldBeTrue)
					writer.mu.Lock()
					writer.err = nil
					writer.mu.Unlock()
					queue.add(sampleJob("job-4"))
					convey.So(waitFor(func() bool { _, ok := writer.get("job-4"); return ok }), convey.ShouldBeTrue)
				})
			})

			convey.Convey("And when shutting down", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
				defer shutdownCancel()

				convey.Convey("Then it should shutdown gracefully and tolerate a second call", func() {
					convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
					convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
				})
			})
		})

		convey.Convey("When the queue is closed", func() {
			w := worker.NewInMemoryWorker(queue, computer, writer)
			done := make(chan struct{})
			go func() {
				w.Run(context.Background())
				close(done)
			}()
			queue.add(sampleJob("job-5"))
			_ = queue.Close()

			convey.Convey("Then the worker should drain and stop", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
				}
				_, ok := writer.get("job-5")
				convey.So(ok, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When context is cancelled", func() {
			w := worker.NewInMemoryWorker(queue, computer, writer)
			ctx, cancel := context.WithCancel(context.Background())
			go w.Run(ctx)
			cancel()

			convey.Convey("Then worker should stop", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
				defer shutdownCancel()
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a new worker pool", t, func() {
		_ = logging.Init()

		queue := newMockQueue()
		computer := newMockComputer()
		writer := newMockWriter()

		convey.Convey("When creating a pool with a non-positive count", func() {
			pool := worker.NewPool(0, queue, computer, writer)

			convey.Convey("Then it should default to at least one worker", func() {
				convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When a started pool processes many jobs", func() {
			pool := worker.NewPool(4, queue, computer, writer)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			pool.Start(ctx)

			computer.setError("job-7", errors.New("bad"))
			for i := 0; i < 20; i++ {
				queue.add(sampleJob(fmt.Sprintf("job-%d", i)))
			}

			convey.Convey("Then every job should get a result", func() {
				convey.So(waitFor(func() bool { return writer.count() == 20 }), convey.ShouldBeTrue)
				convey.So(pool.Processed(), convey.ShouldEqual, 20)
				convey.So(pool.Failed(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When shutting down with queued work", func() {
			pool := worker.NewPool(2, queue, computer, writer)
			pool.Start(context.Background())
			for i := 0; i < 10; i++ {
				queue.add(sampleJob(fmt.Sprintf("job-%d", i)))
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			err := pool.Shutdown(ctx)

			convey.Convey("Then queued jobs should be drained first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(writer.count(), convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When shutdown times out", func() {
			computer.delay = 200 * time.Millisecond
			pool := worker.NewPool(1, queue, computer, writer)
			pool.Start(context.Background())
			for i := 0; i < 5; i++ {
				queue.add(sampleJob(fmt.Sprintf("job-%d", i)))
			}

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			err := pool.Shutdown(ctx)

			convey.Convey("Then an error should be reported and remaining jobs left", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(writer.count(), convey.ShouldBeLessThan, 5)
			})
		})
	})
}
