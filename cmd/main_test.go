package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	app "github.com/okian/betti/internal/app"
	"github.com/okian/betti/internal/config"
	"github.com/okian/betti/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainFunction(t *testing.T) {
	_ = logger.Init()

	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("BETTI_ADDR", ":8080")
			_ = os.Setenv("BETTI_QUEUE_SIZE", "1000")
			_ = os.Setenv("BETTI_WORKER_COUNT", "4")
			defer func() {
				_ = os.Unsetenv("BETTI_ADDR")
				_ = os.Unsetenv("BETTI_QUEUE_SIZE")
				_ = os.Unsetenv("BETTI_WORKER_COUNT")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When testing invalid configuration", func() {
			_ = os.Setenv("BETTI_ADDR", "")
			defer func() { _ = os.Unsetenv("BETTI_ADDR") }()

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestMux(t *testing.T) {
	_ = logger.Init()

	convey.Convey("Given the server mux over a started service", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.WorkerCount = 2
		svc := app.New(app.OptionsFromConfig(cfg)...)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := newMux(ctx, cfg, svc)

		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
			return w
		}

		convey.Convey("Then every top-level route should answer", func() {
			for _, path := range []string{"/", "/api-docs", "/openapi.yaml", "/healthz", "/stats"} {
				convey.So(get(path).Code, convey.ShouldEqual, http.StatusOK)
			}
			convey.So(get("/nowhere").Code, convey.ShouldEqual, http.StatusNotFound)
		})

		convey.Convey("When a job is submitted and polled", func() {
			body := `{"diagram":{"0":[[0,2],[1,4]]},"grid":[0,1,2,3,4]}`
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/curves", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			mux.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusAccepted)

			id := w.Body.String()
			id = id[strings.Index(id, `"id":"`)+6:]
			id = id[:strings.Index(id, `"`)]

			convey.Convey("Then the result should become available as csv", func() {
				var rec *httptest.ResponseRecorder
				deadline := time.Now().Add(2 * time.Second)
				for time.Now().Before(deadline) {
					rec = get("/curves/" + id + "?format=csv")
					if strings.HasPrefix(rec.Body.String(), "scale") {
						break
					}
					time.Sleep(10 * time.Millisecond)
				}
				convey.So(rec.Body.String(), convey.ShouldStartWith, "scale,betti_0,betti_1,betti_2\n0,1,0,0\n1,2,0,0\n")
			})
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	_ = logger.Init()

	convey.Convey("Given main application components", t, func() {
		convey.Convey("When the updaters run until their context ends", func() {
			svc := app.New()
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
			convey.So(func() { startServiceMetricsUpdater(ctx, svc) }, convey.ShouldNotPanic)
		})

		convey.Convey("When metrics are updated directly", func() {
			svc := app.New()
			convey.So(func() { updateSystemMetrics() }, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})
	})
}
