package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then metrics should be registered under the default namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.jobsSubmitted.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				found := false
				for _, f := range families {
					if f.GetName() == "betti_curves_jobs_submitted_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithMetricPrefix("x"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithGridPointBuckets([]float64{10, 100}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then names should carry namespace, subsystem and prefix", func() {
				manager.jobsCompleted.Inc()
				So(testutil.ToFloat64(manager.jobsCompleted), ShouldEqual, 1)

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "test_unit_x_jobs_completed_total")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording job outcomes", func() {
			before := testutil.ToFloat64(globalManager.jobsCompleted)
			RecordJobCompleted()

			Convey("Then the counter should advance", func() {
				So(testutil.ToFloat64(globalManager.jobsCompleted), ShouldEqual, before+1)
			})
		})

		Convey("When recording intervals per dimension", func() {
			RecordIntervalsProcessed("1", 7)

			Convey("Then the labelled counter should hold the value", func() {
				So(testutil.ToFloat64(globalManager.intervalsProcessed.WithLabelValues("1")), ShouldBeGreaterThanOrEqualTo, 7)
			})
		})

		Convey("When updating gauges", func() {
			UpdateQueueSize(3)
			UpdateQueueCapacity(10)
			UpdateWorkerCount(4)
			UpdateStoreRecords(12)

			Convey("Then they should reflect the latest values", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 10)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.storeRecords), ShouldEqual, 12)
			})
		})

		Convey("Then recording helpers should not panic", func() {
			So(func() {
				RecordJobSubmitted()
				RecordJobDuplicate()
				RecordJobFailed()
				RecordComputeLatency(1.5)
				RecordGridPoints(100)
				UpdateQueueUtilization(0.3)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueRejected()
				RecordWorkerProcessingLatency(2)
				RecordWorkerError()
				RecordStoreWriteLatency(0.2)
				RecordStoreReadLatency(0.1)
				RecordStoreError("memory", "get")
				RecordHTTPRequest("curves", "POST", "202")
				RecordHTTPRequestDuration("curves", "POST", "202", 3)
				RecordRateLimited()
				RecordErrorByComponent("queue", "full")
				RecordErrorByEndpoint("curves", "POST", "client_error")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(8)
				RecordSystemGCPauseTime(0.4)
			}, ShouldNotPanic)
		})

		Convey("Then GetRegistry should expose the custom registry", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}
