package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then all collectors are registered on it", func() {
				So(manager, ShouldNotBeNil)
				n, err := testutil.GatherAndCount(registry)
				So(err, ShouldBeNil)
				So(n, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When creating with custom naming", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithPrometheusRegistry(registry),
			)
			manager.framesProcessed.Inc()

			Convey("Then metric names carry the namespace and subsystem", func() {
				n, err := testutil.GatherAndCount(registry, "test_unit_frames_processed_total")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When options receive empty values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "hoopvision")
				So(manager.subsystem, ShouldEqual, "stats")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording game events", func() {
			beforeThree := testutil.ToFloat64(globalManager.shotsMade.WithLabelValues(ZoneThree))
			beforeDropped := testutil.ToFloat64(globalManager.shotsDropped)
			beforeRebounds := testutil.ToFloat64(globalManager.reboundsCredited)

			RecordShotMade(ZoneThree)
			RecordShotDropped()
			RecordRebound()
			RecordRebound()

			Convey("Then the counters move by the recorded amounts", func() {
				So(testutil.ToFloat64(globalManager.shotsMade.WithLabelValues(ZoneThree)), ShouldEqual, beforeThree+1)
				So(testutil.ToFloat64(globalManager.shotsDropped), ShouldEqual, beforeDropped+1)
				So(testutil.ToFloat64(globalManager.reboundsCredited), ShouldEqual, beforeRebounds+2)
			})
		})

		Convey("When updating gauges", func() {
			UpdateQueueSize(42)
			UpdateActiveSessions(3)
			UpdateWorkerCount(8)

			Convey("Then gauges hold the last value", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 42)
				So(testutil.ToFloat64(globalManager.sessionsActive), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 8)
			})
		})

		Convey("When recording the remaining metrics", func() {
			Convey("Then nothing panics", func() {
				So(func() {
					RecordFrameProcessed()
					RecordFrameNoBall()
					RecordFrameRejected("out_of_order")
					RecordFrameDuplicate()
					RecordFrameLatency(1.5)
					RecordShotMade(ZoneTwo)
					RecordIdentityResolved()
					RecordJerseyRejected("low_confidence")
					RecordSessionCreated()
					RecordSessionClosed()
					UpdateQueueCapacity(100)
					RecordQueueEnqueue()
					RecordQueueEnqueueError("full")
					RecordWorkerError("decode")
					RecordArchiveWrite(3.2)
					RecordArchiveError()
					RecordHTTPRequest("/sessions", "POST", "201")
					RecordHTTPRequestDuration("/sessions", "POST", "201", 0.4)
					RecordHTTPError("/sessions", "POST", "client_error")
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(12)
				}, ShouldNotPanic)
			})
		})

		Convey("When reading the registry", func() {
			Convey("Then it is the custom registry", func() {
				So(GetRegistry(), ShouldEqual, customRegistry)
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent metric updates", t, func() {
		before := testutil.ToFloat64(globalManager.framesProcessed)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					RecordFrameProcessed()
				}
			}()
		}
		wg.Wait()

		Convey("Then no increment is lost", func() {
			So(testutil.ToFloat64(globalManager.framesProcessed), ShouldEqual, before+1000)
		})
	})
}
