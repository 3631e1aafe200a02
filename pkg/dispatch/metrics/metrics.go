/*
Copyright 2025 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

const (
	// --- Subsystems ---
	DispatcherComponent = "elevator_dispatcher"
	CarComponent        = "elevator_car"
	SystemComponent     = "elevator_system"

	// --- Outcomes ---
	OutcomeAssigned           = "assigned"
	OutcomeInvalidFloor       = "invalid_floor"
	OutcomeEmptyTrip          = "empty_trip"
	OutcomeSelectionExhausted = "selection_exhausted"
)

var (
	// --- Common Label Sets ---
	CarLabels = []string{"car_id"}

	// TripDurationBuckets covers trips from a fraction of a second to several minutes of simulated travel.
	TripDurationBuckets = []float64{
		0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 10, 15, 20, 30, 45, 60, 90, 120, 180, 300,
	}

	// SelectionLatencyBuckets covers the selection+enqueue critical section, from 1us to 100ms.
	SelectionLatencyBuckets = []float64{
		0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1,
	}
)

// --- Dispatcher Metrics ---
var (
	hallCallCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: DispatcherComponent,
			Name:      "hall_call_total",
			Help:      "Counter of hall calls broken out by admission outcome.",
		},
		[]string{"outcome"},
	)

	assignmentCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: DispatcherComponent,
			Name:      "assignment_total",
			Help:      "Counter of admitted hall calls broken out by the car they were assigned to.",
		},
		CarLabels,
	)

	selectionLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Subsystem: DispatcherComponent,
			Name:      "selection_duration_seconds",
			Help:      "Time spent holding the selection lock to score cars and enqueue the winner.",
			Buckets:   SelectionLatencyBuckets,
		},
	)
)

// --- Car Metrics ---
var (
	carFloor = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Subsystem: CarComponent,
			Name:      "current_floor",
			Help:      "Floor the car most recently reached.",
		},
		CarLabels,
	)

	carQueueLength = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Subsystem: CarComponent,
			Name:      "queue_length",
			Help:      "Number of requests waiting in the car's queue.",
		},
		CarLabels,
	)

	floorsTraveled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: CarComponent,
			Name:      "floors_traveled_total",
			Help:      "Counter of floor steps taken by the car.",
		},
		CarLabels,
	)

	tripDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Subsystem: CarComponent,
			Name:      "trip_duration_seconds",
			Help:      "Time from hall call admission until the car reached the destination floor.",
			Buckets:   TripDurationBuckets,
		},
		CarLabels,
	)

	carFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: CarComponent,
			Name:      "failures_total",
			Help:      "Counter of car workers that terminated unexpectedly.",
		},
		CarLabels,
	)
)

// --- System Metrics ---
var (
	systemInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Subsystem: SystemComponent,
			Name:      "info",
			Help:      "General information of the current build.",
		},
		[]string{"commit", "build_ref"},
	)
)

var registerMetrics sync.Once

// Register all metrics.
func Register(customCollectors ...prometheus.Collector) {
	registerMetrics.Do(func() {
		metrics.Registry.MustRegister(hallCallCounter)
		metrics.Registry.MustRegister(assignmentCounter)
		metrics.Registry.MustRegister(selectionLatency)

		metrics.Registry.MustRegister(carFloor)
		metrics.Registry.MustRegister(carQueueLength)
		metrics.Registry.MustRegister(floorsTraveled)
		metrics.Registry.MustRegister(tripDuration)
		metrics.Registry.MustRegister(carFailures)

		metrics.Registry.MustRegister(systemInfo)
		for _, collector := range customCollectors {
			metrics.Registry.MustRegister(collector)
		}
	})
}

// Reset clears every metric. Used by tests.
func Reset() {
	hallCallCounter.Reset()
	assignmentCounter.Reset()
	carFloor.Reset()
	carQueueLength.Reset()
	floorsTraveled.Reset()
	tripDuration.Reset()
	carFailures.Reset()
	systemInfo.Reset()
}

func carLabel(carID int) string {
	return strconv.Itoa(carID)
}

// RecordHallCall records the admission outcome of a hall call.
func RecordHallCall(outcome string) {
	hallCallCounter.WithLabelValues(outcome).Inc()
}

// RecordAssignment records that a hall call was enqueued on the given car.
func RecordAssignment(carID int) {
	assignmentCounter.WithLabelValues(carLabel(carID)).Inc()
}

// RecordSelectionLatency records how long the selection lock was held.
func RecordSelectionLatency(duration time.Duration) {
	selectionLatency.Observe(duration.Seconds())
}

// RecordCarFloor records the floor a car has just reached.
func RecordCarFloor(carID, floor int) {
	carFloor.WithLabelValues(carLabel(carID)).Set(float64(floor))
}

// RecordFloorStep counts one floor of travel for a car.
func RecordFloorStep(carID int) {
	floorsTraveled.WithLabelValues(carLabel(carID)).Inc()
}

// RecordCarQueueLength records a car's current queue length.
func RecordCarQueueLength(carID, length int) {
	carQueueLength.WithLabelValues(carLabel(carID)).Set(float64(length))
}

// RecordTripDuration records the admission-to-destination time of a completed request.
func RecordTripDuration(carID int, duration time.Duration) {
	tripDuration.WithLabelValues(carLabel(carID)).Observe(duration.Seconds())
}

// RecordCarFailure records that a car's worker terminated unexpectedly.
func RecordCarFailure(carID int) {
	carFailures.WithLabelValues(carLabel(carID)).Inc()
}

// RecordSystemInfo exports the build information.
func RecordSystemInfo(commitSha, buildRef string) {
	systemInfo.WithLabelValues(commitSha, buildRef).Set(1)
}
