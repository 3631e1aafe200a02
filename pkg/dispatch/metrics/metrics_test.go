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
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

func TestRecordHallCallAndAssignment(t *testing.T) {
	Register()
	Reset()

	RecordHallCall(OutcomeAssigned)
	RecordHallCall(OutcomeAssigned)
	RecordHallCall(OutcomeEmptyTrip)
	RecordAssignment(0)
	RecordAssignment(0)
	RecordAssignment(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(hallCallCounter.WithLabelValues(OutcomeAssigned)))
	assert.Equal(t, 1.0, testutil.ToFloat64(hallCallCounter.WithLabelValues(OutcomeEmptyTrip)))
	assert.Equal(t, 2.0, testutil.ToFloat64(assignmentCounter.WithLabelValues("0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(assignmentCounter.WithLabelValues("2")))

	want := `
# HELP elevator_dispatcher_hall_call_total Counter of hall calls broken out by admission outcome.
# TYPE elevator_dispatcher_hall_call_total counter
elevator_dispatcher_hall_call_total{outcome="assigned"} 2
elevator_dispatcher_hall_call_total{outcome="empty_trip"} 1
`
	require.NoError(t, testutil.GatherAndCompare(metrics.Registry, strings.NewReader(want), DispatcherComponent+"_hall_call_total"))
}

func TestRecordCarMetrics(t *testing.T) {
	Register()
	Reset()

	RecordCarFloor(1, 7)
	RecordCarQueueLength(1, 3)
	RecordFloorStep(1)
	RecordFloorStep(1)
	RecordCarFailure(1)
	RecordTripDuration(1, 1500*time.Millisecond)

	assert.Equal(t, 7.0, testutil.ToFloat64(carFloor.WithLabelValues("1")))
	assert.Equal(t, 3.0, testutil.ToFloat64(carQueueLength.WithLabelValues("1")))
	assert.Equal(t, 2.0, testutil.ToFloat64(floorsTraveled.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(carFailures.WithLabelValues("1")))
	assert.Equal(t, 1, testutil.CollectAndCount(tripDuration, CarComponent+"_trip_duration_seconds"))
}
