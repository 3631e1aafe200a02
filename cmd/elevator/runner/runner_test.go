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

package runner

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"k8s.io/utils/clock"

	"github.com/elevatorsim/dispatch/pkg/dispatch/types"
)

func freePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()
	return lis.Addr().(*net.TCPAddr).Port
}

func TestRunExitsWhenCallsAreServed(t *testing.T) {
	opts := NewOptions()
	opts.NumCars = 2
	opts.FloorTravelTime = time.Millisecond
	opts.ExitWhenIdle = true
	opts.MetricsPort = freePort(t)
	opts.GRPCHealthPort = freePort(t)
	opts.Calls = CallSpecs{{Source: 5, Destination: 10}, {Source: 6, Destination: 2}, {Source: 3, Destination: 3}}

	r := &Runner{exeName: "elevator-test", clock: clock.RealClock{}}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, r.run(ctx, opts))
	require.NoError(t, ctx.Err(), "the runner must stop on its own once every call is served")
}

func TestTripTrackerSettled(t *testing.T) {
	tracker := newTripTracker()
	status := []types.CarSnapshot{{CarID: 0}, {CarID: 1}}
	require.True(t, tracker.settled(status))

	tracker.admitted(0)
	tracker.admitted(1)
	require.False(t, tracker.settled(status))

	tracker.Observe(types.Event{Type: types.FloorReached, CarID: 0})
	tracker.Observe(types.Event{Type: types.TripCompleted, CarID: 0})
	require.False(t, tracker.settled(status))

	// A failed car never completes its trips; it no longer holds the system up.
	status[1].Failed = true
	require.True(t, tracker.settled(status))
}
