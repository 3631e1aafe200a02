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

package system

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logutil "github.com/elevatorsim/dispatch/pkg/common/observability/logging"
	"github.com/elevatorsim/dispatch/pkg/dispatch/config"
	"github.com/elevatorsim/dispatch/pkg/dispatch/observer"
	"github.com/elevatorsim/dispatch/pkg/dispatch/types"
)

const waitFor = 5 * time.Second

func newTestConfig(t *testing.T, opts ...config.ConfigOption) config.Config {
	t.Helper()
	base := []config.ConfigOption{
		config.WithNumCars(3),
		config.WithFloorRange(0, 10),
		config.WithFloorTravelTime(time.Millisecond),
	}
	cfg, err := config.NewConfig(append(base, opts...)...)
	require.NoError(t, err)
	return *cfg
}

// startSystem builds and starts a system whose events are captured by the returned recorder.
func startSystem(t *testing.T, cfg config.Config, opts ...Option) (*System, *observer.Recorder, context.CancelFunc) {
	t.Helper()
	rec := observer.NewRecorder()
	opts = append([]Option{WithLogger(logutil.NewTestLogger()), WithObserver(rec)}, opts...)
	s, err := New(cfg, opts...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	t.Cleanup(func() {
		cancel()
		_ = s.Wait()
	})
	return s, rec, cancel
}

func totalQueued(status []types.CarSnapshot) int {
	n := 0
	for _, snap := range status {
		n += snap.QueueLength
		if snap.Busy {
			n++
		}
	}
	return n
}

func TestNew_ZeroCars(t *testing.T) {
	t.Parallel()
	_, err := New(config.Config{NumCars: 0, MinFloor: 0, MaxFloor: 10})
	require.ErrorIs(t, err, types.ErrSelectionExhausted)
	assert.Equal(t, types.CodeSelectionExhausted, types.CanonicalCode(err))
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()
	_, err := New(config.Config{NumCars: 2, MinFloor: 5, MaxFloor: 1})
	require.Error(t, err)
}

func TestNew_DefaultsToNearestCar(t *testing.T) {
	t.Parallel()
	s, err := New(config.Config{NumCars: 1, MinFloor: 0, MaxFloor: 3})
	require.NoError(t, err)
	assert.Equal(t, "nearest-car", s.Policy().TypedName().Type)
}

func TestStartAndWait_Lifecycle(t *testing.T) {
	t.Parallel()
	s, err := New(newTestConfig(t), WithLogger(logutil.NewTestLogger()))
	require.NoError(t, err)
	require.ErrorIs(t, s.Wait(), ErrNotStarted)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	require.ErrorIs(t, s.Start(ctx), ErrAlreadyStarted)

	cancel()
	require.NoError(t, s.Wait(), "a clean shutdown reports no failure")
	require.NoError(t, s.Healthy())
}

func TestStatus_InitialState(t *testing.T) {
	t.Parallel()
	s, err := New(newTestConfig(t, config.WithStartFloor(2)))
	require.NoError(t, err)

	status := s.Status()
	require.Len(t, status, 3)
	for id, snap := range status {
		assert.Equal(t, id, snap.CarID, "status must be ordered by car id")
		assert.Equal(t, 2, snap.CurrentFloor)
		assert.Equal(t, types.Idle, snap.Direction)
		assert.Zero(t, snap.QueueLength)
	}
}

func TestScenarioA_TieBreakAndArrival(t *testing.T) {
	t.Parallel()
	s, rec, _ := startSystem(t, newTestConfig(t))

	assignment, err := s.RequestCar(context.Background(), 5, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, assignment.CarID, "equal distances resolve to the lowest car id")

	require.Eventually(t, func() bool { return len(rec.Completed(0)) == 1 }, waitFor, time.Millisecond)
	require.Eventually(t, func() bool { return s.Status()[0].Direction == types.Idle }, waitFor, time.Millisecond)

	assert.Equal(t, 10, s.Status()[0].CurrentFloor)
	if diff := cmp.Diff([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, rec.Floors(0)); diff != "" {
		t.Errorf("floors reached mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, rec.Events(1))
	assert.Empty(t, rec.Events(2))
}

func TestScenarioBC_RejectedCallsChangeNothing(t *testing.T) {
	t.Parallel()
	s, rec, _ := startSystem(t, newTestConfig(t, config.WithStartFloor(4)))
	before := s.Status()

	_, err := s.RequestCar(context.Background(), 3, 3)
	require.ErrorIs(t, err, types.ErrEmptyTrip)

	_, err = s.RequestCar(context.Background(), -1, 5)
	require.ErrorIs(t, err, types.ErrInvalidFloor)

	_, err = s.RequestCar(context.Background(), 5, 11)
	require.ErrorIs(t, err, types.ErrInvalidFloor)

	after := s.Status()
	for i := range before {
		assert.Equal(t, before[i].CurrentFloor, after[i].CurrentFloor)
		assert.Equal(t, before[i].QueueLength, after[i].QueueLength)
		assert.Equal(t, types.Idle, after[i].Direction)
	}
	assert.Empty(t, rec.CompletedByCar())
}

func TestScenarioD_ConcurrentCallsAreConsistent(t *testing.T) {
	t.Parallel()
	s, rec, _ := startSystem(t, newTestConfig(t, config.WithFloorTravelTime(20*time.Millisecond)))

	calls := [][2]int{{5, 10}, {6, 2}}
	assignments := make([]types.Assignment, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := s.RequestCar(context.Background(), call[0], call[1])
			assert.NoError(t, err)
			assignments[i] = a
		}()
	}
	wg.Wait()

	// Both calls land on one car (outstanding 2) or on two cars (1 each); Status must agree with the assignments
	// before anything drains.
	perCar := make(map[int]int)
	for _, a := range assignments {
		perCar[a.CarID]++
	}
	require.Eventually(t, func() bool {
		status := s.Status()
		for _, snap := range status {
			if totalQueued([]types.CarSnapshot{snap}) != perCar[snap.CarID] {
				return false
			}
		}
		return true
	}, waitFor, time.Millisecond, "Status must account for every assignment: %v", perCar)

	require.Eventually(t, func() bool {
		n := 0
		for _, completed := range rec.CompletedByCar() {
			n += len(completed)
		}
		return n == len(calls)
	}, waitFor, time.Millisecond)

	for _, a := range assignments {
		completed := rec.Completed(a.CarID)
		ids := make([]string, 0, len(completed))
		for _, r := range completed {
			ids = append(ids, r.ID.String())
		}
		assert.Contains(t, ids, a.Request.ID.String(), "request must be completed by the car it was assigned to")
	}
	require.Eventually(t, func() bool { return totalQueued(s.Status()) == 0 }, waitFor, time.Millisecond)
}

func TestScenarioE_CarsMoveIndependently(t *testing.T) {
	t.Parallel()
	s, rec, _ := startSystem(t, newTestConfig(t,
		config.WithNumCars(2),
		config.WithFloorRange(0, 20),
		config.WithFloorTravelTime(20*time.Millisecond)))

	long, err := s.RequestCar(context.Background(), 0, 20)
	require.NoError(t, err)
	require.Equal(t, 0, long.CarID)
	require.Eventually(t, func() bool { return s.Status()[0].CurrentFloor >= 3 }, waitFor, time.Millisecond)

	requestedAt := time.Now()
	short, err := s.RequestCar(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Equal(t, 1, short.CarID, "the idle car is nearer to the new call")

	require.Eventually(t, func() bool { return len(rec.Completed(1)) == 1 }, waitFor, time.Millisecond)
	status := s.Status()
	assert.True(t, status[0].Busy, "car 0 must still be on its long trip")
	assert.Empty(t, rec.Completed(0))
	assert.True(t, status[1].UpdatedAt.After(requestedAt), "car 1 moved while car 0 was travelling")
}

func TestRequestCar_NoLossNoDuplication(t *testing.T) {
	t.Parallel()
	const callers, callsPerCaller = 8, 25
	s, rec, _ := startSystem(t, newTestConfig(t, config.WithFloorTravelTime(time.Microsecond)))

	var mu sync.Mutex
	assignedTo := make(map[string]int)
	var wg sync.WaitGroup
	for c := 0; c < callers; c++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed))
			for i := 0; i < callsPerCaller; i++ {
				src := r.Intn(11)
				dst := (src + 1 + r.Intn(10)) % 11
				a, err := s.RequestCar(context.Background(), src, dst)
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				assignedTo[a.Request.ID.String()] = a.CarID
				mu.Unlock()
			}
		}(int64(c))
	}
	wg.Wait()
	require.Len(t, assignedTo, callers*callsPerCaller)

	require.Eventually(t, func() bool {
		n := 0
		for _, completed := range rec.CompletedByCar() {
			n += len(completed)
		}
		return n >= callers*callsPerCaller
	}, waitFor, time.Millisecond)

	seen := make(map[string]bool)
	for carID, completed := range rec.CompletedByCar() {
		for _, r := range completed {
			id := r.ID.String()
			assert.False(t, seen[id], "request %s completed twice", id)
			seen[id] = true
			assert.Equal(t, assignedTo[id], carID, "request %s completed by the wrong car", id)
		}
	}
	assert.Len(t, seen, callers*callsPerCaller)
	assert.Empty(t, s.Backlog())
}

func TestWait_BacklogAccountsForInterruptedTrips(t *testing.T) {
	t.Parallel()
	s, rec, cancel := startSystem(t, newTestConfig(t,
		config.WithNumCars(2),
		config.WithFloorTravelTime(50*time.Millisecond)))

	const admitted = 3
	for i := 0; i < admitted; i++ {
		_, err := s.RequestCar(context.Background(), 0, 10)
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool {
		for _, snap := range s.Status() {
			if snap.Busy {
				return true
			}
		}
		return false
	}, waitFor, time.Millisecond)

	cancel()
	require.NoError(t, s.Wait())

	unfinished := 0
	for _, reqs := range s.Backlog() {
		unfinished += len(reqs)
	}
	completed := 0
	for _, reqs := range rec.CompletedByCar() {
		completed += len(reqs)
	}
	assert.Equal(t, admitted, unfinished+completed, "every admitted request is either completed or in the backlog")
	assert.Greater(t, unfinished, 0)
}

func TestCarFailure_RaisesAlarmAndIsSkipped(t *testing.T) {
	t.Parallel()
	s, rec, cancel := startSystem(t, newTestConfig(t))
	s.Subscribe(observer.Func(func(e types.Event) {
		if e.CarID == 0 && e.Type == types.FloorReached && e.Floor == 2 {
			panic("sensor fault")
		}
	}))

	a, err := s.RequestCar(context.Background(), 0, 5)
	require.NoError(t, err)
	require.Equal(t, 0, a.CarID)

	require.Eventually(t, func() bool { return s.Healthy() != nil }, waitFor, time.Millisecond)
	require.ErrorIs(t, s.Healthy(), types.ErrCarFailed)
	assert.True(t, s.Status()[0].Failed)

	failures := 0
	for _, e := range rec.Events(0) {
		if e.Type == types.CarFailed {
			failures++
			assert.ErrorIs(t, e.Err, types.ErrCarFailed)
		}
	}
	assert.Equal(t, 1, failures)

	next, err := s.RequestCar(context.Background(), 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, next.CarID, "new calls avoid the failed car")

	cancel()
	require.ErrorIs(t, s.Wait(), types.ErrCarFailed)
}
