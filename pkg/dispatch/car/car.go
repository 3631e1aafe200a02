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

package car

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	logutil "github.com/elevatorsim/dispatch/pkg/common/observability/logging"
	"github.com/elevatorsim/dispatch/pkg/dispatch/metrics"
	"github.com/elevatorsim/dispatch/pkg/dispatch/observer"
	"github.com/elevatorsim/dispatch/pkg/dispatch/queue"
	"github.com/elevatorsim/dispatch/pkg/dispatch/types"
)

// Params holds the construction-time settings of a car.
type Params struct {
	ID              int
	StartFloor      int
	MinFloor        int
	MaxFloor        int
	FloorTravelTime time.Duration
}

// Car is one elevator cabin with its own request queue and dedicated worker.
type Car struct {
	// --- Immutable dependencies (set at construction) ---

	params   Params
	queue    *queue.RequestQueue
	clock    clock.Clock
	observer observer.Observer
	logger   logr.Logger

	// --- Worker-owned state, published for lock-free reads ---

	currentFloor atomic.Int64
	direction    atomic.Int32
	busy         atomic.Bool
	failed       atomic.Bool
	updatedAt    atomic.Int64 // unix nanoseconds
	// inService is the request taken from the queue and not yet completed. It survives shutdown and failure.
	inService atomic.Pointer[types.Request]
	// seq numbers the events this car emits.
	seq atomic.Uint64
}

// New creates a car parked at params.StartFloor. The worker is not started; call Run in its own goroutine.
func New(params Params, clk clock.Clock, obs observer.Observer, logger logr.Logger) *Car {
	if obs == nil {
		obs = observer.Nop
	}
	q := queue.New(queue.WithLengthObserver(func(length int) {
		metrics.RecordCarQueueLength(params.ID, length)
	}))
	c := &Car{
		params:   params,
		queue:    q,
		clock:    clk,
		observer: obs,
		logger:   logger.WithName("car").WithValues("carID", params.ID),
	}
	c.currentFloor.Store(int64(params.StartFloor))
	c.direction.Store(int32(types.Idle))
	c.updatedAt.Store(clk.Now().UnixNano())
	metrics.RecordCarFloor(params.ID, params.StartFloor)
	return c
}

// ID returns the car's id.
func (c *Car) ID() int {
	return c.params.ID
}

// Enqueue appends a request to the car's queue. It is safe to call from any goroutine and never blocks on travel.
func (c *Car) Enqueue(req types.Request) {
	c.queue.Append(req)
}

// Pending returns the requests waiting in the car's queue, not including the one in service.
func (c *Car) Pending() []types.Request {
	return c.queue.Pending()
}

// Unfinished returns every admitted request the car has not completed: the one in service, if any, followed by the
// queued ones in FIFO order. It is exact once Run has returned.
func (c *Car) Unfinished() []types.Request {
	pending := c.queue.Pending()
	current := c.inService.Load()
	if current == nil {
		return pending
	}
	return append([]types.Request{*current}, pending...)
}

// Snapshot returns a best-effort view of the car's state. It never blocks the worker.
func (c *Car) Snapshot() types.CarSnapshot {
	return types.CarSnapshot{
		CarID:        c.params.ID,
		CurrentFloor: int(c.currentFloor.Load()),
		Direction:    types.Direction(c.direction.Load()),
		QueueLength:  c.queue.Len(),
		Busy:         c.busy.Load(),
		Failed:       c.failed.Load(),
		UpdatedAt:    time.Unix(0, c.updatedAt.Load()),
	}
}

// Failed reports whether the car's worker terminated unexpectedly.
func (c *Car) Failed() bool {
	return c.failed.Load()
}

// Run is the car's worker loop. It must be run as a goroutine, exactly once per car.
//
// It blocks on the queue while idle, services each request to completion, and repeats until ctx is cancelled, in
// which case it returns nil. It returns an error wrapping `types.ErrCarFailed` if the worker panics.
func (c *Car) Run(ctx context.Context) (err error) {
	c.logger.V(logutil.DEFAULT).Info("Car worker starting", "floor", c.floor())
	defer func() {
		if r := recover(); r != nil {
			err = c.fail(fmt.Errorf("%w: car %d: %v", types.ErrCarFailed, c.params.ID, r))
		}
	}()

	for {
		req, err := c.queue.TakeNext(ctx)
		if err != nil {
			c.logger.V(logutil.DEFAULT).Info("Car worker stopped", "floor", c.floor(), "orphanedRequests", c.queue.Len())
			return nil
		}
		c.inService.Store(&req)

		if err := c.service(ctx, req); err != nil {
			c.logger.V(logutil.DEFAULT).Info("Car worker stopped mid-trip", "floor", c.floor(), "request", req.String(),
				"orphanedRequests", len(c.Unfinished()))
			return nil
		}
		c.inService.Store(nil)
	}
}

// service carries one request from its source floor to its destination floor. It returns an error only if ctx ends
// during travel.
func (c *Car) service(ctx context.Context, req types.Request) error {
	logger := c.logger.WithValues("requestID", req.ID, "source", req.SourceFloor, "destination", req.DestinationFloor)
	logger.V(logutil.VERBOSE).Info("Servicing request", "floor", c.floor())

	c.busy.Store(true)
	defer c.busy.Store(false)

	if err := c.travelTo(ctx, req.SourceFloor, &req); err != nil {
		return err
	}
	c.emit(types.PickupReached, &req)

	if err := c.travelTo(ctx, req.DestinationFloor, &req); err != nil {
		return err
	}
	c.emit(types.TripCompleted, &req)
	metrics.RecordTripDuration(c.params.ID, c.clock.Since(req.CreatedAt))
	logger.V(logutil.VERBOSE).Info("Request completed", "remaining", c.queue.Len())

	if c.queue.Len() == 0 {
		c.setDirection(types.Idle)
	}
	return nil
}

// travelTo moves the car one floor per travel time until it reaches target, emitting FloorReached on every step.
func (c *Car) travelTo(ctx context.Context, target int, req *types.Request) error {
	if target < c.params.MinFloor || target > c.params.MaxFloor {
		// Requests are validated on admission; reaching this is a logic error and fails the car.
		panic(fmt.Sprintf("target floor %d outside [%d, %d]", target, c.params.MinFloor, c.params.MaxFloor))
	}

	for floor := c.floor(); floor != target; floor = c.floor() {
		dir := types.DirectionTo(floor, target)
		c.setDirection(dir)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(c.params.FloorTravelTime):
		}

		c.setFloor(floor + dir.Step())
		metrics.RecordFloorStep(c.params.ID)
		c.emit(types.FloorReached, req)
	}
	return nil
}

// fail marks the car failed and raises the alarm. It returns err for convenience.
func (c *Car) fail(err error) error {
	c.failed.Store(true)
	c.busy.Store(false)
	metrics.RecordCarFailure(c.params.ID)
	c.logger.Error(err, "Car worker terminated unexpectedly", "floor", c.floor(), "orphanedRequests", len(c.Unfinished()))

	func() {
		// The failing component may be the observer itself.
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error(fmt.Errorf("%v", r), "Observer panicked while reporting car failure")
			}
		}()
		c.observer.Observe(types.Event{
			Type:      types.CarFailed,
			CarID:     c.params.ID,
			Floor:     c.floor(),
			Direction: c.currentDirection(),
			Timestamp: c.clock.Now(),
			Seq:       c.seq.Add(1),
			Err:       err,
		})
	}()
	return err
}

func (c *Car) emit(eventType types.EventType, req *types.Request) {
	c.observer.Observe(types.Event{
		Type:      eventType,
		CarID:     c.params.ID,
		Floor:     c.floor(),
		Direction: c.currentDirection(),
		Request:   req,
		Timestamp: c.clock.Now(),
		Seq:       c.seq.Add(1),
	})
}

func (c *Car) floor() int {
	return int(c.currentFloor.Load())
}

func (c *Car) currentDirection() types.Direction {
	return types.Direction(c.direction.Load())
}

func (c *Car) setFloor(floor int) {
	c.currentFloor.Store(int64(floor))
	c.updatedAt.Store(c.clock.Now().UnixNano())
	metrics.RecordCarFloor(c.params.ID, floor)
}

func (c *Car) setDirection(dir types.Direction) {
	if types.Direction(c.direction.Swap(int32(dir))) != dir {
		c.updatedAt.Store(c.clock.Now().UnixNano())
	}
}
