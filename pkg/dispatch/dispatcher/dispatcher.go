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

// Package dispatcher admits hall calls and assigns each to exactly one car.
package dispatcher

import (
	"context"
	"sync"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"
	"sigs.k8s.io/controller-runtime/pkg/log"

	logutil "github.com/elevatorsim/dispatch/pkg/common/observability/logging"
	"github.com/elevatorsim/dispatch/pkg/dispatch/metrics"
	"github.com/elevatorsim/dispatch/pkg/dispatch/selection"
	"github.com/elevatorsim/dispatch/pkg/dispatch/types"
)

// Car is the minimal view of a car the Dispatcher needs.
type Car interface {
	ID() int
	Snapshot() types.CarSnapshot
	Enqueue(req types.Request)
}

// FloorRange is the inclusive range of floors a hall call may name.
type FloorRange struct {
	Min int
	Max int
}

// Contains reports whether floor lies within the range.
func (r FloorRange) Contains(floor int) bool {
	return floor >= r.Min && floor <= r.Max
}

// Dispatcher validates hall calls, selects a car with its Policy, and enqueues the request on the winner.
//
// Selection is serialized by a dispatcher-wide lock so that two concurrent hall calls never decide on the same stale
// view of the fleet. The lock covers only snapshotting, scoring and the enqueue; it is never held while a car travels.
type Dispatcher struct {
	cars   []Car
	floors FloorRange
	policy selection.Policy
	clock  clock.PassiveClock

	// selectionMu serializes the selection decision and its commit (the enqueue).
	selectionMu sync.Mutex
}

// New creates a Dispatcher over the given cars.
func New(cars []Car, floors FloorRange, policy selection.Policy, clk clock.PassiveClock) *Dispatcher {
	return &Dispatcher{
		cars:   cars,
		floors: floors,
		policy: policy,
		clock:  clk,
	}
}

// Policy returns the selection policy in use.
func (d *Dispatcher) Policy() selection.Policy {
	return d.policy
}

// RequestCar admits a hall call from sourceFloor to destinationFloor and returns the car it was assigned to.
//
// Rejected calls return a *types.DispatchError wrapping types.ErrEmptyTrip, types.ErrInvalidFloor or
// types.ErrSelectionExhausted, and leave every car untouched. An admitted call is never dropped: it is serviced by
// the assigned car.
func (d *Dispatcher) RequestCar(ctx context.Context, sourceFloor, destinationFloor int) (types.Assignment, error) {
	logger := log.FromContext(ctx).WithName("dispatcher").WithValues("source", sourceFloor, "destination", destinationFloor)

	if err := d.validate(sourceFloor, destinationFloor); err != nil {
		logger.V(logutil.DEBUG).Info("Rejecting hall call", "reason", err.Error())
		metrics.RecordHallCall(outcomeFor(err))
		return types.Assignment{}, err
	}

	req := types.NewRequest(sourceFloor, destinationFloor, d.clock.Now())
	winner, err := d.selectAndEnqueue(logger, req)
	if err != nil {
		logger.Error(err, "No car available for hall call")
		metrics.RecordHallCall(metrics.OutcomeSelectionExhausted)
		return types.Assignment{}, err
	}

	metrics.RecordHallCall(metrics.OutcomeAssigned)
	metrics.RecordAssignment(winner.CarID)
	logger.V(logutil.DEBUG).Info("Hall call assigned", "carID", winner.CarID, "score", winner.Score,
		"requestID", req.ID, "policy", d.policy.TypedName().String())
	return types.Assignment{CarID: winner.CarID, Request: req}, nil
}

// validate checks the call before any car is looked at. An empty trip on a floor outside the range is an invalid
// floor.
func (d *Dispatcher) validate(sourceFloor, destinationFloor int) error {
	if sourceFloor == destinationFloor {
		if !d.floors.Contains(sourceFloor) {
			return types.NewInvalidFloorError(sourceFloor, d.floors.Min, d.floors.Max)
		}
		return types.NewEmptyTripError(sourceFloor)
	}
	for _, floor := range []int{sourceFloor, destinationFloor} {
		if !d.floors.Contains(floor) {
			return types.NewInvalidFloorError(floor, d.floors.Min, d.floors.Max)
		}
	}
	return nil
}

func (d *Dispatcher) selectAndEnqueue(logger logr.Logger, req types.Request) (selection.ScoredCar, error) {
	d.selectionMu.Lock()
	defer d.selectionMu.Unlock()

	start := d.clock.Now()
	defer func() { metrics.RecordSelectionLatency(d.clock.Since(start)) }()

	candidates := make([]types.CarSnapshot, 0, len(d.cars))
	byID := make(map[int]Car, len(d.cars))
	for _, c := range d.cars {
		snapshot := c.Snapshot()
		if snapshot.Failed {
			// Sending work to a dead worker would orphan it silently.
			logger.V(logutil.VERBOSE).Info("Skipping failed car", "carID", snapshot.CarID)
			continue
		}
		candidates = append(candidates, snapshot)
		byID[snapshot.CarID] = c
	}
	logger.V(logutil.TRACE).Info("Scoring cars", "candidates", candidates)

	winner, err := selection.Pick(d.policy, candidates, req.SourceFloor)
	if err != nil {
		return selection.ScoredCar{}, types.NewSelectionExhaustedError("no healthy car can take the hall call")
	}
	byID[winner.CarID].Enqueue(req)
	return winner, nil
}

func outcomeFor(err error) string {
	switch types.CanonicalCode(err) {
	case types.CodeEmptyTrip:
		return metrics.OutcomeEmptyTrip
	case types.CodeInvalidFloor:
		return metrics.OutcomeInvalidFloor
	default:
		return metrics.OutcomeSelectionExhausted
	}
}
