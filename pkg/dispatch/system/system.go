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

// Package system wires cars, their workers and the dispatcher into a running elevator system.
package system

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"
	"sigs.k8s.io/controller-runtime/pkg/log"

	logutil "github.com/elevatorsim/dispatch/pkg/common/observability/logging"
	"github.com/elevatorsim/dispatch/pkg/dispatch/car"
	"github.com/elevatorsim/dispatch/pkg/dispatch/config"
	"github.com/elevatorsim/dispatch/pkg/dispatch/dispatcher"
	"github.com/elevatorsim/dispatch/pkg/dispatch/observer"
	"github.com/elevatorsim/dispatch/pkg/dispatch/selection"
	"github.com/elevatorsim/dispatch/pkg/dispatch/types"
)

var (
	// ErrAlreadyStarted is returned by Start when the workers are already running.
	ErrAlreadyStarted = errors.New("elevator system already started")
	// ErrNotStarted is returned by Wait when Start was never called.
	ErrNotStarted = errors.New("elevator system not started")
)

// Option customizes a System at construction.
type Option func(*options)

type options struct {
	clock     clock.Clock
	logger    logr.Logger
	policy    selection.Policy
	observers []observer.Observer
}

// WithClock sets the clock driving car movement. Tests pass a fake clock.
func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		o.clock = clk
	}
}

// WithLogger sets the logger used by the system and its cars.
func WithLogger(logger logr.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithPolicy overrides the selection policy named in the config.
func WithPolicy(policy selection.Policy) Option {
	return func(o *options) {
		o.policy = policy
	}
}

// WithObserver subscribes an observer before any car exists.
func WithObserver(obs observer.Observer) Option {
	return func(o *options) {
		o.observers = append(o.observers, obs)
	}
}

// System is the elevator system's public surface: it owns the cars, indexed by id, and the dispatcher.
type System struct {
	cfg        config.Config
	cars       []*car.Car
	dispatcher *dispatcher.Dispatcher
	logger     logr.Logger

	subscribersMu sync.RWMutex
	subscribers   []observer.Observer

	startMu sync.Mutex
	group   *errgroup.Group
}

// New builds a system of cfg.NumCars cars, all parked at cfg.StartFloor. A config with zero cars is rejected with
// types.ErrSelectionExhausted since no hall call could ever be served.
func New(cfg config.Config, opts ...Option) (*System, error) {
	o := options{clock: clock.RealClock{}, logger: logr.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.NumCars == 0 {
		return nil, types.NewSelectionExhaustedError("the system has no cars")
	}
	if cfg.SelectionPolicy.Type == "" {
		cfg.SelectionPolicy.Type = selection.NearestCarPolicyType
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid elevator system config: %w", err)
	}

	policy := o.policy
	if policy == nil {
		var err error
		if policy, err = cfg.NewPolicy(); err != nil {
			return nil, fmt.Errorf("failed to create selection policy: %w", err)
		}
	}

	s := &System{
		cfg:         cfg,
		logger:      o.logger.WithName("elevator-system"),
		subscribers: o.observers,
	}

	s.cars = make([]*car.Car, cfg.NumCars)
	dispatchable := make([]dispatcher.Car, cfg.NumCars)
	for id := range s.cars {
		s.cars[id] = car.New(car.Params{
			ID:              id,
			StartFloor:      cfg.StartFloor,
			MinFloor:        cfg.MinFloor,
			MaxFloor:        cfg.MaxFloor,
			FloorTravelTime: cfg.FloorTravelTime,
		}, o.clock, observer.Func(s.publish), o.logger)
		dispatchable[id] = s.cars[id]
	}
	s.dispatcher = dispatcher.New(dispatchable, dispatcher.FloorRange{Min: cfg.MinFloor, Max: cfg.MaxFloor}, policy, o.clock)

	s.logger.V(logutil.DEFAULT).Info("Elevator system created", "cars", cfg.NumCars, "minFloor", cfg.MinFloor,
		"maxFloor", cfg.MaxFloor, "startFloor", cfg.StartFloor, "floorTravelTime", cfg.FloorTravelTime,
		"policy", policy.TypedName().String())
	return s, nil
}

// Subscribe registers an observer for every car event emitted from now on. Delivery is synchronous on the emitting
// car's worker, so observers must not block.
func (s *System) Subscribe(obs observer.Observer) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()
	s.subscribers = append(s.subscribers, obs)
}

func (s *System) publish(event types.Event) {
	s.subscribersMu.RLock()
	subscribers := s.subscribers
	s.subscribersMu.RUnlock()
	observer.Fanout(subscribers).Observe(event)
}

// Start launches one worker per car. Workers run until ctx is cancelled; a car whose worker fails stops on its own
// while the others keep running.
func (s *System) Start(ctx context.Context) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.group != nil {
		return ErrAlreadyStarted
	}

	s.group = &errgroup.Group{}
	for _, c := range s.cars {
		s.group.Go(func() error {
			return c.Run(ctx)
		})
	}
	s.logger.V(logutil.DEFAULT).Info("Elevator system started", "cars", len(s.cars))
	return nil
}

// Wait blocks until every worker has returned and reports the first car failure, if any.
func (s *System) Wait() error {
	s.startMu.Lock()
	group := s.group
	s.startMu.Unlock()
	if group == nil {
		return ErrNotStarted
	}

	err := group.Wait()
	for id, unfinished := range s.Backlog() {
		ids := make([]string, 0, len(unfinished))
		for _, req := range unfinished {
			ids = append(ids, req.String())
		}
		s.logger.Info("Requests left unserved at shutdown", "carID", id, "count", len(unfinished), "requests", ids)
	}
	return err
}

// RequestCar admits a hall call and assigns it to a car. See dispatcher.Dispatcher.RequestCar for the error contract.
func (s *System) RequestCar(ctx context.Context, sourceFloor, destinationFloor int) (types.Assignment, error) {
	if _, err := logr.FromContext(ctx); err != nil {
		ctx = log.IntoContext(ctx, s.logger)
	}
	return s.dispatcher.RequestCar(ctx, sourceFloor, destinationFloor)
}

// Status returns a snapshot of every car, ordered by car id. Snapshots are read without stopping the cars, so they
// may be slightly stale.
func (s *System) Status() []types.CarSnapshot {
	out := make([]types.CarSnapshot, len(s.cars))
	for id, c := range s.cars {
		out[id] = c.Snapshot()
	}
	return out
}

// Healthy returns nil while every car's worker is alive, or an error wrapping types.ErrCarFailed per failed car.
func (s *System) Healthy() error {
	var errs error
	for _, c := range s.cars {
		if c.Failed() {
			errs = multierr.Append(errs, fmt.Errorf("%w: car %d", types.ErrCarFailed, c.ID()))
		}
	}
	return errs
}

// Backlog returns, per car, the admitted requests the car has not completed: the one in service, if any, followed by
// its queue. Cars with nothing outstanding are omitted. After Wait returns it accounts for every admitted request that
// was not completed.
func (s *System) Backlog() map[int][]types.Request {
	out := make(map[int][]types.Request)
	for _, c := range s.cars {
		if unfinished := c.Unfinished(); len(unfinished) > 0 {
			out[c.ID()] = unfinished
		}
	}
	return out
}

// Config returns the configuration the system was built with.
func (s *System) Config() config.Config {
	return s.cfg
}

// Policy returns the selection policy in use.
func (s *System) Policy() selection.Policy {
	return s.dispatcher.Policy()
}
