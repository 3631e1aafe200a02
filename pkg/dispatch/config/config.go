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

// Package config holds the construction-time configuration of the elevator system and loads it from YAML files and
// environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/elevatorsim/dispatch/pkg/dispatch/selection"
)

const (
	// DefaultNumCars is the number of cars in a default building.
	DefaultNumCars = 3
	// DefaultMinFloor is the lowest floor; floors start at zero.
	DefaultMinFloor = 0
	// DefaultMaxFloor is the highest floor.
	DefaultMaxFloor = 10
	// DefaultStartFloor is where every car is parked at startup.
	DefaultStartFloor = 0
	// DefaultFloorTravelTime is the simulated time to move one floor.
	DefaultFloorTravelTime = 1 * time.Second
)

// PolicySpec selects and parameterizes the car selection policy.
type PolicySpec struct {
	// Type is a registered selection policy type, e.g. "nearest-car".
	Type string `json:"type"`
	// Name is the instance name used in logs. Optional: defaults to Type.
	Name string `json:"name,omitempty"`
	// Parameters are passed verbatim to the policy factory.
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

// Config holds the configuration consumed by the elevator system.
type Config struct {
	// NumCars is the number of cars. Zero is accepted here and rejected by the system with ErrSelectionExhausted.
	NumCars int
	// MinFloor and MaxFloor bound every floor a request may name, inclusive.
	MinFloor int
	MaxFloor int
	// StartFloor is where every car is parked at startup.
	StartFloor int
	// FloorTravelTime is the simulated time a car takes to move one floor.
	FloorTravelTime time.Duration
	// SelectionPolicy chooses the car for each hall call.
	SelectionPolicy PolicySpec
}

// ConfigOption is a functional option for configuring the elevator system.
type ConfigOption func(*Config)

// NewConfig creates a new Config with the given options, applying defaults and validation.
func NewConfig(opts ...ConfigOption) (*Config, error) {
	c := &Config{
		NumCars:         DefaultNumCars,
		MinFloor:        DefaultMinFloor,
		MaxFloor:        DefaultMaxFloor,
		StartFloor:      DefaultStartFloor,
		FloorTravelTime: DefaultFloorTravelTime,
		SelectionPolicy: PolicySpec{Type: selection.NearestCarPolicyType},
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// WithNumCars sets the number of cars.
func WithNumCars(n int) ConfigOption {
	return func(c *Config) {
		c.NumCars = n
	}
}

// WithFloorRange sets the inclusive floor range.
func WithFloorRange(minFloor, maxFloor int) ConfigOption {
	return func(c *Config) {
		c.MinFloor = minFloor
		c.MaxFloor = maxFloor
	}
}

// WithStartFloor sets the floor every car starts at.
func WithStartFloor(floor int) ConfigOption {
	return func(c *Config) {
		c.StartFloor = floor
	}
}

// WithFloorTravelTime sets the simulated per-floor travel time.
func WithFloorTravelTime(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.FloorTravelTime = d
	}
}

// WithSelectionPolicy sets the selection policy.
func WithSelectionPolicy(spec PolicySpec) ConfigOption {
	return func(c *Config) {
		c.SelectionPolicy = spec
	}
}

// Validate checks the configuration and reports every problem it finds.
func (c *Config) Validate() error {
	var errs error
	if c.NumCars < 0 {
		errs = multierr.Append(errs, fmt.Errorf("NumCars cannot be negative, but got %d", c.NumCars))
	}
	if c.MaxFloor <= c.MinFloor {
		errs = multierr.Append(errs, fmt.Errorf("MaxFloor (%d) must be greater than MinFloor (%d)", c.MaxFloor, c.MinFloor))
	}
	if c.StartFloor < c.MinFloor || c.StartFloor > c.MaxFloor {
		errs = multierr.Append(errs, fmt.Errorf("StartFloor %d must be within [%d, %d]", c.StartFloor, c.MinFloor, c.MaxFloor))
	}
	if c.FloorTravelTime < 0 {
		errs = multierr.Append(errs, fmt.Errorf("FloorTravelTime cannot be negative, but got %v", c.FloorTravelTime))
	}
	if _, ok := selection.Registry[c.SelectionPolicy.Type]; !ok {
		errs = multierr.Append(errs, fmt.Errorf("unknown selection policy type %q, registered types: %v",
			c.SelectionPolicy.Type, selection.RegisteredTypes()))
	}
	return errs
}

// NewPolicy instantiates the configured selection policy.
func (c *Config) NewPolicy() (selection.Policy, error) {
	return selection.NewPolicy(c.SelectionPolicy.Type, c.SelectionPolicy.Name, c.SelectionPolicy.Parameters)
}
