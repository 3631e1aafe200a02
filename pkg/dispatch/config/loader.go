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

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"
	"sigs.k8s.io/yaml"

	"github.com/elevatorsim/dispatch/pkg/common/util/env"
)

// Environment variables that override file and default settings.
const (
	EnvNumCars         = "ELEVATOR_NUM_CARS"
	EnvMinFloor        = "ELEVATOR_MIN_FLOOR"
	EnvMaxFloor        = "ELEVATOR_MAX_FLOOR"
	EnvStartFloor      = "ELEVATOR_START_FLOOR"
	EnvFloorTravelTime = "ELEVATOR_FLOOR_TRAVEL_TIME"
	EnvSelectionPolicy = "ELEVATOR_SELECTION_POLICY"
)

// fileConfig is the on-disk representation. Unset fields keep their defaults.
type fileConfig struct {
	NumCars           *int        `json:"numCars,omitempty"`
	MinFloor          *int        `json:"minFloor,omitempty"`
	MaxFloor          *int        `json:"maxFloor,omitempty"`
	StartFloor        *int        `json:"startFloor,omitempty"`
	FloorTravelTimeMs *int        `json:"floorTravelTimeMs,omitempty"`
	SelectionPolicy   *PolicySpec `json:"selectionPolicy,omitempty"`
}

// Parse decodes a YAML (or JSON) document into options layered over the defaults. Unknown fields are rejected.
func Parse(data []byte) ([]ConfigOption, error) {
	fc := fileConfig{}
	if err := yaml.UnmarshalStrict(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse elevator configuration - %w", err)
	}

	var opts []ConfigOption
	if fc.NumCars != nil {
		opts = append(opts, WithNumCars(*fc.NumCars))
	}
	if fc.MinFloor != nil || fc.MaxFloor != nil {
		minFloor, maxFloor := DefaultMinFloor, DefaultMaxFloor
		if fc.MinFloor != nil {
			minFloor = *fc.MinFloor
		}
		if fc.MaxFloor != nil {
			maxFloor = *fc.MaxFloor
		}
		opts = append(opts, WithFloorRange(minFloor, maxFloor))
	}
	if fc.StartFloor != nil {
		opts = append(opts, WithStartFloor(*fc.StartFloor))
	}
	if fc.FloorTravelTimeMs != nil {
		opts = append(opts, WithFloorTravelTime(time.Duration(*fc.FloorTravelTimeMs)*time.Millisecond))
	}
	if fc.SelectionPolicy != nil {
		opts = append(opts, WithSelectionPolicy(*fc.SelectionPolicy))
	}
	return opts, nil
}

// LoadFile reads the configuration file at path and returns the options it sets.
func LoadFile(path string) ([]ConfigOption, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read elevator configuration file %q - %w", path, err)
	}
	return Parse(data)
}

// FromEnv returns an option that overrides settings from the ELEVATOR_* environment variables. Unset or malformed
// variables leave the current value untouched.
func FromEnv(logger logr.Logger) ConfigOption {
	return func(c *Config) {
		c.NumCars = env.GetEnvInt(EnvNumCars, c.NumCars, logger)
		c.MinFloor = env.GetEnvInt(EnvMinFloor, c.MinFloor, logger)
		c.MaxFloor = env.GetEnvInt(EnvMaxFloor, c.MaxFloor, logger)
		c.StartFloor = env.GetEnvInt(EnvStartFloor, c.StartFloor, logger)
		c.FloorTravelTime = env.GetEnvDuration(EnvFloorTravelTime, c.FloorTravelTime, logger)
		policyType := env.GetEnvString(EnvSelectionPolicy, c.SelectionPolicy.Type, logger)
		if policyType != "" && policyType != c.SelectionPolicy.Type {
			c.SelectionPolicy = PolicySpec{Type: policyType}
		}
	}
}
