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

// Package selection scores cars for a hall call and picks the winner.
//
// A Policy is a pure function of a car snapshot and the hall call's source floor; lower scores are better. Pick takes
// the argmin across all candidates and breaks ties by the lowest car id, so selection is deterministic for identical
// snapshots. Policies are pluggable through a factory registry.
package selection

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/elevatorsim/dispatch/pkg/dispatch/types"
)

const (
	separator = "/"
)

// TypedName is a utility struct providing a type and a name to policies.
type TypedName struct {
	// Type is the registered type of the policy.
	Type string
	// Name is the name of this policy instance.
	Name string
}

// String returns the type and name rendered as "<name>/<type>".
func (tn TypedName) String() string {
	return tn.Name + separator + tn.Type
}

// Policy scores a car's suitability for a hall call. Implementations must be pure and safe for concurrent use.
type Policy interface {
	// TypedName returns the type and name tuple of this policy instance.
	TypedName() TypedName
	// Score returns the cost of sending the car to sourceFloor. Lower is better.
	Score(snapshot types.CarSnapshot, sourceFloor int) float64
}

// ScoredCar is a candidate car with the score it received.
type ScoredCar struct {
	CarID int
	Score float64
}

// Pick scores every candidate and returns the one with the lowest score, ties going to the lowest car id.
// It returns types.ErrSelectionExhausted if there are no candidates.
func Pick(policy Policy, candidates []types.CarSnapshot, sourceFloor int) (ScoredCar, error) {
	if len(candidates) == 0 {
		return ScoredCar{}, types.ErrSelectionExhausted
	}

	best := ScoredCar{CarID: math.MaxInt, Score: math.Inf(1)}
	for _, snapshot := range candidates {
		score := policy.Score(snapshot, sourceFloor)
		if score < best.Score || (score == best.Score && snapshot.CarID < best.CarID) {
			best = ScoredCar{CarID: snapshot.CarID, Score: score}
		}
	}
	if best.CarID == math.MaxInt {
		// Every score was NaN; fall back to the lowest id so the call is still admitted.
		best = ScoredCar{CarID: lowestID(candidates), Score: math.Inf(1)}
	}
	return best, nil
}

func lowestID(candidates []types.CarSnapshot) int {
	id := candidates[0].CarID
	for _, c := range candidates[1:] {
		if c.CarID < id {
			id = c.CarID
		}
	}
	return id
}

// FactoryFunc instantiates a policy from its configured name and raw JSON parameters.
type FactoryFunc func(name string, parameters json.RawMessage) (Policy, error)

// Registry is a mapping from policy type to factory function.
var Registry = map[string]FactoryFunc{}

// Register is a static function that can be called to register policy factory functions.
func Register(policyType string, factory FactoryFunc) {
	Registry[policyType] = factory
}

// NewPolicy instantiates a registered policy. An empty name defaults to the policy type.
func NewPolicy(policyType, name string, parameters json.RawMessage) (Policy, error) {
	factory, ok := Registry[policyType]
	if !ok {
		return nil, fmt.Errorf("unknown selection policy type %q, registered types: %v", policyType, RegisteredTypes())
	}
	if name == "" {
		name = policyType
	}
	return factory(name, parameters)
}

// RegisteredTypes returns the registered policy types, sorted.
func RegisteredTypes() []string {
	out := make([]string, 0, len(Registry))
	for t := range Registry {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func init() {
	Register(NearestCarPolicyType, NearestCarPolicyFactory)
	Register(LeastLoadedPolicyType, LeastLoadedPolicyFactory)
}
