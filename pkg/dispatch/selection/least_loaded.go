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

package selection

import (
	"encoding/json"
	"fmt"

	"github.com/elevatorsim/dispatch/pkg/dispatch/types"
)

const (
	LeastLoadedPolicyType = "least-loaded"

	// DefaultDistanceWeight keeps distance a tie-breaker among cars with equal outstanding work in buildings of up to
	// a thousand floors.
	DefaultDistanceWeight = 0.001
)

// compile-time type assertion
var _ Policy = &LeastLoadedPolicy{}

type leastLoadedParameters struct {
	DistanceWeight *float64 `json:"distanceWeight"`
}

// LeastLoadedPolicyFactory defines the factory function for LeastLoadedPolicy.
func LeastLoadedPolicyFactory(name string, rawParameters json.RawMessage) (Policy, error) {
	weight := DefaultDistanceWeight
	if rawParameters != nil {
		parameters := leastLoadedParameters{}
		if err := json.Unmarshal(rawParameters, &parameters); err != nil {
			return nil, fmt.Errorf("failed to parse the parameters of the '%s' policy - %w", LeastLoadedPolicyType, err)
		}
		if parameters.DistanceWeight != nil {
			weight = *parameters.DistanceWeight
		}
	}
	if weight < 0 {
		return nil, fmt.Errorf("distanceWeight of the '%s' policy must not be negative, got %v", LeastLoadedPolicyType, weight)
	}
	return NewLeastLoadedPolicy(weight).WithName(name), nil
}

// NewLeastLoadedPolicy initializes a new LeastLoadedPolicy and returns its pointer.
func NewLeastLoadedPolicy(distanceWeight float64) *LeastLoadedPolicy {
	return &LeastLoadedPolicy{
		typedName:      TypedName{Type: LeastLoadedPolicyType, Name: LeastLoadedPolicyType},
		distanceWeight: distanceWeight,
	}
}

// LeastLoadedPolicy prefers the car with the least outstanding work (queued requests plus the one in service), using
// weighted distance to the source floor to separate cars with equal load.
type LeastLoadedPolicy struct {
	typedName      TypedName
	distanceWeight float64
}

// TypedName returns the type and name tuple of this policy instance.
func (p *LeastLoadedPolicy) TypedName() TypedName {
	return p.typedName
}

// WithName sets the name of the policy.
func (p *LeastLoadedPolicy) WithName(name string) *LeastLoadedPolicy {
	p.typedName.Name = name
	return p
}

// Score returns outstanding requests plus distanceWeight * |currentFloor - sourceFloor|.
func (p *LeastLoadedPolicy) Score(snapshot types.CarSnapshot, sourceFloor int) float64 {
	load := snapshot.QueueLength
	if snapshot.Busy {
		load++
	}
	return float64(load) + p.distanceWeight*float64(abs(snapshot.CurrentFloor-sourceFloor))
}
