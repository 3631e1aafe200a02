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

	"github.com/elevatorsim/dispatch/pkg/dispatch/types"
)

const (
	NearestCarPolicyType = "nearest-car"
)

// compile-time type assertion
var _ Policy = &NearestCarPolicy{}

// NearestCarPolicyFactory defines the factory function for NearestCarPolicy.
func NearestCarPolicyFactory(name string, _ json.RawMessage) (Policy, error) {
	return NewNearestCarPolicy().WithName(name), nil
}

// NewNearestCarPolicy initializes a new NearestCarPolicy and returns its pointer.
func NewNearestCarPolicy() *NearestCarPolicy {
	return &NearestCarPolicy{
		typedName: TypedName{Type: NearestCarPolicyType, Name: NearestCarPolicyType},
	}
}

// NearestCarPolicy is the baseline greedy policy: the score is the distance between the car's current floor and the
// hall call's source floor.
//
// It deliberately ignores queue depth and direction, so a nearby but heavily loaded car still wins. This uneven load
// is a known property of the baseline; use a different policy rather than changing this one.
type NearestCarPolicy struct {
	typedName TypedName
}

// TypedName returns the type and name tuple of this policy instance.
func (p *NearestCarPolicy) TypedName() TypedName {
	return p.typedName
}

// WithName sets the name of the policy.
func (p *NearestCarPolicy) WithName(name string) *NearestCarPolicy {
	p.typedName.Name = name
	return p
}

// Score returns |currentFloor - sourceFloor|.
func (p *NearestCarPolicy) Score(snapshot types.CarSnapshot, sourceFloor int) float64 {
	return float64(abs(snapshot.CurrentFloor - sourceFloor))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
