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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevatorsim/dispatch/pkg/dispatch/types"
)

func snapshots(floors ...int) []types.CarSnapshot {
	out := make([]types.CarSnapshot, len(floors))
	for i, f := range floors {
		out[i] = types.CarSnapshot{CarID: i, CurrentFloor: f}
	}
	return out
}

func TestNearestCarPolicy(t *testing.T) {
	policy := NewNearestCarPolicy()
	tests := []struct {
		name        string
		candidates  []types.CarSnapshot
		sourceFloor int
		wantCar     int
		wantScore   float64
	}{
		{name: "all at lobby ties to lowest id", candidates: snapshots(0, 0, 0), sourceFloor: 5, wantCar: 0, wantScore: 5},
		{name: "closest wins", candidates: snapshots(0, 9, 4), sourceFloor: 6, wantCar: 2, wantScore: 2},
		{name: "above and below at equal distance ties to lowest id", candidates: snapshots(8, 2), sourceFloor: 5, wantCar: 0, wantScore: 3},
		{name: "car already at source", candidates: snapshots(3, 7), sourceFloor: 7, wantCar: 1, wantScore: 0},
		{
			name: "queue depth is ignored",
			candidates: []types.CarSnapshot{
				{CarID: 0, CurrentFloor: 10, QueueLength: 0},
				{CarID: 1, CurrentFloor: 5, QueueLength: 12, Busy: true, Direction: types.Down},
			},
			sourceFloor: 5,
			wantCar:     1,
			wantScore:   0,
		},
		{
			name: "tie-break uses car id, not slice order",
			candidates: []types.CarSnapshot{
				{CarID: 2, CurrentFloor: 1},
				{CarID: 1, CurrentFloor: 1},
			},
			sourceFloor: 0,
			wantCar:     1,
			wantScore:   1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Pick(policy, tc.candidates, tc.sourceFloor)
			require.NoError(t, err)
			assert.Equal(t, tc.wantCar, got.CarID)
			assert.InDelta(t, tc.wantScore, got.Score, 1e-9)
		})
	}
}

func TestPickIsDeterministic(t *testing.T) {
	policy := NewNearestCarPolicy()
	candidates := snapshots(3, 7, 3, 7)
	first, err := Pick(policy, candidates, 5)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		got, err := Pick(policy, candidates, 5)
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}
	assert.Equal(t, 0, first.CarID)
}

func TestPickNoCandidates(t *testing.T) {
	_, err := Pick(NewNearestCarPolicy(), nil, 3)
	require.ErrorIs(t, err, types.ErrSelectionExhausted)
}

type constPolicy struct{ score float64 }

func (p constPolicy) TypedName() TypedName                 { return TypedName{Type: "const", Name: "const"} }
func (p constPolicy) Score(types.CarSnapshot, int) float64 { return p.score }

func TestPickNaNScoresFallBackToLowestID(t *testing.T) {
	candidates := []types.CarSnapshot{{CarID: 4}, {CarID: 2}, {CarID: 3}}
	got, err := Pick(constPolicy{score: math.NaN()}, candidates, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CarID)

	got, err = Pick(constPolicy{score: math.Inf(1)}, candidates, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CarID)
}

func TestLeastLoadedPolicy(t *testing.T) {
	policy := NewLeastLoadedPolicy(DefaultDistanceWeight)
	candidates := []types.CarSnapshot{
		{CarID: 0, CurrentFloor: 5, QueueLength: 2, Busy: true},
		{CarID: 1, CurrentFloor: 20, QueueLength: 0},
		{CarID: 2, CurrentFloor: 0, QueueLength: 0},
	}
	got, err := Pick(policy, candidates, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CarID, "idle cars beat the loaded car; the nearer idle car wins")
	assert.InDelta(t, 0.005, got.Score, 1e-9)
	assert.InDelta(t, 3.0, policy.Score(candidates[0], 5), 1e-9)
}

func TestNewPolicy(t *testing.T) {
	tests := []struct {
		name       string
		policyType string
		policyName string
		params     string
		wantName   TypedName
		wantErr    bool
	}{
		{name: "nearest default name", policyType: NearestCarPolicyType, wantName: TypedName{Type: NearestCarPolicyType, Name: NearestCarPolicyType}},
		{name: "nearest custom name", policyType: NearestCarPolicyType, policyName: "lobby", wantName: TypedName{Type: NearestCarPolicyType, Name: "lobby"}},
		{name: "least loaded with params", policyType: LeastLoadedPolicyType, params: `{"distanceWeight": 0.5}`, wantName: TypedName{Type: LeastLoadedPolicyType, Name: LeastLoadedPolicyType}},
		{name: "least loaded bad json", policyType: LeastLoadedPolicyType, params: `{`, wantErr: true},
		{name: "least loaded negative weight", policyType: LeastLoadedPolicyType, params: `{"distanceWeight": -1}`, wantErr: true},
		{name: "unknown type", policyType: "scan", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var raw json.RawMessage
			if tc.params != "" {
				raw = json.RawMessage(tc.params)
			}
			policy, err := NewPolicy(tc.policyType, tc.policyName, raw)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantName, policy.TypedName())
		})
	}

	policy, err := NewPolicy(LeastLoadedPolicyType, "", json.RawMessage(`{"distanceWeight": 0.5}`))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, policy.Score(types.CarSnapshot{CurrentFloor: 4}, 0), 1e-9)
	assert.Equal(t, []string{LeastLoadedPolicyType, NearestCarPolicyType}, RegisteredTypes())
	assert.Equal(t, "lobby/nearest-car", TypedName{Type: NearestCarPolicyType, Name: "lobby"}.String())
}
