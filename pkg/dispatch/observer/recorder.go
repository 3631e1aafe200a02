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

package observer

import (
	"sync"

	"github.com/elevatorsim/dispatch/pkg/dispatch/types"
)

// Recorder keeps the full event history per car exactly as delivered. It does not deduplicate; wrap it in a
// Deduplicator when the source may redeliver.
type Recorder struct {
	mu     sync.Mutex
	events map[int][]types.Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{events: make(map[int][]types.Event)}
}

// Observe appends the event to its car's history.
func (r *Recorder) Observe(event types.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event.CarID] = append(r.events[event.CarID], event)
}

// Events returns a copy of the car's events in delivery order.
func (r *Recorder) Events(carID int) []types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Event(nil), r.events[carID]...)
}

// Floors returns the floors the car reached, in order.
func (r *Recorder) Floors(carID int) []int {
	var floors []int
	for _, e := range r.Events(carID) {
		if e.Type == types.FloorReached {
			floors = append(floors, e.Floor)
		}
	}
	return floors
}

// Completed returns the requests the car completed, in completion order.
func (r *Recorder) Completed(carID int) []types.Request {
	var completed []types.Request
	for _, e := range r.Events(carID) {
		if e.Type == types.TripCompleted && e.Request != nil {
			completed = append(completed, *e.Request)
		}
	}
	return completed
}

// CompletedByCar returns the completed requests of every car that has completed at least one.
func (r *Recorder) CompletedByCar() map[int][]types.Request {
	r.mu.Lock()
	ids := make([]int, 0, len(r.events))
	for id := range r.events {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	out := make(map[int][]types.Request, len(ids))
	for _, id := range ids {
		if completed := r.Completed(id); len(completed) > 0 {
			out[id] = completed
		}
	}
	return out
}
