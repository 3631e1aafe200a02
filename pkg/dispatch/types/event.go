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

package types

import "time"

// EventType identifies the kind of notification a car emits.
type EventType string

const (
	// FloorReached is emitted on every floor step during travel.
	FloorReached EventType = "FloorReached"
	// PickupReached is emitted when a car arrives at a request's source floor.
	PickupReached EventType = "PickupReached"
	// TripCompleted is emitted when a car arrives at a request's destination floor.
	TripCompleted EventType = "TripCompleted"
	// CarFailed is emitted once when a car's worker terminates unexpectedly.
	CarFailed EventType = "CarFailed"
)

// Event is a notification emitted by a car's worker. Delivery is at-least-once.
type Event struct {
	Type      EventType
	CarID     int
	Floor     int
	Direction Direction
	// Request is the request being serviced, if any.
	Request   *Request
	Timestamp time.Time
	// Seq numbers a car's events from 1 in emission order. A redelivered event keeps its Seq.
	Seq uint64
	// Err is set for CarFailed events.
	Err error
}
