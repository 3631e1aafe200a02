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

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Direction is the travel direction of a car.
type Direction int

const (
	// Idle holds only while a car's queue is empty and it is not servicing a request.
	Idle Direction = iota
	Up
	Down
)

// String returns the direction rendered as IDLE, UP or DOWN.
func (d Direction) String() string {
	switch d {
	case Idle:
		return "IDLE"
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// DirectionTo returns the direction a car at floor from must travel to reach floor to.
func DirectionTo(from, to int) Direction {
	switch {
	case to > from:
		return Up
	case to < from:
		return Down
	default:
		return Idle
	}
}

// Step returns the floor delta for one step in this direction.
func (d Direction) Step() int {
	switch d {
	case Up:
		return 1
	case Down:
		return -1
	default:
		return 0
	}
}

// Request is a hall call admitted into the system. It is immutable once created and lives until the servicing car
// reaches its destination floor.
type Request struct {
	ID               uuid.UUID
	SourceFloor      int
	DestinationFloor int
	CreatedAt        time.Time
}

// NewRequest creates a request stamped with a fresh ID.
func NewRequest(source, destination int, createdAt time.Time) Request {
	return Request{
		ID:               uuid.New(),
		SourceFloor:      source,
		DestinationFloor: destination,
		CreatedAt:        createdAt,
	}
}

// String renders the request for logs.
func (r Request) String() string {
	return fmt.Sprintf("%d->%d (%s)", r.SourceFloor, r.DestinationFloor, r.ID)
}

// Assignment is the result of a successful hall call.
type Assignment struct {
	CarID   int
	Request Request
}

// CarSnapshot is a best-effort, point-in-time view of a car. It drives car selection and status reporting and may
// lag the car's own worker by one step.
type CarSnapshot struct {
	CarID        int
	CurrentFloor int
	Direction    Direction
	QueueLength  int
	// Busy is true while the car is servicing a request.
	Busy bool
	// Failed is true once the car's worker has terminated unexpectedly.
	Failed bool
	// UpdatedAt is when the car's floor or direction last changed.
	UpdatedAt time.Time
}
