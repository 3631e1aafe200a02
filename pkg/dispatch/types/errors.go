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
	"errors"
	"fmt"
)

// --- Admission Errors ---

// The following errors are returned synchronously by a hall call and guarantee that no car state was changed.
// Callers should use `errors.Is` against these sentinels.
var (
	// ErrInvalidFloor indicates the source or destination floor is outside [minFloor, maxFloor].
	ErrInvalidFloor = errors.New("invalid floor")

	// ErrEmptyTrip indicates the source and destination floors are equal.
	ErrEmptyTrip = errors.New("empty trip")

	// ErrSelectionExhausted indicates there is no car able to take a request: the system has no cars, or every car
	// has failed.
	ErrSelectionExhausted = errors.New("no car available for selection")
)

// --- Worker Errors ---

var (
	// ErrCarFailed indicates a car's worker terminated unexpectedly. Requests still queued on that car are orphaned.
	ErrCarFailed = errors.New("car worker failed")
)

// Error codes exposed to external collaborators.
const (
	CodeInvalidFloor       = "INVALID_FLOOR"
	CodeEmptyTrip          = "EMPTY_TRIP"
	CodeSelectionExhausted = "SELECTION_EXHAUSTED"
	CodeUnknown            = "UNKNOWN"
)

// DispatchError is the error returned by a rejected hall call. It wraps one of the admission sentinels.
type DispatchError struct {
	Code string
	Msg  string
	err  error
}

// Error returns a string version of the error.
func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch: %s - %s", e.Code, e.Msg)
}

// Unwrap returns the sentinel this error wraps.
func (e *DispatchError) Unwrap() error {
	return e.err
}

// NewInvalidFloorError reports a floor outside the configured range.
func NewInvalidFloorError(floor, minFloor, maxFloor int) *DispatchError {
	return &DispatchError{
		Code: CodeInvalidFloor,
		Msg:  fmt.Sprintf("floor %d is outside [%d, %d]", floor, minFloor, maxFloor),
		err:  ErrInvalidFloor,
	}
}

// NewEmptyTripError reports a request whose source and destination are the same floor.
func NewEmptyTripError(floor int) *DispatchError {
	return &DispatchError{
		Code: CodeEmptyTrip,
		Msg:  fmt.Sprintf("source and destination are both floor %d", floor),
		err:  ErrEmptyTrip,
	}
}

// NewSelectionExhaustedError reports that no car could be selected.
func NewSelectionExhaustedError(reason string) *DispatchError {
	return &DispatchError{
		Code: CodeSelectionExhausted,
		Msg:  reason,
		err:  ErrSelectionExhausted,
	}
}

// CanonicalCode returns the error's code, or CodeUnknown if err is not a DispatchError.
func CanonicalCode(err error) string {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeUnknown
}
