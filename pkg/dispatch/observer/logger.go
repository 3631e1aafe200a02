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
	"github.com/go-logr/logr"

	logutil "github.com/elevatorsim/dispatch/pkg/common/observability/logging"
	"github.com/elevatorsim/dispatch/pkg/dispatch/types"
)

// Logger writes car notifications to a logr logger. Floor steps are logged at VERBOSE, trip milestones at DEFAULT,
// and failures as errors.
type Logger struct {
	logger logr.Logger
}

// NewLogger creates a logging observer.
func NewLogger(logger logr.Logger) *Logger {
	return &Logger{logger: logger.WithName("car-events")}
}

// Observe logs the event.
func (l *Logger) Observe(event types.Event) {
	logger := l.logger.WithValues("carID", event.CarID, "floor", event.Floor, "direction", event.Direction)
	if event.Request != nil {
		logger = logger.WithValues("requestID", event.Request.ID)
	}

	switch event.Type {
	case types.FloorReached:
		logger.V(logutil.VERBOSE).Info("Car reached floor")
	case types.PickupReached:
		logger.V(logutil.DEFAULT).Info("Car reached pickup floor")
	case types.TripCompleted:
		if event.Request != nil {
			logger = logger.WithValues("elapsed", event.Timestamp.Sub(event.Request.CreatedAt))
		}
		logger.V(logutil.DEFAULT).Info("Car completed trip")
	case types.CarFailed:
		logger.Error(event.Err, "Car worker failed, queued requests are orphaned")
	}
}
