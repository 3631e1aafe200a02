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

// Package observer defines how car notifications leave the dispatch core and provides the in-tree sinks: a fan-out,
// a logging observer, a history recorder, and a deduplicating wrapper for at-least-once delivery.
package observer

import (
	"github.com/elevatorsim/dispatch/pkg/dispatch/types"
)

// Observer receives car notifications. Observe is called synchronously from a car's worker goroutine, so
// implementations must be quick and safe for concurrent use by several cars.
//
// Delivery is at-least-once: an observer may see the same notification more than once and must tolerate it.
type Observer interface {
	Observe(event types.Event)
}

// Func adapts a plain function to the Observer interface.
type Func func(event types.Event)

// Observe calls f(event).
func (f Func) Observe(event types.Event) {
	f(event)
}

// Fanout delivers every event to each of its observers in order.
type Fanout []Observer

// Observe delivers event to every observer.
func (f Fanout) Observe(event types.Event) {
	for _, o := range f {
		o.Observe(event)
	}
}

// Nop discards every event.
var Nop Observer = Func(func(types.Event) {})
