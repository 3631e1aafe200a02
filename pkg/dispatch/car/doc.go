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

// Package car implements a single elevator car: its request queue, its worker goroutine, and the floor-by-floor
// movement simulation.
//
// # Concurrency Model
//
// Each car is serviced by exactly one worker goroutine (`Car.Run`). The worker is the single writer of the car's
// floor, direction and busy state; it publishes them through atomics so that the dispatcher can read a `Snapshot`
// at any time without blocking the worker. The only state written from other goroutines is the tail of the car's
// `queue.RequestQueue`, through `Car.Enqueue`.
//
// A worker suspends only inside `RequestQueue.TakeNext`, when its queue is empty, and resumes when a request is
// appended. Requests are serviced strictly in FIFO order, one at a time: the car first travels to the request's source
// floor, then to its destination floor, one floor per configured travel time.
//
// # Failure
//
// A panic in the worker (for example from an observer) is recovered at the `Run` boundary. The car is marked failed,
// a `CarFailed` event is emitted, and `Run` returns an error wrapping `types.ErrCarFailed`. Requests still queued on
// the car are left where they are; they are not reassigned.
package car
