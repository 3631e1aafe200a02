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

// Package queue provides the per-car request queue: an unbounded, concurrent-safe FIFO backed by a standard library
// `container/list.List`, with a blocking take for the car's single consumer goroutine.
package queue

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"

	"github.com/elevatorsim/dispatch/pkg/dispatch/types"
)

// RequestQueue holds the pending requests of one car.
//
// Any number of producers may call `Append` concurrently. `TakeNext` is designed for exactly one consumer, the car's
// worker; the wake-up signal is a single-slot channel, which is sufficient because only that one goroutine ever waits
// on it.
type RequestQueue struct {
	mu       sync.Mutex
	requests *list.List
	length   atomic.Int64
	// notify holds at most one pending wake-up for the consumer.
	notify chan struct{}
	// onLength is called with the new length under mu, so calls are ordered like the changes.
	onLength func(length int)
}

// Option configures a RequestQueue.
type Option func(*RequestQueue)

// WithLengthObserver registers fn to receive the queue length after every append and take. fn runs while the queue
// lock is held and must not call back into the queue.
func WithLengthObserver(fn func(length int)) Option {
	return func(q *RequestQueue) {
		q.onLength = fn
	}
}

// New creates an empty RequestQueue.
func New(opts ...Option) *RequestQueue {
	q := &RequestQueue{
		requests: list.New(),
		notify:   make(chan struct{}, 1),
		onLength: func(int) {},
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Append enqueues a request at the tail and wakes the consumer if it is blocked. It never rejects a request.
func (q *RequestQueue) Append(req types.Request) {
	q.mu.Lock()
	q.requests.PushBack(req)
	q.onLength(int(q.length.Add(1)))
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
		// A wake-up is already pending; the consumer will observe this request when it drains.
	}
}

// TakeNext blocks until a request is available, then removes and returns the head of the queue.
// It returns the context's error if ctx ends while waiting; queued requests are left in place.
func (q *RequestQueue) TakeNext(ctx context.Context) (types.Request, error) {
	for {
		if req, ok := q.pop(); ok {
			return req, nil
		}
		select {
		case <-q.notify:
		case <-ctx.Done():
			return types.Request{}, ctx.Err()
		}
	}
}

func (q *RequestQueue) pop() (types.Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	front := q.requests.Front()
	if front == nil {
		return types.Request{}, false
	}
	q.requests.Remove(front)
	q.onLength(int(q.length.Add(-1)))
	return front.Value.(types.Request), true
}

// Len returns the number of queued requests. It does not take the queue lock.
func (q *RequestQueue) Len() int {
	return int(q.length.Load())
}

// Pending returns a copy of the queued requests in FIFO order without removing them.
func (q *RequestQueue) Pending() []types.Request {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := make([]types.Request, 0, q.requests.Len())
	for e := q.requests.Front(); e != nil; e = e.Next() {
		pending = append(pending, e.Value.(types.Request))
	}
	return pending
}
