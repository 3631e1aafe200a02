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
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/elevatorsim/dispatch/pkg/dispatch/types"
)

// DefaultDedupTTL is how long a delivered notification is remembered.
const DefaultDedupTTL = time.Minute

// Deduplicator forwards each distinct notification once. Two events are the same notification when they share type,
// car, sequence number, floor, request and timestamp. Entries expire after the TTL, bounding memory for long-running systems.
type Deduplicator struct {
	next Observer
	seen *ttlcache.Cache[string, struct{}]
}

// NewDeduplicator wraps next. A non-positive ttl selects DefaultDedupTTL. Call Stop to release the expiry goroutine.
func NewDeduplicator(next Observer, ttl time.Duration) *Deduplicator {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	seen := ttlcache.New[string, struct{}](
		ttlcache.WithTTL[string, struct{}](ttl),
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)
	go seen.Start()
	return &Deduplicator{next: next, seen: seen}
}

// Observe forwards event unless an identical one was already forwarded within the TTL.
func (d *Deduplicator) Observe(event types.Event) {
	if _, found := d.seen.GetOrSet(dedupKey(event), struct{}{}); found {
		return
	}
	d.next.Observe(event)
}

// Stop stops the expiry goroutine.
func (d *Deduplicator) Stop() {
	d.seen.Stop()
}

func dedupKey(event types.Event) string {
	requestID := ""
	if event.Request != nil {
		requestID = event.Request.ID.String()
	}
	return fmt.Sprintf("%s/%d/%d/%d/%s/%d", event.Type, event.CarID, event.Seq, event.Floor, requestID,
		event.Timestamp.UnixNano())
}
