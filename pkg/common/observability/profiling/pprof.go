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

// Package profiling exposes runtime profiles next to the metrics endpoint.
package profiling

import (
	"net/http"
	"net/http/pprof"
	"runtime"
)

// Profiles are the runtime profiles served under /debug/pprof/. Mutex and block profiles show contention on the
// dispatcher's selection lock and the per-car queues.
var Profiles = []string{
	"heap",
	"goroutine",
	"allocs",
	"threadcreate",
	"block",
	"mutex",
}

// RegisterPprofHandlers adds a handler per profile to mux and turns on mutex and block sampling.
func RegisterPprofHandlers(mux *http.ServeMux) {
	for _, p := range Profiles {
		mux.Handle("/debug/pprof/"+p, pprof.Handler(p))
	}

	runtime.SetMutexProfileFraction(1)
	runtime.SetBlockProfileRate(1)
}
