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

package runner

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCallSpecsSet(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    CallSpec
		wantErr bool
	}{
		{name: "up trip", input: "5:10", want: CallSpec{Source: 5, Destination: 10}},
		{name: "down trip with spaces", input: " 6 : 2 ", want: CallSpec{Source: 6, Destination: 2}},
		{name: "negative floors are parsed", input: "-1:5", want: CallSpec{Source: -1, Destination: 5}},
		{name: "missing separator", input: "5", wantErr: true},
		{name: "non numeric source", input: "lobby:3", wantErr: true},
		{name: "non numeric destination", input: "3:", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var specs CallSpecs
			err := specs.Set(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Set(%q) = nil, want error", tc.input)
				}
				if len(specs) != 0 {
					t.Errorf("Set(%q) appended %v on error", tc.input, specs)
				}
				return
			}
			if err != nil {
				t.Fatalf("Set(%q) returned error: %v", tc.input, err)
			}
			if diff := cmp.Diff(CallSpecs{tc.want}, specs); diff != "" {
				t.Errorf("Set(%q) mismatch (-want +got):\n%s", tc.input, diff)
			}
		})
	}
}

func TestCallSpecsString(t *testing.T) {
	var specs CallSpecs
	for _, s := range []string{"5:10", "6:2"} {
		if err := specs.Set(s); err != nil {
			t.Fatalf("Set(%q) returned error: %v", s, err)
		}
	}
	if got, want := specs.String(), "5:10 6:2"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
