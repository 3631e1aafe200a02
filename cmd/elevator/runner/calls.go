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
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// CallSpec is one hall call given on the command line as <source>:<destination>.
type CallSpec struct {
	Source      int
	Destination int
}

// CallSpecs implements pflag.Value for the repeatable --call flag, keeping the calls in flag order.
type CallSpecs []CallSpec

func (c *CallSpecs) Set(s string) error {
	src, dst, ok := strings.Cut(s, ":")
	if !ok {
		return errors.New("usage: --call <source>:<destination>")
	}
	source, err := strconv.Atoi(strings.TrimSpace(src))
	if err != nil {
		return fmt.Errorf("invalid source floor %q: %w", src, err)
	}
	destination, err := strconv.Atoi(strings.TrimSpace(dst))
	if err != nil {
		return fmt.Errorf("invalid destination floor %q: %w", dst, err)
	}
	*c = append(*c, CallSpec{Source: source, Destination: destination})
	return nil
}

func (c *CallSpecs) String() string {
	out := make([]string, 0, len(*c))
	for _, call := range *c {
		out = append(out, fmt.Sprintf("%d:%d", call.Source, call.Destination))
	}
	return strings.Join(out, " ")
}

func (c *CallSpecs) Type() string {
	return "source:destination"
}
