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
	"encoding/json"
	"flag"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/pflag"
	uberzap "go.uber.org/zap"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/elevatorsim/dispatch/pkg/common/observability/logging"
	"github.com/elevatorsim/dispatch/pkg/dispatch/config"
	"github.com/elevatorsim/dispatch/pkg/dispatch/selection"
)

const (
	DefaultMetricsPort    = 9090
	DefaultGrpcHealthPort = 9005
	ZapLogLevelFlagName   = "zap-log-level"
)

// Options contains the command-line configuration of the elevator binary.
type Options struct {
	//
	// System configuration. Flags override the config file and ELEVATOR_* environment variables, but only when set.
	//
	ConfigFile                string        // Optional YAML file with the system configuration.
	NumCars                   int           // Number of cars.
	MinFloor                  int           // Lowest floor.
	MaxFloor                  int           // Highest floor.
	StartFloor                int           // Floor every car starts at.
	FloorTravelTime           time.Duration // Simulated time to move one floor.
	SelectionPolicy           string        // Registered selection policy type.
	SelectionPolicyParameters string        // JSON parameters for the selection policy.
	//
	// Demo.
	//
	Calls        CallSpecs // Repeatable --call <source>:<destination> flag values.
	ExitWhenIdle bool      // Exit once every call was served instead of waiting for a signal.
	//
	// Diagnostics.
	//
	LogVerbosity   int         // Number for the log level verbosity.
	ZapOptions     zap.Options // Zap logging options.
	MetricsPort    int         // The Prometheus metrics port.
	GRPCHealthPort int         // The port for gRPC liveness and readiness probes.
	EnablePprof    bool        // Serves pprof profiles next to the metrics.

	// internal
	fs *pflag.FlagSet // FlagSet used in AddFlags() and consulted in Complete() and ConfigOptions()
}

// NewOptions returns a new Options struct initialized with default values.
func NewOptions() *Options {
	return &Options{
		NumCars:         config.DefaultNumCars,
		MinFloor:        config.DefaultMinFloor,
		MaxFloor:        config.DefaultMaxFloor,
		StartFloor:      config.DefaultStartFloor,
		FloorTravelTime: config.DefaultFloorTravelTime,
		SelectionPolicy: selection.NearestCarPolicyType,
		LogVerbosity:    logging.DEFAULT,
		ZapOptions:      zap.Options{Development: true},
		MetricsPort:     DefaultMetricsPort,
		GRPCHealthPort:  DefaultGrpcHealthPort,
		EnablePprof:     true,
	}
}

// AddFlags binds the Options fields to command-line flags on the given FlagSet.
func (opts *Options) AddFlags(fs *pflag.FlagSet) {
	if fs == nil {
		fs = pflag.CommandLine
	}
	opts.fs = fs

	fs.StringVar(&opts.ConfigFile, "config", opts.ConfigFile,
		"Path to a YAML file with the elevator system configuration.")
	fs.IntVar(&opts.NumCars, "num-cars", opts.NumCars,
		"Number of elevator cars.")
	fs.IntVar(&opts.MinFloor, "min-floor", opts.MinFloor,
		"Lowest floor a hall call may name.")
	fs.IntVar(&opts.MaxFloor, "max-floor", opts.MaxFloor,
		"Highest floor a hall call may name.")
	fs.IntVar(&opts.StartFloor, "start-floor", opts.StartFloor,
		"Floor every car is parked at on startup.")
	fs.DurationVar(&opts.FloorTravelTime, "floor-travel-time", opts.FloorTravelTime,
		"Simulated time a car takes to move one floor.")
	fs.StringVar(&opts.SelectionPolicy, "selection-policy", opts.SelectionPolicy,
		"Car selection policy type, e.g. nearest-car or least-loaded.")
	fs.StringVar(&opts.SelectionPolicyParameters, "selection-policy-parameters", opts.SelectionPolicyParameters,
		"JSON parameters passed to the selection policy.")
	fs.Var(&opts.Calls, "call", `Repeatable. --call <source>:<destination>`)
	fs.BoolVar(&opts.ExitWhenIdle, "exit-when-idle", opts.ExitWhenIdle,
		"Exit once every --call was served instead of running until a signal is received.")
	fs.IntVar(&opts.MetricsPort, "metrics-port", opts.MetricsPort,
		"The port serving Prometheus metrics.")
	fs.IntVar(&opts.GRPCHealthPort, "grpc-health-port", opts.GRPCHealthPort,
		"The port used for gRPC liveness and readiness probes.")
	fs.BoolVar(&opts.EnablePprof, "enable-pprof", opts.EnablePprof,
		"Enables pprof handlers on the metrics port. Defaults to true. Set to false to disable pprof handlers.")
	fs.IntVarP(&opts.LogVerbosity, "v", "v", opts.LogVerbosity,
		"Number for the log level verbosity.")

	// zap binds to a standard Go FlagSet only.
	gofs := flag.NewFlagSet("zap", flag.ExitOnError)
	opts.ZapOptions.BindFlags(gofs)
	fs.AddGoFlagSet(gofs)
}

// Complete performs post-processing of parsed command-line arguments.
func (opts *Options) Complete() error {
	// Derive the zap log level from -v unless --zap-log-level was given.
	if opts.fs == nil {
		return nil
	}
	zapLogLevelFlag := opts.fs.Lookup(ZapLogLevelFlagName)
	if zapLogLevelFlag != nil && !zapLogLevelFlag.Changed {
		opts.ZapOptions.Level = uberzap.NewAtomicLevelAt(logging.VerbosityLevel(opts.LogVerbosity))
		zapLogLevelFlag.Changed = true
	}
	return nil
}

// Validate checks the Options for invalid or conflicting values. The system configuration itself is validated when
// it is built.
func (opts *Options) Validate() error {
	for _, pc := range []struct {
		name string
		port int
	}{
		{"grpc-health-port", opts.GRPCHealthPort},
		{"metrics-port", opts.MetricsPort},
	} {
		if pc.port < 1 || pc.port > 65535 {
			return fmt.Errorf("invalid value %d for flag %q: must be between 1 and 65535", pc.port, pc.name)
		}
	}
	if opts.GRPCHealthPort == opts.MetricsPort {
		return fmt.Errorf("port conflict: grpc-health-port (%d) and metrics-port (%d) must be different",
			opts.GRPCHealthPort, opts.MetricsPort)
	}

	if opts.LogVerbosity < 0 {
		return fmt.Errorf("invalid value %d for flag %q: must be >= 0", opts.LogVerbosity, "v")
	}

	if opts.SelectionPolicyParameters != "" && !json.Valid([]byte(opts.SelectionPolicyParameters)) {
		return fmt.Errorf("invalid value for flag %q: not valid JSON", "selection-policy-parameters")
	}
	return nil
}

// ConfigOptions layers the system configuration sources: the config file, then the environment, then the flags that
// were set explicitly. Without a bound FlagSet every field counts as set.
func (opts *Options) ConfigOptions(logger logr.Logger) ([]config.ConfigOption, error) {
	var out []config.ConfigOption
	if opts.ConfigFile != "" {
		fileOpts, err := config.LoadFile(opts.ConfigFile)
		if err != nil {
			return nil, err
		}
		out = append(out, fileOpts...)
	}
	out = append(out, config.FromEnv(logger))

	changed := func(name string) bool {
		if opts.fs == nil {
			return true
		}
		f := opts.fs.Lookup(name)
		return f != nil && f.Changed
	}
	if changed("num-cars") {
		out = append(out, config.WithNumCars(opts.NumCars))
	}
	if changed("min-floor") {
		out = append(out, func(c *config.Config) { c.MinFloor = opts.MinFloor })
	}
	if changed("max-floor") {
		out = append(out, func(c *config.Config) { c.MaxFloor = opts.MaxFloor })
	}
	if changed("start-floor") {
		out = append(out, config.WithStartFloor(opts.StartFloor))
	}
	if changed("floor-travel-time") {
		out = append(out, config.WithFloorTravelTime(opts.FloorTravelTime))
	}
	if changed("selection-policy") {
		spec := config.PolicySpec{Type: opts.SelectionPolicy}
		if opts.SelectionPolicyParameters != "" {
			spec.Parameters = json.RawMessage(opts.SelectionPolicyParameters)
		}
		out = append(out, config.WithSelectionPolicy(spec))
	} else if changed("selection-policy-parameters") {
		// Parameters alone tune whichever policy the lower layers chose.
		params := json.RawMessage(opts.SelectionPolicyParameters)
		out = append(out, func(c *config.Config) { c.SelectionPolicy.Parameters = params })
	}
	return out, nil
}
