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
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"google.golang.org/grpc"
	healthPb "google.golang.org/grpc/health/grpc_health_v1"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/manager"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/elevatorsim/dispatch/internal/runnable"
	logutil "github.com/elevatorsim/dispatch/pkg/common/observability/logging"
	"github.com/elevatorsim/dispatch/pkg/common/observability/profiling"
	"github.com/elevatorsim/dispatch/pkg/dispatch/config"
	"github.com/elevatorsim/dispatch/pkg/dispatch/metrics"
	"github.com/elevatorsim/dispatch/pkg/dispatch/observer"
	"github.com/elevatorsim/dispatch/pkg/dispatch/system"
	"github.com/elevatorsim/dispatch/pkg/dispatch/types"
	"github.com/elevatorsim/dispatch/version"
)

const idlePollInterval = 50 * time.Millisecond

var setupLog = ctrl.Log.WithName("setup")

func NewRunner() *Runner {
	return &Runner{
		exeName: "elevator",
		clock:   clock.RealClock{},
	}
}

// Runner runs the elevator system together with its health and metrics servers.
type Runner struct {
	exeName string
	clock   clock.WithTicker
}

// WithExecutableName sets the name of the executable containing the runner.
// The name is used in the version log upon startup and is otherwise opaque.
func (r *Runner) WithExecutableName(exeName string) *Runner {
	r.exeName = exeName
	return r
}

// Run parses the command line and runs until ctx ends, or until every call is served with --exit-when-idle.
func (r *Runner) Run(ctx context.Context) error {
	opts := NewOptions()
	opts.AddFlags(pflag.CommandLine)
	pflag.Parse()

	if err := opts.Complete(); err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		setupLog.Error(err, "Failed to validate flags")
		return err
	}
	logutil.InitLogging(&opts.ZapOptions)

	setupLog.Info(r.exeName+" build", "commit-sha", version.CommitSHA, "build-ref", version.BuildRef)
	flags := make(map[string]any)
	pflag.VisitAll(func(f *pflag.Flag) {
		flags[f.Name] = f.Value
	})
	setupLog.Info("Flags processed", "flags", flags)

	return r.run(ctx, opts)
}

func (r *Runner) run(ctx context.Context, opts *Options) error {
	cfgOpts, err := opts.ConfigOptions(setupLog)
	if err != nil {
		setupLog.Error(err, "Failed to load elevator configuration")
		return err
	}
	cfg, err := config.NewConfig(cfgOpts...)
	if err != nil {
		setupLog.Error(err, "Invalid elevator configuration")
		return err
	}

	metrics.Register()
	metrics.RecordSystemInfo(version.CommitSHA, version.BuildRef)

	events := observer.NewDeduplicator(observer.NewLogger(ctrl.Log.WithName("events")), observer.DefaultDedupTTL)
	defer events.Stop()
	progress := newTripTracker()

	sys, err := system.New(*cfg,
		system.WithLogger(ctrl.Log),
		system.WithClock(r.clock),
		system.WithObserver(events),
		system.WithObserver(progress))
	if err != nil {
		setupLog.Error(err, "Failed to create elevator system")
		return err
	}

	ctx, cancel := context.WithCancel(log.IntoContext(ctx, ctrl.Log))
	defer cancel()
	if err := sys.Start(ctx); err != nil {
		setupLog.Error(err, "Failed to start elevator system")
		return err
	}

	healthSrv := grpc.NewServer()
	healthPb.RegisterHealthServer(healthSrv, &healthServer{checker: sys})

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(ctrlmetrics.Registry, promhttp.HandlerOpts{}))
	if opts.EnablePprof {
		setupLog.Info("Setting pprof handlers")
		profiling.RegisterPprofHandlers(metricsMux)
	}

	setupLog.Info("Elevator system running")
	runErr := runnable.RunAll(ctx,
		runnable.GRPCServer("health", healthSrv, opts.GRPCHealthPort),
		runnable.HTTPServer("metrics", metricsMux, opts.MetricsPort),
		r.issueCalls(sys, progress, opts.Calls, opts.ExitWhenIdle, cancel),
	)
	if runErr != nil {
		setupLog.Error(runErr, "Server failed")
	}

	cancel()
	if err := sys.Wait(); err != nil {
		setupLog.Error(err, "Elevator system stopped with failed cars")
		runErr = multierr.Append(runErr, err)
	}
	setupLog.Info("Elevator system terminated")
	return runErr
}

// issueCalls submits the configured hall calls in order. With exitWhenIdle it calls stop once every admitted call was
// completed or is stuck on a failed car.
func (r *Runner) issueCalls(sys *system.System, progress *tripTracker, calls CallSpecs, exitWhenIdle bool,
	stop context.CancelFunc) manager.Runnable {
	return manager.RunnableFunc(func(ctx context.Context) error {
		logger := log.FromContext(ctx).WithName("calls")
		for _, call := range calls {
			a, err := sys.RequestCar(ctx, call.Source, call.Destination)
			if err != nil {
				logger.Error(err, "Hall call rejected", "source", call.Source, "destination", call.Destination,
					"code", types.CanonicalCode(err))
				continue
			}
			progress.admitted(a.CarID)
			logger.Info("Hall call assigned", "carID", a.CarID, "request", a.Request.String())
		}
		if !exitWhenIdle {
			return nil
		}

		ticker := r.clock.NewTicker(idlePollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C():
				if progress.settled(sys.Status()) {
					logger.Info("All hall calls served, shutting down", "progress", progress.String())
					stop()
					return nil
				}
			}
		}
	})
}

// tripTracker counts admitted and completed trips per car.
type tripTracker struct {
	mu        sync.Mutex
	pending   map[int]int
	completed int
}

func newTripTracker() *tripTracker {
	return &tripTracker{pending: make(map[int]int)}
}

func (t *tripTracker) admitted(carID int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[carID]++
}

func (t *tripTracker) Observe(event types.Event) {
	if event.Type != types.TripCompleted {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[event.CarID]--
	t.completed++
}

// settled reports whether no healthy car has an admitted trip left to complete.
func (t *tripTracker) settled(status []types.CarSnapshot) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, snap := range status {
		if !snap.Failed && t.pending[snap.CarID] > 0 {
			return false
		}
	}
	return true
}

func (t *tripTracker) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fmt.Sprintf("completed=%d pending=%v", t.completed, t.pending)
}
