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

	"google.golang.org/grpc/codes"
	healthPb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"sigs.k8s.io/controller-runtime/pkg/log"

	logutil "github.com/elevatorsim/dispatch/pkg/common/observability/logging"
)

// ServiceName is the service reported by the health server's List.
const ServiceName = "elevator.dispatch"

type healthChecker interface {
	Healthy() error
}

// healthServer reports NOT_SERVING as soon as any car has failed.
type healthServer struct {
	checker healthChecker
}

func (s *healthServer) Check(ctx context.Context, in *healthPb.HealthCheckRequest) (*healthPb.HealthCheckResponse, error) {
	if err := s.checker.Healthy(); err != nil {
		log.FromContext(ctx).V(logutil.DEFAULT).Info("gRPC health check not serving", "service", in.Service, "reason", err.Error())
		return &healthPb.HealthCheckResponse{Status: healthPb.HealthCheckResponse_NOT_SERVING}, nil
	}
	log.FromContext(ctx).V(logutil.DEBUG).Info("gRPC health check serving", "service", in.Service)
	return &healthPb.HealthCheckResponse{Status: healthPb.HealthCheckResponse_SERVING}, nil
}

func (s *healthServer) List(ctx context.Context, _ *healthPb.HealthListRequest) (*healthPb.HealthListResponse, error) {
	resp, err := s.Check(ctx, &healthPb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return nil, err
	}
	return &healthPb.HealthListResponse{
		Statuses: map[string]*healthPb.HealthCheckResponse{ServiceName: resp},
	}, nil
}

func (s *healthServer) Watch(_ *healthPb.HealthCheckRequest, _ healthPb.Health_WatchServer) error {
	return status.Error(codes.Unimplemented, "Watch is not implemented")
}
