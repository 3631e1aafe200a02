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

// Package runnable adapts the servers of the elevator binary to manager.Runnable and runs them together.
package runnable

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/go-logr/logr"
	"google.golang.org/grpc"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/manager"
)

// GRPCServer serves srv on port until the context passed to Start ends, then stops it gracefully.
// The name only appears in logs.
func GRPCServer(name string, srv *grpc.Server, port int) manager.Runnable {
	return manager.RunnableFunc(func(ctx context.Context) error {
		logger := log.FromContext(ctx).WithValues("name", name, "port", port)

		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			return fmt.Errorf("gRPC server %s failed to listen - %w", name, err)
		}
		return serveGRPC(ctx, logger, srv, lis)
	})
}

func serveGRPC(ctx context.Context, logger logr.Logger, srv *grpc.Server, lis net.Listener) error {
	logger.Info("gRPC server listening")

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			logger.Info("gRPC server shutting down")
			srv.GracefulStop()
		case <-stopped:
		}
	}()

	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("gRPC server failed - %w", err)
	}
	logger.Info("gRPC server terminated")
	return nil
}
