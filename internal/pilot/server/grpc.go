// Copyright 2026 The Gemo Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcmw "github.com/gemo-rc/gemo/internal/pkg/middleware/grpc"
	"github.com/gemo-rc/gemo/pkg/log"
	"github.com/gemo-rc/gemo/pkg/options"
)

// HealthService is the name reported by the gRPC health server.
const HealthService = "gemo.pilot"

const healthPollInterval = time.Second

// GRPCServer exposes grpc.health.v1, SERVING while the decider is ready.
type GRPCServer struct {
	server  *grpc.Server
	health  *health.Server
	backend Backend
	options *options.GrpcOptions
}

func NewGRPCServer(opts *options.GrpcOptions, backend Backend) *GRPCServer {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcmw.UnaryServerTimeout(opts.Timeout)))
	hs := health.NewServer()
	hs.SetServingStatus(HealthService, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)

	return &GRPCServer{
		server:  s,
		health:  hs,
		backend: backend,
		options: opts,
	}
}

// Sync copies the decider readiness into the health status.
func (s *GRPCServer) Sync() {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if s.backend.Ready() {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(HealthService, status)
}

func (s *GRPCServer) Start(ctx context.Context) error {
	lis, err := net.Listen(s.options.Network, s.options.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve runs the server on lis until ctx ends.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	log.Info("Starting gRPC Server", "addr", lis.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	ticker := time.NewTicker(healthPollInterval)
	defer ticker.Stop()
	s.Sync()

	for {
		select {
		case err := <-errCh:
			return err
		case <-ticker.C:
			s.Sync()
		case <-ctx.Done():
			s.health.Shutdown()
			s.server.GracefulStop()
			return nil
		}
	}
}
