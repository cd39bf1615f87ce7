// Copyright 2026 The devlogs Authors
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

// Package devlogsgrpc seeds devlogs operation context for gRPC services.
// Server interceptors open an operation scope per RPC from incoming
// metadata; client interceptors propagate the active operation id to
// downstream services so one logical operation spans process boundaries.
package devlogsgrpc

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	devlogs "github.com/devlogs-io/devlogs-go"
)

// DefaultMetadataKey is the metadata key consulted for a caller-supplied
// operation id.
const DefaultMetadataKey = "x-operation-id"

// UnaryServerInterceptor opens an operation scope for each unary RPC.
func UnaryServerInterceptor(opts ...Option) grpc.UnaryServerInterceptor {
	cfg := applyOptions(opts)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx = seedContext(ctx, cfg, info.FullMethod)
		return handler(ctx, req)
	}
}

// StreamServerInterceptor opens an operation scope for each streaming RPC.
// The scope covers the whole stream lifetime.
func StreamServerInterceptor(opts ...Option) grpc.StreamServerInterceptor {
	cfg := applyOptions(opts)

	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := seedContext(ss.Context(), cfg, info.FullMethod)
		return handler(srv, &serverStream{ServerStream: ss, ctx: ctx})
	}
}

// UnaryClientInterceptor injects the active operation id into outgoing
// metadata so the receiving service continues the same logical operation.
func UnaryClientInterceptor(opts ...Option) grpc.UnaryClientInterceptor {
	cfg := applyOptions(opts)

	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, callOpts ...grpc.CallOption) error {
		ctx = injectOperation(ctx, cfg)
		return invoker(ctx, method, req, reply, cc, callOpts...)
	}
}

// StreamClientInterceptor injects the active operation id into outgoing
// metadata for streaming RPCs.
func StreamClientInterceptor(opts ...Option) grpc.StreamClientInterceptor {
	cfg := applyOptions(opts)

	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, callOpts ...grpc.CallOption) (grpc.ClientStream, error) {
		ctx = injectOperation(ctx, cfg)
		return streamer(ctx, desc, cc, method, callOpts...)
	}
}

// ServerOptions returns grpc.ServerOptions installing the devlogs
// interceptors, plus an otelgrpc stats handler when enabled.
func ServerOptions(opts ...Option) []grpc.ServerOption {
	cfg := applyOptions(opts)

	serverOpts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(opts...)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor(opts...)),
	}
	if cfg.enableOTel {
		serverOpts = append(serverOpts, grpc.StatsHandler(otelgrpc.NewServerHandler(statsHandlerOptions(cfg)...)))
	}
	return serverOpts
}

// DialOptions returns grpc.DialOptions installing the devlogs client
// interceptors, plus an otelgrpc stats handler when enabled.
func DialOptions(opts ...Option) []grpc.DialOption {
	cfg := applyOptions(opts)

	dialOpts := []grpc.DialOption{
		grpc.WithChainUnaryInterceptor(UnaryClientInterceptor(opts...)),
		grpc.WithChainStreamInterceptor(StreamClientInterceptor(opts...)),
	}
	if cfg.enableOTel {
		dialOpts = append(dialOpts, grpc.WithStatsHandler(otelgrpc.NewClientHandler(statsHandlerOptions(cfg)...)))
	}
	return dialOpts
}

// seedContext resolves the operation id from incoming metadata (generating
// one when absent) and pushes a scope whose area defaults to the service
// name.
func seedContext(ctx context.Context, cfg *config, fullMethod string) context.Context {
	operationID := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(cfg.metadataKey); len(values) > 0 {
			operationID = strings.TrimSpace(values[0])
		}
	}
	if operationID == "" {
		operationID = uuid.NewString()
	}

	area := cfg.area
	if area == "" {
		area = serviceName(fullMethod)
	}
	return devlogs.WithOperation(ctx, operationID, area)
}

// injectOperation copies the active operation id into outgoing metadata.
// Without an active scope the context is returned unchanged.
func injectOperation(ctx context.Context, cfg *config) context.Context {
	operationID := devlogs.OperationID(ctx)
	if operationID == "" {
		return ctx
	}

	md, ok := metadata.FromOutgoingContext(ctx)
	if ok {
		md = md.Copy()
	} else {
		md = metadata.New(nil)
	}
	md.Set(cfg.metadataKey, operationID)
	return metadata.NewOutgoingContext(ctx, md)
}

// serviceName extracts the bare service name from a /package.Service/Method
// path.
func serviceName(fullMethod string) string {
	name := strings.TrimPrefix(fullMethod, "/")
	if idx := strings.IndexByte(name, '/'); idx > 0 {
		name = name[:idx]
	}
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}

// statsHandlerOptions configures otelgrpc instrumentation.
func statsHandlerOptions(cfg *config) []otelgrpc.Option {
	var opts []otelgrpc.Option
	if cfg.tracerProvider != nil {
		opts = append(opts, otelgrpc.WithTracerProvider(cfg.tracerProvider))
	}
	if cfg.propagators != nil {
		opts = append(opts, otelgrpc.WithPropagators(cfg.propagators))
	}
	return opts
}

// serverStream overrides Context so handlers observe the seeded scope.
type serverStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *serverStream) Context() context.Context {
	return s.ctx
}
