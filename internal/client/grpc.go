package client

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/catalog/internal/server"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// GRPCClient implements CacheClient using the gRPC transport.
type GRPCClient struct {
	conn   *grpc.ClientConn
	token  string
	health healthpb.HealthClient
}

// NewGRPCClient connects to the given gRPC address and returns a client.
// When token is non-empty it is sent as a Bearer token on every call.
func NewGRPCClient(addr, token string, opts ...grpc.DialOption) (*GRPCClient, error) {
	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &GRPCClient{
		conn:   conn,
		token:  token,
		health: healthpb.NewHealthClient(conn),
	}, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) Revalidate(ctx context.Context, collection, operation string) (*RevalidateResponse, error) {
	req, err := structpb.NewStruct(map[string]any{
		"collection": collection,
		"operation":  operation,
	})
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(c.outgoing(ctx), server.CacheServiceInvalidateMethod, req, resp); err != nil {
		return nil, err
	}
	return revalidateFromStruct(resp), nil
}

// InvalidateTags drops the given cache tags directly.
func (c *GRPCClient) InvalidateTags(ctx context.Context, tags ...string) (*RevalidateResponse, error) {
	values := make([]any, len(tags))
	for i, t := range tags {
		values[i] = t
	}
	req, err := structpb.NewStruct(map[string]any{"tags": values})
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(c.outgoing(ctx), server.CacheServiceInvalidateMethod, req, resp); err != nil {
		return nil, err
	}
	return revalidateFromStruct(resp), nil
}

func (c *GRPCClient) Stats(ctx context.Context) (map[string]any, error) {
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(c.outgoing(ctx), server.CacheServiceStatsMethod, &structpb.Struct{}, resp); err != nil {
		return nil, err
	}
	return resp.AsMap(), nil
}

// --- Health ---

func (c *GRPCClient) Health(ctx context.Context) (string, error) {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return "", err
	}
	return resp.GetStatus().String(), nil
}

func (c *GRPCClient) outgoing(ctx context.Context) context.Context {
	if c.token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
}

func revalidateFromStruct(s *structpb.Struct) *RevalidateResponse {
	f := s.GetFields()
	out := &RevalidateResponse{
		Revalidated: f["revalidated"].GetBoolValue(),
		Collection:  f["collection"].GetStringValue(),
		Operation:   f["operation"].GetStringValue(),
		Now:         int64(f["now"].GetNumberValue()),
	}
	for _, v := range f["tags"].GetListValue().GetValues() {
		out.Tags = append(out.Tags, v.GetStringValue())
	}
	return out
}
