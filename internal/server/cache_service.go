package server

import (
	"context"
	"encoding/json"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alfredjeanlab/catalog/internal/revalidate"
)

// CacheServiceName is the fully-qualified gRPC service name.
const CacheServiceName = "catalog.v1.CacheService"

// Full method names of the cache service.
const (
	CacheServiceInvalidateMethod = "/" + CacheServiceName + "/Invalidate"
	CacheServiceStatsMethod      = "/" + CacheServiceName + "/Stats"
)

// CacheServiceServer is the server API of catalog.v1.CacheService. Requests
// and responses are google.protobuf.Struct messages.
//
// Invalidate accepts {collection, operation} and invalidates the tags the
// collection maps to, or {tags: [...]} to invalidate tags directly.
type CacheServiceServer interface {
	Invalidate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Stats(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// CacheServiceDesc is the grpc.ServiceDesc for catalog.v1.CacheService.
var CacheServiceDesc = grpc.ServiceDesc{
	ServiceName: CacheServiceName,
	HandlerType: (*CacheServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Invalidate", Handler: cacheServiceInvalidateHandler},
		{MethodName: "Stats", Handler: cacheServiceStatsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "catalog/v1/cache.proto",
}

// RegisterCacheServiceServer registers impl on s.
func RegisterCacheServiceServer(s grpc.ServiceRegistrar, impl CacheServiceServer) {
	s.RegisterService(&CacheServiceDesc, impl)
}

func cacheServiceInvalidateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CacheServiceServer).Invalidate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CacheServiceInvalidateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CacheServiceServer).Invalidate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func cacheServiceStatsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CacheServiceServer).Stats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CacheServiceStatsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CacheServiceServer).Stats(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// cacheService implements CacheServiceServer over a Server.
type cacheService struct {
	server *Server
}

func (c *cacheService) Invalidate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	var tags []string
	var n revalidate.Notification

	if list := fields["tags"].GetListValue(); list != nil {
		for _, v := range list.GetValues() {
			tag := v.GetStringValue()
			if tag == "" {
				return nil, status.Error(codes.InvalidArgument, "tags must be non-empty strings")
			}
			tags = append(tags, tag)
		}
		if len(tags) == 0 {
			return nil, status.Error(codes.InvalidArgument, "tags is empty")
		}
		for _, tag := range tags {
			if err := c.server.cache.InvalidateTag(ctx, tag); err != nil {
				return nil, status.Errorf(codes.Internal, "invalidate %s: %v", tag, err)
			}
		}
	} else {
		n = revalidate.Notification{
			Collection: fields["collection"].GetStringValue(),
			Operation:  fields["operation"].GetStringValue(),
			Source:     "grpc",
		}
		var err error
		tags, err = c.server.invalidator.Handle(ctx, n)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "revalidate %s: %v", n.Collection, err)
		}
	}

	tagValues := make([]any, len(tags))
	for i, t := range tags {
		tagValues[i] = t
	}
	resp, err := structpb.NewStruct(map[string]any{
		"revalidated": true,
		"collection":  n.Collection,
		"operation":   n.Operation,
		"tags":        tagValues,
		"now":         float64(time.Now().UnixMilli()),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func (c *cacheService) Stats(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	m, err := toStructMap(c.server.cache.Stats())
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode stats: %v", err)
	}
	m["ttl"] = c.server.cache.TTL().String()
	m["invalidator"] = c.server.invalidator.State().String()
	m["handled"] = float64(c.server.invalidator.Handled())

	resp, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

// toStructMap converts v into the generic JSON shape structpb accepts.
func toStructMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
