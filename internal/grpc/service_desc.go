package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the insights service. Request
// and response messages are google.protobuf.Struct documents.
const ServiceName = "staffperf.v1.PerformanceInsights"

type InsightsServer interface {
	GetStaffPerformance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStaffSeries(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPeriodChange(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetBranchOverview(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type insightsMethod func(InsightsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call insightsMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(InsightsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(InsightsServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var InsightsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InsightsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStaffPerformance", Handler: unaryHandler("GetStaffPerformance", InsightsServer.GetStaffPerformance)},
		{MethodName: "GetStaffSeries", Handler: unaryHandler("GetStaffSeries", InsightsServer.GetStaffSeries)},
		{MethodName: "GetPeriodChange", Handler: unaryHandler("GetPeriodChange", InsightsServer.GetPeriodChange)},
		{MethodName: "GetBranchOverview", Handler: unaryHandler("GetBranchOverview", InsightsServer.GetBranchOverview)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: descriptorFile,
}

func RegisterInsightsServer(s grpc.ServiceRegistrar, srv InsightsServer) {
	s.RegisterService(&InsightsServiceDesc, srv)
}

// InsightsClient calls the insights service over an existing connection.
type InsightsClient struct {
	cc grpc.ClientConnInterface
}

func NewInsightsClient(cc grpc.ClientConnInterface) *InsightsClient {
	return &InsightsClient{cc: cc}
}

func (c *InsightsClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *InsightsClient) GetStaffPerformance(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetStaffPerformance", in, opts...)
}

func (c *InsightsClient) GetStaffSeries(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetStaffSeries", in, opts...)
}

func (c *InsightsClient) GetPeriodChange(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetPeriodChange", in, opts...)
}

func (c *InsightsClient) GetBranchOverview(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetBranchOverview", in, opts...)
}
