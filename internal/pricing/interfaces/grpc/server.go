// Package grpc 定价服务的 gRPC 接口。消息体使用 google.protobuf.Struct，无需生成代码
package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName                 = "stocktracker.pricing.v1.PricingService"
	CalculateBlackScholesMethod = "/" + ServiceName + "/CalculateBlackScholes"
	PriceOptionMethod           = "/" + ServiceName + "/PriceOption"
)

// PricingServiceServer gRPC 服务端接口
type PricingServiceServer interface {
	// CalculateBlackScholes 计算器语义：天数、百分数，结果四舍五入
	CalculateBlackScholes(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	// PriceOption 领域单位，完整精度
	PriceOption(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterPricingServiceServer 注册服务
func RegisterPricingServiceServer(s grpc.ServiceRegistrar, srv PricingServiceServer) {
	s.RegisterService(&PricingServiceDesc, srv)
}

func unaryHandler(method string, call func(PricingServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PricingServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(PricingServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// PricingServiceDesc 服务描述
var PricingServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PricingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CalculateBlackScholes",
			Handler: unaryHandler(CalculateBlackScholesMethod, func(s PricingServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.CalculateBlackScholes(ctx, in)
			}),
		},
		{
			MethodName: "PriceOption",
			Handler: unaryHandler(PriceOptionMethod, func(s PricingServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.PriceOption(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "stocktracker/pricing/v1/pricing.proto",
}
