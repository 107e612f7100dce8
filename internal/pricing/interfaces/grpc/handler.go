package grpc

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/wyfcoding/stocktracker/internal/pricing/application"
	"github.com/wyfcoding/stocktracker/internal/pricing/domain"
	"github.com/wyfcoding/stocktracker/pkg/logger"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// GRPCHandler gRPC 处理器
// 负责处理与定价相关的 gRPC 请求
type GRPCHandler struct {
	app *application.PricingService // 定价应用服务
}

// NewGRPCHandler 创建 gRPC 处理器实例
func NewGRPCHandler(app *application.PricingService) *GRPCHandler {
	return &GRPCHandler{app: app}
}

// CalculateBlackScholes 字段：stock_price, strike, time_to_expiry(天), risk_free_rate(%), volatility(%), option_type
func (h *GRPCHandler) CalculateBlackScholes(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := fields{s: req}
	cmd := application.CalculateBSCommand{
		StockPrice:   f.number("stock_price"),
		Strike:       f.number("strike"),
		TimeToExpiry: f.number("time_to_expiry"),
		RiskFreeRate: f.number("risk_free_rate"),
		Volatility:   f.number("volatility"),
		OptionType:   f.str("option_type", string(domain.OptionTypeCall)),
	}
	if f.err != nil {
		return nil, status.Error(codes.InvalidArgument, f.err.Error())
	}

	res, err := h.app.CalculateBS(ctx, cmd)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return structpb.NewStruct(map[string]any{
		"theoretical_price": res.TheoreticalPrice,
		"greeks": map[string]any{
			"delta": res.Greeks.Delta,
			"gamma": res.Greeks.Gamma,
			"theta": res.Greeks.Theta,
			"vega":  res.Greeks.Vega,
		},
	})
}

// PriceOption 字段：symbol, option_type, underlying_price, strike_price, time_to_expiry(年), risk_free_rate, volatility
func (h *GRPCHandler) PriceOption(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := fields{s: req}
	cmd := application.PriceOptionCommand{
		Symbol:          f.str("symbol", ""),
		OptionType:      f.str("option_type", ""),
		UnderlyingPrice: f.number("underlying_price"),
		StrikePrice:     f.number("strike_price"),
		TimeToExpiry:    f.number("time_to_expiry"),
		RiskFreeRate:    f.number("risk_free_rate"),
		Volatility:      f.number("volatility"),
	}
	if f.err != nil {
		return nil, status.Error(codes.InvalidArgument, f.err.Error())
	}

	out, err := h.app.PriceOption(ctx, cmd)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	r := out.Result
	return structpb.NewStruct(map[string]any{
		"symbol":            out.Contract.Symbol,
		"option_type":       string(out.Contract.Type),
		"theoretical_price": r.TheoreticalPrice,
		"greeks": map[string]any{
			"delta": r.Greeks.Delta,
			"gamma": r.Greeks.Gamma,
			"theta": r.Greeks.Theta,
			"vega":  r.Greeks.Vega,
			"rho":   r.Greeks.Rho,
		},
		"degenerate":    r.Degenerate,
		"model":         r.Model,
		"cached":        out.Cached,
		"calculated_at": float64(out.CalculatedAt.UnixMilli()),
	})
}

func toStatus(ctx context.Context, err error) error {
	if errors.Is(err, domain.ErrInvalidParameter) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	logger.Error(ctx, "pricing rpc failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}

// fields 读取 Struct 字段，记录第一个错误
type fields struct {
	s   *structpb.Struct
	err error
}

func (f *fields) number(name string) float64 {
	if f.err != nil {
		return 0
	}
	v, ok := f.s.GetFields()[name]
	if !ok {
		f.err = fmt.Errorf("missing field %s", name)
		return 0
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		f.err = fmt.Errorf("field %s must be a number", name)
		return 0
	}
	if math.IsNaN(n.NumberValue) {
		f.err = fmt.Errorf("field %s must be a number", name)
	}
	return n.NumberValue
}

func (f *fields) str(name, def string) string {
	if f.err != nil {
		return def
	}
	v, ok := f.s.GetFields()[name]
	if !ok {
		return def
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		f.err = fmt.Errorf("field %s must be a string", name)
		return def
	}
	if s.StringValue == "" {
		return def
	}
	return s.StringValue
}
