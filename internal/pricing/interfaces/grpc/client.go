package grpc

import (
	"context"
	"fmt"

	"github.com/wyfcoding/stocktracker/internal/pricing/application"
	"github.com/wyfcoding/stocktracker/internal/pricing/domain"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client 定价服务客户端
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient 基于已建立的连接创建客户端
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// CalculateBlackScholes 计算器调用，InvalidArgument 映射为 domain.ErrInvalidParameter
func (c *Client) CalculateBlackScholes(ctx context.Context, cmd application.CalculateBSCommand) (*domain.PricingResult, error) {
	req, err := structpb.NewStruct(map[string]any{
		"stock_price":    cmd.StockPrice,
		"strike":         cmd.Strike,
		"time_to_expiry": cmd.TimeToExpiry,
		"risk_free_rate": cmd.RiskFreeRate,
		"volatility":     cmd.Volatility,
		"option_type":    cmd.OptionType,
	})
	if err != nil {
		return nil, err
	}

	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, CalculateBlackScholesMethod, req, resp); err != nil {
		return nil, fromStatus(err)
	}
	return decodeResult(resp), nil
}

// PriceOption 领域单位定价
func (c *Client) PriceOption(ctx context.Context, cmd application.PriceOptionCommand) (*domain.PricingResult, error) {
	req, err := structpb.NewStruct(map[string]any{
		"symbol":           cmd.Symbol,
		"option_type":      cmd.OptionType,
		"underlying_price": cmd.UnderlyingPrice,
		"strike_price":     cmd.StrikePrice,
		"time_to_expiry":   cmd.TimeToExpiry,
		"risk_free_rate":   cmd.RiskFreeRate,
		"volatility":       cmd.Volatility,
	})
	if err != nil {
		return nil, err
	}

	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, PriceOptionMethod, req, resp); err != nil {
		return nil, fromStatus(err)
	}
	return decodeResult(resp), nil
}

func decodeResult(s *structpb.Struct) *domain.PricingResult {
	m := s.AsMap()
	res := &domain.PricingResult{
		TheoreticalPrice: asFloat(m["theoretical_price"]),
		Model:            asString(m["model"]),
	}
	if d, ok := m["degenerate"].(bool); ok {
		res.Degenerate = d
	}
	if g, ok := m["greeks"].(map[string]any); ok {
		res.Greeks = domain.Greeks{
			Delta: asFloat(g["delta"]),
			Gamma: asFloat(g["gamma"]),
			Theta: asFloat(g["theta"]),
			Vega:  asFloat(g["vega"]),
			Rho:   asFloat(g["rho"]),
		}
	}
	return res
}

func asFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if ok && st.Code() == codes.InvalidArgument {
		return fmt.Errorf("%w: %s", domain.ErrInvalidParameter, st.Message())
	}
	return err
}
