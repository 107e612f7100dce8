// Package client 看板对下游定价服务的调用
package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/stocktracker/internal/dashboard/domain"
	"github.com/wyfcoding/stocktracker/internal/pricing/application"
	pricingdomain "github.com/wyfcoding/stocktracker/internal/pricing/domain"
	pricinggrpc "github.com/wyfcoding/stocktracker/internal/pricing/interfaces/grpc"
	"google.golang.org/grpc"
)

// PricingClient 通过 gRPC 调用定价服务的计算器
type PricingClient struct {
	client *pricinggrpc.Client
}

var _ domain.OptionCalculator = (*PricingClient)(nil)

// NewPricingClient 创建定价客户端
func NewPricingClient(conn grpc.ClientConnInterface) *PricingClient {
	return &PricingClient{client: pricinggrpc.NewClient(conn)}
}

// Calculate 计算器输入透传给定价服务，参数错误映射为 ErrInvalidInput，其余错误映射为 ErrUpstream
func (c *PricingClient) Calculate(ctx context.Context, in domain.CalculatorInputs) (*domain.CalculatorResult, error) {
	res, err := c.client.CalculateBlackScholes(ctx, application.CalculateBSCommand{
		StockPrice:   in.StockPrice,
		Strike:       in.Strike,
		TimeToExpiry: in.TimeToExpiry,
		RiskFreeRate: in.RiskFreeRate,
		Volatility:   in.Volatility,
		OptionType:   in.OptionType,
	})
	if err != nil {
		if errors.Is(err, pricingdomain.ErrInvalidParameter) {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		return nil, fmt.Errorf("%w: pricing service: %w", domain.ErrUpstream, err)
	}
	return &domain.CalculatorResult{
		TheoreticalPrice: res.TheoreticalPrice,
		Greeks: domain.CalculatorGreeks{
			Delta: res.Greeks.Delta,
			Gamma: res.Greeks.Gamma,
			Theta: res.Greeks.Theta,
			Vega:  res.Greeks.Vega,
		},
	}, nil
}
