// Package http 定价服务的 HTTP 接口
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/stocktracker/internal/pricing/application"
	"github.com/wyfcoding/stocktracker/internal/pricing/domain"
	"github.com/wyfcoding/stocktracker/pkg/logger"
	"github.com/wyfcoding/stocktracker/pkg/response"
)

// PricingHandler HTTP 处理器
// 负责处理与定价相关的 HTTP 请求
type PricingHandler struct {
	app *application.PricingService
}

// NewPricingHandler 创建 HTTP 处理器实例
func NewPricingHandler(app *application.PricingService) *PricingHandler {
	return &PricingHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *PricingHandler) RegisterRoutes(router gin.IRouter) {
	router.POST("/api/calculate-bs", h.CalculateBS)

	api := router.Group("/api/v1/pricing")
	{
		api.POST("/option/price", h.PriceOption)
		api.POST("/option/greeks", h.GetGreeks)
		api.POST("/option/batch", h.BatchPriceOptions)
		api.GET("/results/:symbol/latest", h.GetLatestResult)
		api.GET("/results/:symbol/history", h.GetHistory)
	}
}

// CalculateBSRequest 计算器请求：天数与百分数
type CalculateBSRequest struct {
	StockPrice   *float64 `json:"stock_price" binding:"required"`
	Strike       *float64 `json:"strike" binding:"required"`
	TimeToExpiry *float64 `json:"time_to_expiry" binding:"required"`
	RiskFreeRate *float64 `json:"risk_free_rate" binding:"required"`
	Volatility   *float64 `json:"volatility" binding:"required"`
	OptionType   string   `json:"option_type"`
}

// CalculateBSGreeks 计算器返回的希腊字母
type CalculateBSGreeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}

// CalculateBSResponse 计算器响应
type CalculateBSResponse struct {
	TheoreticalPrice float64           `json:"theoretical_price"`
	Greeks           CalculateBSGreeks `json:"greeks"`
}

// NewCalculateBSResponse 由（已四舍五入的）结果构造响应
func NewCalculateBSResponse(r *domain.PricingResult) CalculateBSResponse {
	return CalculateBSResponse{
		TheoreticalPrice: r.TheoreticalPrice,
		Greeks: CalculateBSGreeks{
			Delta: r.Greeks.Delta,
			Gamma: r.Greeks.Gamma,
			Theta: r.Greeks.Theta,
			Vega:  r.Greeks.Vega,
		},
	}
}

// ToCommand 转换为应用层命令，option_type 缺省为 call
func (r CalculateBSRequest) ToCommand() application.CalculateBSCommand {
	typ := r.OptionType
	if typ == "" {
		typ = string(domain.OptionTypeCall)
	}
	return application.CalculateBSCommand{
		StockPrice:   *r.StockPrice,
		Strike:       *r.Strike,
		TimeToExpiry: *r.TimeToExpiry,
		RiskFreeRate: *r.RiskFreeRate,
		Volatility:   *r.Volatility,
		OptionType:   typ,
	}
}

// CalculateBS 计算器接口
func (h *PricingHandler) CalculateBS(c *gin.Context) {
	var req CalculateBSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	res, err := h.app.CalculateBS(c.Request.Context(), req.ToCommand())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewCalculateBSResponse(res))
}

// OptionRequest 领域单位的定价请求（年、小数）
type OptionRequest struct {
	Symbol          string   `json:"symbol"`
	OptionType      string   `json:"option_type" binding:"required"`
	UnderlyingPrice *float64 `json:"underlying_price" binding:"required"`
	StrikePrice     *float64 `json:"strike_price" binding:"required"`
	TimeToExpiry    *float64 `json:"time_to_expiry" binding:"required"`
	RiskFreeRate    *float64 `json:"risk_free_rate" binding:"required"`
	Volatility      *float64 `json:"volatility" binding:"required"`
}

func (r OptionRequest) toCommand() application.PriceOptionCommand {
	return application.PriceOptionCommand{
		Symbol:          r.Symbol,
		OptionType:      r.OptionType,
		UnderlyingPrice: *r.UnderlyingPrice,
		StrikePrice:     *r.StrikePrice,
		TimeToExpiry:    *r.TimeToExpiry,
		RiskFreeRate:    *r.RiskFreeRate,
		Volatility:      *r.Volatility,
	}
}

// PriceOption 获取期权价格
func (h *PricingHandler) PriceOption(c *gin.Context) {
	var req OptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	out, err := h.app.PriceOption(c.Request.Context(), req.toCommand())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, out)
}

// GetGreeks 获取希腊字母
func (h *PricingHandler) GetGreeks(c *gin.Context) {
	var req OptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	greeks, err := h.app.GetGreeks(c.Request.Context(), req.toCommand())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, greeks)
}

// BatchRequest 批量定价请求
type BatchRequest struct {
	BatchID   string          `json:"batch_id"`
	Contracts []OptionRequest `json:"contracts" binding:"required,dive"`
}

// BatchItem 批量结果中的一项
type BatchItem struct {
	Index   int                         `json:"index"`
	Outcome *application.PricingOutcome `json:"outcome,omitempty"`
	Error   string                      `json:"error,omitempty"`
}

// BatchResponse 批量定价响应
type BatchResponse struct {
	BatchID      string      `json:"batch_id"`
	Items        []BatchItem `json:"items"`
	SuccessCount int         `json:"success_count"`
	FailureCount int         `json:"failure_count"`
	AverageTime  float64     `json:"average_time_ms"`
}

// BatchPriceOptions 批量定价
func (h *PricingHandler) BatchPriceOptions(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	cmd := application.BatchPriceOptionsCommand{BatchID: req.BatchID}
	for _, item := range req.Contracts {
		cmd.Contracts = append(cmd.Contracts, item.toCommand())
	}

	res, err := h.app.BatchPriceOptions(c.Request.Context(), cmd)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := BatchResponse{
		BatchID:      res.BatchID,
		Items:        make([]BatchItem, len(res.Items)),
		SuccessCount: res.SuccessCount,
		FailureCount: res.FailureCount,
		AverageTime:  res.AverageTime,
	}
	for i, item := range res.Items {
		resp.Items[i] = BatchItem{Index: item.Index, Outcome: item.Outcome}
		if item.Err != nil {
			resp.Items[i].Error = item.Err.Error()
		}
	}
	response.Success(c, resp)
}

// GetLatestResult 最近一次定价记录
func (h *PricingHandler) GetLatestResult(c *gin.Context) {
	rec, err := h.app.GetLatestResult(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, rec)
}

// GetHistory 定价历史
func (h *PricingHandler) GetHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.ErrorWithStatus(c, http.StatusBadRequest, "invalid limit", raw)
			return
		}
		limit = n
	}

	records, err := h.app.GetHistory(c.Request.Context(), c.Param("symbol"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, records)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidParameter):
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, domain.ErrResultNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, domain.ErrHistoryDisabled):
		response.ErrorWithStatus(c, http.StatusServiceUnavailable, err.Error(), "")
	default:
		logger.Error(c.Request.Context(), "pricing request failed", "path", c.FullPath(), "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, "internal error", "")
	}
}
