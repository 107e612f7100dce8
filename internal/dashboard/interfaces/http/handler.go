// Package http 看板网关的 HTTP 接口，路径与前端约定一致
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/stocktracker/internal/dashboard/application"
	"github.com/wyfcoding/stocktracker/internal/dashboard/domain"
	"github.com/wyfcoding/stocktracker/pkg/logger"
	"github.com/wyfcoding/stocktracker/pkg/response"
)

// DashboardHandler HTTP 处理器
type DashboardHandler struct {
	app *application.DashboardService
}

// NewDashboardHandler 创建 HTTP 处理器实例
func NewDashboardHandler(app *application.DashboardService) *DashboardHandler {
	return &DashboardHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *DashboardHandler) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api")
	{
		api.GET("/premarket", h.Premarket)
		api.GET("/live-market", h.LiveMarket)
		api.GET("/congress-trades", h.CongressTrades)
		api.GET("/market-news", h.MarketNews)
		api.GET("/analyze/:ticker", h.Analyze)
		api.GET("/news/:ticker", h.StockNews)
		api.GET("/options/:ticker", h.OptionsChain)
		api.GET("/dashboard", h.Dashboard)
		api.GET("/search/:ticker", h.Search)
		api.POST("/calculate-bs", h.CalculateBS)
	}
}

// Premarket 盘前涨跌榜
func (h *DashboardHandler) Premarket(c *gin.Context) {
	res, err := h.app.Premarket(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// LiveMarket 盘中涨跌榜
func (h *DashboardHandler) LiveMarket(c *gin.Context) {
	res, err := h.app.LiveMarket(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CongressTrades 国会交易
func (h *DashboardHandler) CongressTrades(c *gin.Context) {
	trades, err := h.app.CongressTrades(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if trades == nil {
		trades = []domain.CongressTrade{}
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

// MarketNews 市场新闻
func (h *DashboardHandler) MarketNews(c *gin.Context) {
	news, err := h.app.MarketNews(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if news == nil {
		news = []domain.NewsItem{}
	}
	c.JSON(http.StatusOK, gin.H{"news": news})
}

// Analyze 个股分析
func (h *DashboardHandler) Analyze(c *gin.Context) {
	res, err := h.app.Analyze(c.Request.Context(), c.Param("ticker"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// StockNews 个股新闻
func (h *DashboardHandler) StockNews(c *gin.Context) {
	res, err := h.app.StockNews(c.Request.Context(), c.Param("ticker"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// OptionsChain 期权链
func (h *DashboardHandler) OptionsChain(c *gin.Context) {
	res, err := h.app.OptionsChain(c.Request.Context(), c.Param("ticker"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Dashboard 聚合快照，部分数据源失败时仍返回 200
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.app.LoadDashboard(c.Request.Context()))
}

// Search 个股搜索，返回切换到分析页签后的视图快照
func (h *DashboardHandler) Search(c *gin.Context) {
	state, err := h.app.SearchState(c.Request.Context(), domain.NewViewState(), c.Param("ticker"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// CalculateBS 计算器，缺失字段取默认值
func (h *DashboardHandler) CalculateBS(c *gin.Context) {
	in := domain.DefaultCalculatorInputs()
	if err := c.ShouldBindJSON(&in); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	res, err := h.app.Calculate(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Calculator 计算器页签快照，请求体与 /api/calculate-bs 相同
func (h *DashboardHandler) Calculator(c *gin.Context) {
	in := domain.DefaultCalculatorInputs()
	if err := c.ShouldBindJSON(&in); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	state, err := h.app.CalculateState(c.Request.Context(), domain.NewViewState(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid input", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, "not found", err.Error())
	case errors.Is(err, domain.ErrUpstream):
		response.ErrorWithStatus(c, http.StatusBadGateway, "upstream unavailable", "")
	default:
		logger.Error(c.Request.Context(), "dashboard request failed", "path", c.FullPath(), "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, "internal error", "")
	}
}
