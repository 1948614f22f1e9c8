package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"polyagent/internal/orchestrator"
	"polyagent/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server 提供 Gin 接口,供外部查询组合、信号与订单状态。
type Server struct {
	addr   string
	orch   *orchestrator.Orchestrator
	store  *store.Store
	router *gin.Engine
}

type Config struct {
	Addr         string
	Orchestrator *orchestrator.Orchestrator
	Store        *store.Store
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Orchestrator == nil {
		return nil, errors.New("orchestrator 不能为空")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9980"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		addr:   cfg.Addr,
		orch:   cfg.Orchestrator,
		store:  cfg.Store,
		router: router,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	api := s.router.Group("/api")
	api.GET("/portfolio", s.handlePortfolio)
	api.GET("/trades", s.handleTrades)
	api.GET("/signals", s.handleSignals)
	api.GET("/orders", s.handleOrders)
}

// Handler 暴露底层路由,测试用。
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

func (s *Server) handlePortfolio(c *gin.Context) {
	portfolio := s.orch.Portfolio()
	c.JSON(http.StatusOK, gin.H{
		"portfolio":   portfolio,
		"total_value": portfolio.TotalValue(),
	})
}

func (s *Server) handleTrades(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "持久化未启用"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit 非法"})
		return
	}
	trades, err := s.store.ListRecentTrades(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) handleSignals(c *gin.Context) {
	cache := s.orch.LastSignals()
	resp := gin.H{
		"generated_at": cache.Timestamp,
		"signals":      cache.Signals,
	}
	if s.store != nil {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		recent, err := s.store.ListRecentSignals(c.Request.Context(), c.Query("status"), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		resp["recent"] = recent
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleOrders(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "持久化未启用"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	orders, err := s.store.ListConditionalOrders(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// Start 启动 HTTP 服务,阻塞直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
