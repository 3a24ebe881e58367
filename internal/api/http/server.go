package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/weisyn/nodegate/internal/api/http/handlers"
	"github.com/weisyn/nodegate/internal/api/http/middleware"
	apiconfig "github.com/weisyn/nodegate/internal/config/api"
	logimpl "github.com/weisyn/nodegate/internal/core/infrastructure/log"
	"github.com/weisyn/nodegate/internal/core/invoker"
	"github.com/weisyn/nodegate/internal/core/lister"
	"github.com/weisyn/nodegate/pkg/interfaces/infrastructure/log"
)

// shutdownTimeout 优雅关闭的最长等待时间
const shutdownTimeout = 5 * time.Second

// Deps 路由依赖
type Deps struct {
	Options     *apiconfig.APIOptions
	Logger      log.Logger
	Connections handlers.Connections
	Invoker     *invoker.Invoker
	Lister      *lister.Lister
	Registerer  prometheus.Registerer // 为空时不采集 HTTP 指标
	Gatherer    prometheus.Gatherer   // 为空时不暴露 /metrics
}

// Server HTTP 服务器
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	options    *apiconfig.APIOptions
	logger     log.Logger

	mu   sync.Mutex
	addr net.Addr
}

// ServerParams fx 注入参数
type ServerParams struct {
	fx.In

	Lifecycle   fx.Lifecycle
	Options     *apiconfig.APIOptions
	Logger      log.Logger
	Connections handlers.Connections
	Invoker     *invoker.Invoker
	Lister      *lister.Lister
	Registerer  prometheus.Registerer `optional:"true"`
	Gatherer    prometheus.Gatherer   `optional:"true"`
}

// NewServer 创建服务器并注册生命周期钩子，配置禁用 HTTP 时钩子为空操作
func NewServer(p ServerParams) *Server {
	server := New(Deps{
		Options:     p.Options,
		Logger:      p.Logger,
		Connections: p.Connections,
		Invoker:     p.Invoker,
		Lister:      p.Lister,
		Registerer:  p.Registerer,
		Gatherer:    p.Gatherer,
	})

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !server.options.HTTP.Enabled {
				server.logger.Info("HTTP 服务已在配置中禁用")
				return nil
			}
			return server.Start()
		},
		OnStop: func(ctx context.Context) error {
			return server.Stop(ctx)
		},
	})
	return server
}

// New 创建服务器并注册路由，不启动监听
func New(d Deps) *Server {
	if d.Options == nil {
		d.Options = apiconfig.New(nil).GetOptions()
	}
	if d.Logger == nil {
		d.Logger = logimpl.NewNop()
	}
	s := &Server{
		router:  gin.New(),
		options: d.Options,
		logger:  d.Logger,
	}
	s.setupRoutes(d)
	return s
}

// Handler 路由处理器
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr 实际监听地址，未启动时为 nil
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Server) setupRoutes(d Deps) {
	s.router.Use(
		middleware.Recovery(d.Logger),
		middleware.RequestID(),
		middleware.AccessLog(d.Logger),
	)
	if d.Registerer != nil {
		s.router.Use(middleware.NewHTTPMetrics(d.Registerer).Middleware())
	}

	health := handlers.NewHealthHandler(d.Connections)
	s.router.GET("/health", health.GetHealth)
	if d.Gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	api := s.router.Group("/api", middleware.BodyLimit(int64(d.Options.HTTP.MaxRequestSize)))
	api.POST("", handlers.NewProxyHandler(d.Connections, d.Invoker, d.Logger).Invoke)
	api.POST("/listMethods", handlers.NewMethodsHandler(d.Lister).ListMethods)
}

// Start 绑定监听地址并在后台提供服务，端口被占用时直接返回错误
func (s *Server) Start() error {
	opts := s.options.HTTP
	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  opts.IdleTimeout,
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	s.startGoroutine(ln)
	s.logger.Infof("HTTP 服务已启动: http://%s", ln.Addr())
	return nil
}

// Stop 优雅关闭，等待进行中的请求完成
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("正在停止 HTTP 服务")

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.logger.Info("HTTP 服务已停止")
	return nil
}

func (s *Server) startGoroutine(ln net.Listener) {
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("HTTP 服务异常退出: %v", err)
		}
	}()
}
