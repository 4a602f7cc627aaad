package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/BaSui01/askflow/config"
	"github.com/BaSui01/askflow/gateway"
	"github.com/BaSui01/askflow/internal/metrics"
	"github.com/BaSui01/askflow/internal/server"
	"github.com/BaSui01/askflow/orchestrator"
	"github.com/BaSui01/askflow/routing"
	"github.com/BaSui01/askflow/store"
	"github.com/BaSui01/askflow/types"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// receivingGateway 是同时支持入站分发的网关
type receivingGateway interface {
	gateway.Gateway
	gateway.Listener
}

// Server 将存储、路由、网关与编排器装配成可运行的服务
type Server struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, logger: logger}
}

// Run 装配并运行全部组件，阻塞直到收到关闭信号或组件失败
func (s *Server) Run() error {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. 指标收集器
	collector := metrics.NewCollector("askflow", s.logger)

	// 2. 会话存储
	st, err := s.openStore()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	// 3. 路由表：启动时整体校验，根权限缺失直接拒绝启动
	table := routing.NewTable(s.cfg.Routing.RootAuthority, s.logger)
	table.Replace(s.cfg.Routing.ToRules())
	if err := table.Validate(); err != nil {
		return fmt.Errorf("invalid routing table: %w", err)
	}
	resolver := routing.NewResolver(table, s.logger)

	// 4. 消息网关
	gw, redisGW, err := s.openGateway(rootCtx)
	if err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}

	// 5. 编排器
	orch, err := orchestrator.New(st, gw, resolver, s.orchestratorOptions(collector))
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}
	defer orch.Stop()

	// 入站消息（回执、应答、拒绝）交给编排器分发
	gw.OnReceived(orch.GatewayHandler())

	// 6. 重启恢复：依据持久化截止时间重建定时器
	if err := orch.Recover(rootCtx); err != nil {
		return fmt.Errorf("failed to recover conversations: %w", err)
	}

	// 7. 路由规则热重载（可选）
	if s.cfg.Routing.RulesFile != "" {
		reloader, err := config.NewRulesReloader(table, s.cfg.Routing.RulesFile, s.logger)
		if err != nil {
			return fmt.Errorf("failed to create rules reloader: %w", err)
		}
		if err := reloader.Start(rootCtx); err != nil {
			return fmt.Errorf("failed to start rules reloader: %w", err)
		}
		defer reloader.Stop()
	}

	// 8. HTTP 健康检查 + Prometheus 指标
	httpManager := s.newHTTPManager(s.cfg.Server.HTTPPort, s.healthMux(st, redisGW))
	metricsManager := s.newHTTPManager(s.cfg.Server.MetricsPort, s.metricsMux())

	if err := httpManager.Start(); err != nil {
		return err
	}
	if err := metricsManager.Start(); err != nil {
		_ = httpManager.Shutdown(context.Background())
		return err
	}

	s.logger.Info("All components started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Bool("redis_gateway", redisGW != nil),
		zap.Bool("rules_hot_reload", s.cfg.Routing.RulesFile != ""),
	)

	// 9. 监督：任一组件失败或收到信号即触发整体关闭
	g, ctx := errgroup.WithContext(rootCtx)

	if redisGW != nil {
		g.Go(func() error {
			redisGW.Listen(ctx, []string{types.SystemActor})
			return nil
		})
	}

	g.Go(func() error {
		select {
		case <-ctx.Done():
			return nil
		case err := <-httpManager.Errors():
			return err
		}
	})
	g.Go(func() error {
		select {
		case <-ctx.Done():
			return nil
		case err := <-metricsManager.Errors():
			return err
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down")
		shutdownCtx := context.Background()
		_ = httpManager.Shutdown(shutdownCtx)
		_ = metricsManager.Shutdown(shutdownCtx)
		if redisGW != nil {
			_ = redisGW.Close()
		}
		return nil
	})

	return g.Wait()
}

// =============================================================================
// 🔧 装配方法
// =============================================================================

// openStore 根据配置打开会话存储
func (s *Server) openStore() (store.ConversationStore, error) {
	switch s.cfg.Database.Driver {
	case "postgres":
		db, err := gorm.Open(postgres.Open(s.cfg.Database.DSN()), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to connect database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(s.cfg.Database.MaxOpenConns)
		sqlDB.SetMaxIdleConns(s.cfg.Database.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(s.cfg.Database.ConnMaxLifetime)

		s.logger.Info("Database connected",
			zap.String("driver", "postgres"),
			zap.String("host", s.cfg.Database.Host))
		return store.NewGormStore(db)
	case "memory":
		s.logger.Warn("Using in-memory store, conversations will not survive restarts")
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", s.cfg.Database.Driver)
	}
}

// openGateway 根据配置打开消息网关；Redis 关闭时退回进程内通道网关
func (s *Server) openGateway(ctx context.Context) (receivingGateway, *gateway.RedisGateway, error) {
	if !s.cfg.Redis.Enabled {
		s.logger.Warn("Redis gateway disabled, using in-process channel gateway")
		return gateway.NewChannelGateway(gateway.ChannelGatewayOptions{Logger: s.logger}), nil, nil
	}

	rg, err := gateway.NewRedisGateway(gateway.RedisConfig{
		Host:      s.cfg.Redis.Host,
		Port:      s.cfg.Redis.Port,
		Password:  s.cfg.Redis.Password,
		DB:        s.cfg.Redis.DB,
		PoolSize:  s.cfg.Redis.PoolSize,
		KeyPrefix: s.cfg.Redis.KeyPrefix,
	}, s.logger)
	if err != nil {
		return nil, nil, err
	}
	if err := rg.Ping(ctx); err != nil {
		return nil, nil, fmt.Errorf("redis not reachable: %w", err)
	}
	return rg, rg, nil
}

// orchestratorOptions 将配置映射为编排器选项
func (s *Server) orchestratorOptions(collector *metrics.Collector) orchestrator.Options {
	oc := s.cfg.Orchestrator
	return orchestrator.Options{
		InitialWait:           oc.InitialWait,
		RetryWait:             oc.RetryWait,
		MaxEscalationLevels:   oc.MaxEscalationLevels,
		PerRoleWaits:          oc.PerRoleWaits,
		DisableAutoEscalation: oc.DisableAutoEscalation,
		Templates:             templatesFromConfig(oc.Templates),
		Retry: gateway.RetryConfig{
			MaxRetries:        oc.Delivery.MaxRetries,
			InitialBackoff:    oc.Delivery.InitialBackoff,
			MaxBackoff:        oc.Delivery.MaxBackoff,
			BackoffMultiplier: oc.Delivery.Multiplier,
		},
		Logger:  s.logger,
		Metrics: collector,
	}
}

// templatesFromConfig 空白字段回落到内置默认文案
func templatesFromConfig(tc config.TemplatesConfig) orchestrator.Templates {
	t := orchestrator.DefaultTemplates()
	if tc.Acknowledgment != "" {
		t.Acknowledgment = tc.Acknowledgment
	}
	if tc.FollowUp != "" {
		t.FollowUp = tc.FollowUp
	}
	if tc.HandoffNotice != "" {
		t.HandoffNotice = tc.HandoffNotice
	}
	if tc.EscalatedQuestion != "" {
		t.EscalatedQuestion = tc.EscalatedQuestion
	}
	if tc.CancelConfirmation != "" {
		t.CancelConfirmation = tc.CancelConfirmation
	}
	return t
}

// =============================================================================
// 🌐 HTTP
// =============================================================================

func (s *Server) newHTTPManager(port int, handler http.Handler) *server.Manager {
	cfg := server.DefaultConfig()
	cfg.Addr = fmt.Sprintf(":%d", port)
	cfg.ShutdownTimeout = s.cfg.Server.ShutdownTimeout
	return server.NewManager(handler, cfg, s.logger)
}

// healthMux 汇总存储与网关健康状态
func (s *Server) healthMux(st store.ConversationStore, redisGW *gateway.RedisGateway) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			http.Error(w, fmt.Sprintf("store: %v", err), http.StatusServiceUnavailable)
			return
		}
		if redisGW != nil {
			if err := redisGW.Ping(r.Context()); err != nil {
				http.Error(w, fmt.Sprintf("gateway: %v", err), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	return mux
}

func (s *Server) metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
