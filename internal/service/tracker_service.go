package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"wisefido-asset/common/database"
	mqttcommon "wisefido-asset/common/mqtt"
	rediscommon "wisefido-asset/common/redis"
	"wisefido-asset/internal/atlas"
	"wisefido-asset/internal/cache"
	"wisefido-asset/internal/clock"
	"wisefido-asset/internal/config"
	"wisefido-asset/internal/consumer"
	"wisefido-asset/internal/domain"
	"wisefido-asset/internal/evaluator"
	"wisefido-asset/internal/events"
	httpapi "wisefido-asset/internal/http"
	"wisefido-asset/internal/ledger"
	"wisefido-asset/internal/registry"
	"wisefido-asset/internal/repository"
	"wisefido-asset/internal/store"
)

const devJWTSecret = "wisefido-asset-dev-secret"

// TrackerService 设备追踪服务
type TrackerService struct {
	config *config.Config
	logger *zap.Logger

	db         *sql.DB
	redis      *redis.Client
	mqttClient *mqttcommon.Client

	Store     repository.Store
	Atlas     *atlas.Atlas
	Registry  registry.Registry
	Ledger    *ledger.Ledger
	Evaluator *evaluator.Evaluator
	Router    *events.Router
	Issuer    *httpapi.TokenIssuer

	statusCache *cache.StatusCache
	hub         *httpapi.AlertHub
	consumer    *consumer.RFIDConsumer
	handler     http.Handler
	server      *Server

	cancel context.CancelFunc
	wg     sync.WaitGroup
	errCh  chan error
}

// NewTrackerService 创建设备追踪服务
func NewTrackerService(cfg *config.Config, logger *zap.Logger) (*TrackerService, error) {
	s := &TrackerService{config: cfg, logger: logger, errCh: make(chan error, 1)}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		if !cfg.Auth.DevMode {
			return nil, fmt.Errorf("JWT_SECRET is required unless AUTH_DEV_MODE=true")
		}
		logger.Warn("AUTH_DEV_MODE enabled, using development JWT secret")
		secret = devJWTSecret
	}

	// 初始化知识库
	kb := atlas.Default()
	if cfg.Tracking.AtlasFile != "" {
		loaded, err := atlas.LoadFile(cfg.Tracking.AtlasFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load atlas: %w", err)
		}
		kb = loaded
	}
	s.Atlas = kb

	// 初始化存储：数据库不可用时回退到内存
	if cfg.DBEnabled {
		if db, err := database.NewPostgresDB(&cfg.Database); err == nil {
			s.db = db
			s.Store = repository.NewPostgresStore(db, logger)
			logger.Info("DB enabled for wisefido-asset", zap.String("database", cfg.Database.Database))
		} else {
			logger.Warn("DB enabled but connection failed, falling back to memory store", zap.Error(err))
		}
	}
	if s.Store == nil {
		s.Store = repository.NewMemoryStore()
	}

	// 初始化Redis（可选）
	var observers []registry.Observer
	var notifiers []evaluator.Notifier
	if cfg.RedisEnabled {
		if client, err := rediscommon.Connect(context.Background(), &cfg.Redis); err != nil {
			logger.Warn("Redis enabled but unreachable, status cache disabled", zap.Error(err))
		} else {
			s.redis = client
			s.statusCache = cache.NewStatusCache(store.NewRedisKV(client), cfg.Alert.StatusTTL, logger)
			observers = append(observers, s.statusCache)
			notifiers = append(notifiers, evaluator.NewStreamNotifier(client, cfg.Alert.Stream, logger))
		}
	}

	s.hub = httpapi.NewAlertHub(logger, cfg.HTTP.AllowedOrigins)
	notifiers = append(notifiers, s.hub)

	clk := clock.Real()
	s.Ledger = ledger.New(s.Store, logger)
	s.Evaluator = evaluator.New(evaluator.Options{
		Atlas:     kb,
		Store:     s.Store,
		Clock:     clk,
		Dedup:     cfg.Alert.Dedup,
		Notifiers: notifiers,
		Logger:    logger,
	})
	s.Registry = registry.New(s.Store, kb, clk, logger, observers...)
	s.Router = events.NewRouter(events.Options{
		Store:           s.Store,
		Ledger:          s.Ledger,
		Evaluator:       s.Evaluator,
		Clock:           clk,
		StorageLocation: cfg.Tracking.StorageLocation,
		Observers:       observers,
		Logger:          logger,
	})

	// 初始化MQTT（可选）
	if cfg.MQTT.Enabled {
		mqttClient, err := mqttcommon.NewClient(&cfg.MQTT.MQTTConfig, logger)
		if err != nil {
			s.closeResources()
			return nil, fmt.Errorf("failed to connect to MQTT: %w", err)
		}
		s.mqttClient = mqttClient
		s.consumer = consumer.NewRFIDConsumer(mqttClient, s.Router, cfg.MQTT.Topic, cfg.MQTT.QoS, logger)
	}

	s.Issuer = httpapi.NewTokenIssuer(secret, cfg.Auth.TokenTTL)

	var board httpapi.LocationBoard
	if s.statusCache != nil {
		board = s.statusCache
	}
	s.handler = httpapi.NewRouter(httpapi.Handlers{
		Assets: httpapi.NewAssetHandler(s.Registry, s.Ledger, board, logger),
		Usage:  httpapi.NewUsageHandler(s.Router, s.Ledger, s.Registry, logger),
		Alerts: httpapi.NewAlertHandler(s.Evaluator, s.Registry, s.hub, logger),
		RFID:   httpapi.NewRFIDHandler(s.Router, logger),
		Atlas:  httpapi.NewAtlasHandler(kb),
		Issuer: s.Issuer,
		Logger: logger,
	})
	s.server = NewServer(cfg.HTTP.Addr, s.handler, logger)
	return s, nil
}

// Handler HTTP 处理器
func (s *TrackerService) Handler() http.Handler {
	return s.handler
}

// Errors 后台组件的致命错误
func (s *TrackerService) Errors() <-chan error {
	return s.errCh
}

// Start 启动服务
func (s *TrackerService) Start(ctx context.Context) error {
	s.logger.Info("Starting tracker service components")
	ctx, s.cancel = context.WithCancel(ctx)

	if s.statusCache != nil {
		assets, err := s.Store.Assets().ListAssets(ctx, domain.AssetFilter{})
		if err != nil {
			s.logger.Warn("Failed to load assets for status cache", zap.Error(err))
		} else if err := s.statusCache.Prime(ctx, assets); err != nil {
			s.logger.Warn("Failed to prime status cache", zap.Error(err))
		}
	}

	s.goRun(func() {
		if err := s.server.Start(); err != nil {
			s.fail(fmt.Errorf("http server: %w", err))
		}
	})

	if s.consumer != nil {
		s.goRun(func() {
			if err := s.consumer.Start(ctx); err != nil {
				s.fail(fmt.Errorf("rfid consumer: %w", err))
			}
		})
	}

	if s.config.Alert.SweepInterval > 0 {
		s.goRun(func() { s.Evaluator.RunSweeper(ctx, s.config.Alert.SweepInterval) })
	}

	s.logger.Info("Tracker service started successfully",
		zap.String("addr", s.config.HTTP.Addr),
		zap.Bool("mqtt", s.consumer != nil),
		zap.Bool("redis", s.redis != nil),
		zap.Duration("sweep_interval", s.config.Alert.SweepInterval),
	)
	return nil
}

func (s *TrackerService) goRun(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *TrackerService) fail(err error) {
	select {
	case s.errCh <- err:
	default:
	}
}

// Stop 停止服务
func (s *TrackerService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping tracker service")

	if s.cancel != nil {
		s.cancel()
	}
	if s.consumer != nil {
		s.consumer.Stop()
	}
	if err := s.server.Stop(ctx); err != nil {
		s.logger.Error("Error stopping HTTP server", zap.Error(err))
	}
	s.hub.CloseAll()
	s.wg.Wait()

	s.closeResources()
	s.logger.Info("Tracker service stopped")
	return nil
}

func (s *TrackerService) closeResources() {
	// 断开MQTT
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	// 关闭Redis
	if s.redis != nil {
		_ = rediscommon.Close(s.redis)
	}
	// 关闭存储（PostgreSQL 存储会关闭数据库连接）
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			s.logger.Error("Error closing store", zap.Error(err))
		}
	}
}
