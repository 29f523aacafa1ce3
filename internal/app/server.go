// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"notesaas-service/internal/config"
	"notesaas-service/internal/db"
	adminHandler "notesaas-service/internal/handlers/admin"
	authHandler "notesaas-service/internal/handlers/auth"
	noteHandler "notesaas-service/internal/handlers/note"
	tenantHandler "notesaas-service/internal/handlers/tenant"
	wsHandler "notesaas-service/internal/handlers/websocket"
	"notesaas-service/internal/middleware"
	"notesaas-service/internal/pkg/kv"
	"notesaas-service/internal/pkg/session"
	"notesaas-service/internal/pkg/token"
	authUsecase "notesaas-service/internal/service/auth"
	"notesaas-service/internal/service/authz"
	noteUsecase "notesaas-service/internal/service/note"
	tenantUsecase "notesaas-service/internal/service/tenant"
	"notesaas-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg         config.AppConfig
	engine      *gin.Engine
	logger      *zap.Logger
	authService *authUsecase.AuthService

	closers []func() error
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx := context.Background()

	// ----- Logger -----
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	s.logger = logger

	// ----- Session backing store -----
	store, err := s.openKV()
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	log.Printf("[KV] ✅ %s backend ready", s.cfg.KVBackend)

	// ----- Token codec -----
	codec := token.NewCodec(s.cfg.TokenIssuer)

	// ----- Session store -----
	sessions := session.NewStore(store, codec, logger)
	go sessions.Run(ctx)

	// ----- Tenant resolver -----
	resolver := tenantUsecase.NewResolver(logger)

	// ----- Authorization facade -----
	facade := authz.New(sessions, resolver, logger)

	// ----- WebSocket hub -----
	hub := websocket.NewHub(logger)
	sessions.Notify(hub.SessionChanged)
	go hub.Run(ctx)

	// ----- Services (Usecases) -----
	accounts := authUsecase.NewAccountRegistry()
	limiter := authUsecase.NewLoginLimiter()
	authService := authUsecase.NewAuthService(
		accounts,
		codec,
		sessions,
		resolver,
		limiter,
		logger,
		s.cfg.TokenTTL,
	)
	s.authService = authService

	notesService := noteUsecase.NewNotesService(facade, resolver, logger)

	// ----- Seed data -----
	if s.cfg.SeedDemoData {
		if err := authUsecase.SeedDemoAccounts(accounts); err != nil {
			return fmt.Errorf("failed to seed demo accounts: %w", err)
		}
		noteUsecase.SeedDemoNotes(notesService)
		logger.Info("demo data seeded")
	}

	if err := s.initializeSuperAdmin(); err != nil {
		logger.Error("failed to initialize super admin", zap.Error(err))
		// Don't fail startup, just log the error
	}

	// ----- Handlers -----
	authHandlerInst := authHandler.NewAuthHandler(authService, logger)
	noteHandlerInst := noteHandler.NewNoteHandler(notesService, logger)
	tenantHandlerInst := tenantHandler.NewTenantHandler(resolver, facade, authService, logger)
	adminHandlerInst := adminHandler.NewAdminHandler(resolver, hub)
	wsHandlerInst := wsHandler.NewWebSocketHandler(hub, logger)

	// ----- Middlewares -----
	authMiddleware := middleware.NewAuthMiddleware(codec, sessions, facade)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(),
	)

	// ----- Router -----
	handlers := &Handlers{
		AuthHandler:    authHandlerInst,
		NoteHandler:    noteHandlerInst,
		TenantHandler:  tenantHandlerInst,
		AdminHandler:   adminHandlerInst,
		WSHandler:      wsHandlerInst,
		AuthMiddleware: authMiddleware,
	}
	SetupRouter(s.engine, logger, handlers)

	// ----- Start HTTP -----
	log.Printf("🚀 Server running on %s", s.cfg.HTTPAddr)
	return s.engine.Run(s.cfg.HTTPAddr)
}

// openKV builds the configured session backend. The memory backend is the
// default and needs no external services.
func (s *Server) openKV() (kv.Store, error) {
	switch s.cfg.KVBackend {
	case "", "memory":
		return kv.NewMemory().Open(), nil

	case "bolt":
		b, err := kv.NewBolt(s.cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, b.Close)
		return b.Open(), nil

	case "redis":
		client, err := db.NewRedisClient(db.RedisConfig{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPass,
			DB:       s.cfg.RedisDB,
			PoolSize: 10,
		})
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, client.Close)
		return kv.NewRedis(client, "notesaas"), nil

	default:
		return nil, fmt.Errorf("unknown KV_BACKEND %q", s.cfg.KVBackend)
	}
}

// Shutdown releases the session backend connections.
func (s *Server) Shutdown(ctx context.Context) error {
	var firstErr error
	for _, close := range s.closers {
		if err := close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// initializeSuperAdmin creates the platform admin if it doesn't exist.
func (s *Server) initializeSuperAdmin() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	email := s.cfg.SuperAdminEmail
	password := s.cfg.SuperAdminPassword
	fullName := s.cfg.SuperAdminName

	// Use defaults if not provided (for development only)
	if email == "" {
		email = "admin@notes.app"
		s.logger.Warn("SUPER_ADMIN_EMAIL not set, using default", zap.String("email", email))
	}
	if password == "" {
		password = "ChangeMe99!"
		s.logger.Warn("SUPER_ADMIN_PASSWORD not set, using default password")
	}
	if fullName == "" {
		fullName = "Platform Administrator"
		s.logger.Warn("SUPER_ADMIN_NAME not set, using default", zap.String("name", fullName))
	}

	if len(password) < 8 {
		s.logger.Error("super admin password is too weak (minimum 8 characters)")
		return fmt.Errorf("super admin password must be at least 8 characters")
	}

	if err := s.authService.EnsureSuperAdminExists(ctx, email, password, fullName); err != nil {
		return fmt.Errorf("failed to ensure super admin exists: %w", err)
	}

	return nil
}
