package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"recipebox/internal/account"
	"recipebox/internal/api/auth"
	"recipebox/internal/api/middleware"
	"recipebox/internal/config"
	"recipebox/internal/model"
	"recipebox/internal/pkg/metrics"
	"recipebox/internal/pkg/ratelimit"
	"recipebox/internal/storage"
	"recipebox/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ImageStore 图片文件的存取接口。
type ImageStore interface {
	Save(r io.Reader) (string, error)
	Remove(name string) error
}

// Server API 服务器。
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB
	rdb    *redis.Client
	router *gin.Engine

	accounts account.Store
	tokens   *token.Issuer
	catalog  CatalogStore
	images   ImageStore
	auth     *auth.Handler
}

// NewServer 创建并初始化 API 服务器。
//
// 初始化流程: 等待数据库就绪 -> 自动迁移 -> 连接 Redis ->
// 初始化各存储层 -> 注册路由。
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := openDB(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.AuthToken{},
		&model.Tag{},
		&model.Ingredient{},
		&model.Recipe{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	images, err := storage.NewImageStore(cfg.Media.Dir)
	if err != nil {
		return nil, err
	}

	metrics.InitMetrics()

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		rdb:      rdb,
		accounts: account.NewGormStore(db),
		tokens:   token.NewIssuer(db, rdb, logger, cfg.App.TokenCacheTTL),
		catalog:  dbCatalogStore{db: db},
		images:   images,
	}
	s.auth = auth.NewHandler(s.accounts, s.tokens, logger)
	s.router = s.buildRouter()

	logger.Info("server initialized",
		slog.String("http_addr", cfg.App.HTTPAddr),
		slog.String("media_dir", cfg.Media.Dir))
	return s, nil
}

// openDB 打开数据库连接，不可用时重试直到超时。
func openDB(cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	deadline := time.Now().Add(cfg.App.DBWaitTimeout)
	var lastErr error
	for {
		db, err := gorm.Open(gormmysql.Open(cfg.MySQL.DSN), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err == nil {
			sqlDB, derr := db.DB()
			if derr == nil {
				if perr := sqlDB.Ping(); perr == nil {
					return db, nil
				} else {
					err = perr
				}
			} else {
				err = derr
			}
		}
		lastErr = err
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("database unavailable: %w", lastErr)
		}
		logger.Info("database unavailable, waiting 1 second...")
		time.Sleep(time.Second)
	}
}

func (s *Server) buildRouter() *gin.Engine {
	if s.cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(s.logger))

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	r.GET("/healthz", s.handleHealthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Static("/media", s.cfg.Media.Dir)

	limiter := ratelimit.NewRedisRateLimiter(
		s.rdb, s.logger, "recipebox:ratelimit:token:", s.cfg.App.TokenRate, s.cfg.App.TokenBurst)

	user := r.Group("/user")
	{
		user.POST("/create", s.auth.CreateUser)
		user.POST("/token", middleware.TokenRateLimit(limiter, s.logger), s.auth.Token)

		authed := user.Group("")
		authed.Use(middleware.Auth(s.tokens))
		authed.GET("/me", s.auth.Me)
		authed.PATCH("/me", s.auth.UpdateMe)
		authed.POST("/logout", s.auth.Logout)
	}

	recipe := r.Group("/recipe")
	recipe.Use(middleware.Auth(s.tokens))
	{
		recipe.GET("/tags", s.handleListTags)
		recipe.POST("/tags", s.handleCreateTag)
		recipe.GET("/ingredients", s.handleListIngredients)
		recipe.POST("/ingredients", s.handleCreateIngredient)

		recipe.GET("/recipes", s.handleListRecipes)
		recipe.POST("/recipes", s.handleCreateRecipe)
		recipe.GET("/recipes/:id", s.handleGetRecipe)
		recipe.PUT("/recipes/:id", s.handleReplaceRecipe)
		recipe.PATCH("/recipes/:id", s.handlePatchRecipe)
		recipe.DELETE("/recipes/:id", s.handleDeleteRecipe)
		recipe.POST("/recipes/:id/upload-image", s.handleUploadImage)
	}

	return r
}

// handleHealthz 健康检查：数据库与 Redis 均可达时返回 200。
func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unreachable"})
		return
	}
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "redis unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Router 返回底层的 gin 路由（供测试使用）。
func (s *Server) Router() *gin.Engine { return s.router }

// Run 启动 HTTP 服务并阻塞，直到 ctx 取消后优雅关闭。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.App.HTTPAddr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// Close 释放底层连接。
func (s *Server) Close() {
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			s.logger.Warn("close redis failed", slog.String("error", err.Error()))
		}
	}
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				s.logger.Warn("close database failed", slog.String("error", err.Error()))
			}
		}
	}
}
