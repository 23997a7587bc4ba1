// Package httpapi собирает HTTP API мини-приложения на gin:
// middleware, маршруты фич, /health и раздачу статики фронтенда.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lootcase-bot/internal/config"
	"serotonyl.ru/lootcase-bot/internal/httpapi/middleware"
	"serotonyl.ru/lootcase-bot/internal/httpapi/response"
	"serotonyl.ru/lootcase-bot/internal/ratelimit"
)

// Registrar — фича, которая вешает свои маршруты на группу /api.
type Registrar interface {
	Register(api *gin.RouterGroup)
}

// Server — HTTP-сервер мини-приложения.
type Server struct {
	engine  *gin.Engine
	http    *http.Server
	limiter *ratelimit.Limiter[string]
}

// New создаёт сервер и регистрирует маршруты всех фич.
func New(cfg *config.Config, features ...Registrar) *Server {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	limiter := ratelimit.New[string](cfg.RateLimitRequests, cfg.RateLimitWindow)
	engine := NewRouter(cfg.StaticDir, cfg.AllowedOrigins(), limiter, features...)

	return &Server{
		engine:  engine,
		limiter: limiter,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           engine,
			ReadTimeout:       cfg.HTTPReadTimeout,
			ReadHeaderTimeout: cfg.HTTPReadTimeout,
			WriteTimeout:      cfg.HTTPWriteTimeout,
		},
	}
}

// NewRouter собирает gin.Engine. Лимит запросов действует только на /api.
func NewRouter(staticDir string, origins []string, limiter *ratelimit.Limiter[string], features ...Registrar) *gin.Engine {
	r := gin.New()

	// Recovery первым, чтобы ловить панику в остальных middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.TraceID())
	r.Use(middleware.Logging("/health"))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(origins)))

	r.GET("/health", health)

	api := r.Group("/api")
	if limiter != nil {
		api.Use(middleware.RateLimit(limiter))
	}
	for _, f := range features {
		f.Register(api)
	}

	r.NoRoute(staticHandler(staticDir))
	return r
}

// Handler отдаёт http.Handler, удобно для тестов.
func (s *Server) Handler() http.Handler { return s.engine }

// Start слушает порт до Shutdown. Возвращает nil при штатной остановке.
func (s *Server) Start() error {
	log.WithField("addr", s.http.Addr).Info("HTTP сервер запущен")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ошибка HTTP сервера: %w", err)
	}
	return nil
}

// Shutdown дожидается завершения активных запросов и гасит лимитер.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.limiter.Close()
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка остановки HTTP сервера: %w", err)
	}
	log.Info("HTTP сервер остановлен")
	return nil
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// staticHandler раздаёт фронтенд мини-приложения.
// Неизвестные пути вне /api получают index.html (клиентский роутинг).
func staticHandler(dir string) gin.HandlerFunc {
	root, _ := filepath.Abs(dir)
	index := filepath.Join(root, "index.html")

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/") || path == "/api" ||
			(c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			response.Abort(c, http.StatusNotFound, response.CodeNotFound, "маршрут не найден")
			return
		}

		// filepath.Join чистит "..", но проверяем, что не вышли за корень
		file := filepath.Join(root, filepath.FromSlash(path))
		if file == root || strings.HasPrefix(file, root+string(filepath.Separator)) {
			if st, err := os.Stat(file); err == nil && !st.IsDir() {
				c.File(file)
				return
			}
		}
		if _, err := os.Stat(index); err == nil {
			c.File(index)
			return
		}
		response.Abort(c, http.StatusNotFound, response.CodeNotFound, "маршрут не найден")
	}
}
