// Package server はギャラリーと生成機能を gin の HTTP API として公開します。
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"

	"github.com/shouni/igen-gallery/pkg/domain"
	"github.com/shouni/igen-gallery/pkg/exporter"
	"github.com/shouni/igen-gallery/pkg/gallery"
	"github.com/shouni/igen-gallery/pkg/generator"
)

// Generator はリクエストオーケストレーターです。*generator.Orchestrator が満たします。
type Generator interface {
	Generate(ctx context.Context, prompt string) (domain.RequestState, error)
	State() domain.RequestState
}

// Gallery は読み取りとクリアを行うギャラリーです。*gallery.Cache が満たします。
type Gallery interface {
	All() domain.Collection
	Clear(ctx context.Context) error
}

// Exporter は画像のエクスポートを行います。*exporter.Exporter が満たします。
type Exporter interface {
	Export(ctx context.Context, record domain.GenerationRecord) (string, error)
	Download(ctx context.Context, record domain.GenerationRecord) (*exporter.Image, error)
}

// Relay は問い合わせの転送を行います。*relay.Contact が満たします。
type Relay interface {
	Forward(ctx context.Context, body json.RawMessage) (json.RawMessage, error)
}

// Deps は Server の依存関係です。
type Deps struct {
	Provider  generator.Provider
	Generator Generator
	Gallery   Gallery
	Selection *gallery.Selection
	Exporter  Exporter
	Relay     Relay
	Width     int
	Height    int
}

// Options は HTTP 層の設定です。
type Options struct {
	CORSOrigins   []string
	EnableMetrics bool
	Debug         bool
}

// Server は HTTP ハンドラー群です。
type Server struct {
	deps Deps
}

// New は依存関係を検証して Server を生成します。
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Provider == nil:
		return nil, fmt.Errorf("provider is required")
	case deps.Generator == nil:
		return nil, fmt.Errorf("generator is required")
	case deps.Gallery == nil:
		return nil, fmt.Errorf("gallery is required")
	case deps.Exporter == nil:
		return nil, fmt.Errorf("exporter is required")
	case deps.Relay == nil:
		return nil, fmt.Errorf("relay is required")
	}
	if deps.Selection == nil {
		deps.Selection = gallery.NewSelection()
	}
	if deps.Width <= 0 || deps.Height <= 0 {
		deps.Width, deps.Height = generator.DefaultWidth, generator.DefaultHeight
	}
	return &Server{deps: deps}, nil
}

// Router はミドルウェアとルートを登録した gin.Engine を返します。
func (s *Server) Router(opts Options) *gin.Engine {
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(RequestLogger())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(opts.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = opts.CORSOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", requestIDHeader}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", health)
	router.HEAD("/health", health)

	// gin のミドルウェアは登録済みのルートには適用されないため、ルートより先に登録する
	if opts.EnableMetrics {
		p := ginprometheus.NewPrometheus("igen")
		p.Use(router)
	}

	s.RegisterRoutes(router)
	return router
}

// RegisterRoutes は API ルートを登録します。
func (s *Server) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api")
	api.POST("/generate-image", s.handleGenerateImage)
	api.POST("/generations", s.handleGenerate)
	api.GET("/generations/state", s.handleGenerationState)

	g := api.Group("/gallery")
	g.GET("", s.handleListGallery)
	g.DELETE("", s.handleClearGallery)
	g.GET("/selection", s.handleGetSelection)
	g.POST("/selection", s.handleOpenSelection)
	g.DELETE("/selection", s.handleCloseSelection)
	g.POST("/export", s.handleExport)
	g.GET("/download", s.handleDownload)

	api.POST("/contact", s.handleContact)
}
