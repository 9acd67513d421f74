package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/investorhub/internal/clock"
	"github.com/smallbiznis/investorhub/internal/config"
	"github.com/smallbiznis/investorhub/internal/investor"
	investordomain "github.com/smallbiznis/investorhub/internal/investor/domain"
	"github.com/smallbiznis/investorhub/internal/lock"
	"github.com/smallbiznis/investorhub/internal/observability"
	obsmiddleware "github.com/smallbiznis/investorhub/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/investorhub/internal/observability/metrics"
	obstracing "github.com/smallbiznis/investorhub/internal/observability/tracing"
	"github.com/smallbiznis/investorhub/internal/recordstore"
	"github.com/smallbiznis/investorhub/internal/statement"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	recordstore.Module,
	lock.Module,
	investor.Module,
	statement.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// EngineConfig carries the settings NewEngine needs.
type EngineConfig struct {
	Debug        bool
	StrictStatus bool
}

func NewEngine(cfg EngineConfig, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(CORS())
	r.Use(gin.CustomRecovery(recoveryHandler(cfg.StrictStatus)))
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           cfg.Debug,
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware(cfg.StrictStatus))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(EngineConfig{
		Debug:        obsCfg.Debug(),
		StrictStatus: cfg.HTTPStrictStatus,
	}, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	clock       clock.Clock
	investorSvc investordomain.Service
	statements  statement.Renderer
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Clock       clock.Clock
	InvestorSvc investordomain.Service
	Statements  statement.Renderer
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		clock:       p.Clock,
		investorSvc: p.InvestorSvc,
		statements:  p.Statements,
	}

	svc.registerExecRoutes()
	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerExecRoutes mounts the single-endpoint contract used by existing
// clients of the spreadsheet web app.
func (s *Server) registerExecRoutes() {
	for _, path := range []string{"/", "/exec"} {
		s.engine.GET(path, s.HandleExecGet)
		s.engine.POST(path, s.HandleExecPost)
	}
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/overview", withAction(actionOverview, s.GetOverview))

	// -------- Investors --------
	api.GET("/investors", withAction(actionGetInvestor, s.GetInvestor))
	api.POST("/investors/consent", withAction(actionSubmitConsent, s.SubmitConsent))
	api.GET("/investors/consents", withAction(actionConsentHistory, s.ListConsentHistory))
	api.GET("/investors/statement", withAction(actionStatement, s.DownloadStatement))

	// -------- Consents --------
	api.POST("/consents", withAction(actionRecordConsent, s.RecordConsent))
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrRouteNotFound)
	})
}
