package http

import (
	"context"
	"net/http"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/confer/internal/adapters/signal"
	"github.com/dkeye/confer/internal/apperr"
	"github.com/dkeye/confer/internal/auth"
	"github.com/dkeye/confer/internal/config"
	"github.com/dkeye/confer/internal/domain"
)

// SessionQueries is the read side of the session ledger.
type SessionQueries interface {
	Verify(ctx context.Context, token string) (*domain.Session, error)
	Get(ctx context.Context, id domain.SessionID) (*domain.Session, error)
	IDsByCreator(ctx context.Context, creator domain.UserID) ([]domain.SessionID, error)
}

type ChatQueries interface {
	ForReader(ctx context.Context, sid domain.SessionID, reader domain.UserID) ([]domain.ChatMessage, error)
}

type AttendeeQueries interface {
	List(ctx context.Context, sid domain.SessionID) ([]domain.Attendee, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Signal    *signal.SignalWSController
	Verifier  auth.Verifier
	Sessions  SessionQueries
	Chats     ChatQueries
	Attendees AttendeeQueries
	DB        Pinger
}

func SetupRouter(ctx context.Context, cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	r.GET("/healthz", func(c *gin.Context) {
		if err := d.DB.Ping(c.Request.Context()); err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("health check")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	api.GET("/ws/signal", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("remote", c.ClientIP()).Msg("ws signal endpoint hit")
		d.Signal.HandleSignal(ctx, c)
	})

	h := &sessionHandlers{d: d}
	api.POST("/sessions/info", h.info)
	api.POST("/sessions/mine", h.mine)

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
		c.AllowCredentials = true
	}
	return c
}

// httpStatus maps an error kind to its HTTP status code.
func httpStatus(err error) int {
	switch apperr.KindOf(err) {
	case apperr.BadInput:
		return http.StatusBadRequest
	case apperr.Unauthorized:
		return http.StatusUnauthorized
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Gone:
		return http.StatusGone
	case apperr.AlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(httpStatus(err), gin.H{"status": apperr.StatusOf(err), "error": apperr.Public(err)})
}
