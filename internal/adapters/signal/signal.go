// Package signal is the websocket gateway: it authenticates a client,
// decodes its events and hands them to the room coordinator.
package signal

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/confer/internal/app/orch"
	"github.com/dkeye/confer/internal/apperr"
	"github.com/dkeye/confer/internal/auth"
	"github.com/dkeye/confer/internal/core"
	"github.com/dkeye/confer/internal/domain"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// SessionReader resolves a session token; used for the creator check.
type SessionReader interface {
	Verify(ctx context.Context, token string) (*domain.Session, error)
}

type Options struct {
	ReadLimit           int64
	PingPeriod          time.Duration
	WriteWait           time.Duration
	SendBuffer          int
	MaxSignalBytes      int
	MessageRateLimit    int
	MessageRateInterval time.Duration
}

type SignalWSController struct {
	Orch     *orch.Orchestrator
	Verifier auth.Verifier
	Sessions SessionReader

	opts     Options
	limiter  *RoomRateLimiter
	validate *validator.Validate
}

func NewSignalWSController(o *orch.Orchestrator, v auth.Verifier, sessions SessionReader, opts Options) *SignalWSController {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = 5 * time.Second
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 54 * time.Second
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &SignalWSController{
		Orch:     o,
		Verifier: v,
		Sessions: sessions,
		opts:     opts,
		limiter:  NewRoomRateLimiter(opts.MessageRateLimit, opts.MessageRateInterval),
		validate: validate,
	}
}

// wsSignalConn is one client socket. Handlers run on its read goroutine,
// so rooms is only touched there.
type wsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame
	id   core.ConnID
	uid  domain.UserID

	// rooms holds the session tokens this connection joined.
	rooms map[string]struct{}

	mu     sync.RWMutex
	closed bool
}

func (c *wsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

func (c *wsSignalConn) client() orch.Client {
	return orch.Client{UID: c.uid, Conn: c.id, Signal: c}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal authenticates the ?token= credential and upgrades.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	uid, err := ctl.Verifier.Verify(c.Request.Context(), c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"status": apperr.StatusOf(err), "error": apperr.Public(err)})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.opts.ReadLimit > 0 {
		ws.SetReadLimit(ctl.opts.ReadLimit)
	}

	conn := &wsSignalConn{
		conn:  ws,
		send:  make(chan core.Frame, ctl.opts.SendBuffer),
		id:    core.ConnID(uuid.NewString()),
		uid:   uid,
		rooms: make(map[string]struct{}),
	}
	log.Info().Str("module", "signal").Str("uid", string(uid)).Str("conn", string(conn.id)).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, conn)
	}()
}
