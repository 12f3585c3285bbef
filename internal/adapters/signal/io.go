package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/confer/internal/apperr"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *wsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("conn", string(c.id)).Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("conn", string(c.id)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, c *wsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("uid", string(c.uid)).Str("conn", string(c.id)).Msg("readPump closing")
		c.Close()
		ctl.disconnect(context.WithoutCancel(ctx), c)
	}()

	pongWait := ctl.opts.PingPeriod * 10 / 9
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("readPump read error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		ctl.handleSignal(ctx, c, data)
	}
}

// disconnect leaves every room the connection joined. Rooms that are
// already gone or were rejoined elsewhere report NotFound, which is fine.
func (ctl *SignalWSController) disconnect(ctx context.Context, c *wsSignalConn) {
	for token := range c.rooms {
		err := ctl.Orch.Leave(ctx, token, c.uid, c.id)
		if err != nil && !apperr.Is(err, apperr.NotFound) {
			log.Error().Err(err).Str("module", "signal").Str("uid", string(c.uid)).Msg("leave on disconnect")
		}
		delete(c.rooms, token)
	}
}

type handlerFunc func(ctx context.Context, c *wsSignalConn, data []byte) (any, error)

func (ctl *SignalWSController) handlers() map[string]handlerFunc {
	return map[string]handlerFunc{
		"create":        ctl.handleCreate,
		"join":          ctl.handleJoin,
		"leave":         ctl.handleLeave,
		"terminate":     ctl.handleTerminate,
		"preference":    ctl.handlePreference,
		"ready":         ctl.handleReady,
		"message":       ctl.handleMessage,
		"send_signal":   ctl.handleSendSignal,
		"return_signal": ctl.handleReturnSignal,
		"ping":          ctl.handlePing,
	}
}

type ack struct {
	Type   string        `json:"type"`
	Ref    string        `json:"ref,omitempty"`
	Event  string        `json:"event"`
	Status apperr.Status `json:"status"`
	Error  string        `json:"error,omitempty"`
	Result any           `json:"result,omitempty"`
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, c *wsSignalConn, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("bad json")
		ctl.respond(c, env, nil, apperr.BadInputf("malformed event"))
		return
	}

	h, ok := ctl.handlers()[env.Type]
	if !ok {
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
		ctl.respond(c, env, nil, apperr.BadInputf("unknown event %q", env.Type))
		return
	}
	result, err := h(ctx, c, data)
	if err != nil && apperr.KindOf(err) == apperr.Internal {
		log.Error().Err(err).Str("module", "signal").Str("type", env.Type).Str("uid", string(c.uid)).Msg("event failed")
	}
	if env.Type == "ping" && err == nil {
		return
	}
	ctl.respond(c, env, result, err)
}

func (ctl *SignalWSController) respond(c *wsSignalConn, env envelope, result any, err error) {
	ctl.sendJSON(c, ack{
		Type:   "ack",
		Ref:    env.Ref,
		Event:  env.Type,
		Status: apperr.StatusOf(err),
		Error:  apperr.Public(err),
		Result: result,
	})
}

func (ctl *SignalWSController) sendJSON(c *wsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
