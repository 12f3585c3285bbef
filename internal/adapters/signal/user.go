package signal

import (
	"context"

	"github.com/dkeye/confer/internal/apperr"
)

func (ctl *SignalWSController) handlePreference(ctx context.Context, c *wsSignalConn, data []byte) (any, error) {
	req, err := decode[preferenceRequest](ctl, data)
	if err != nil {
		return nil, err
	}
	if err := ctl.claim(ctx, c, req.UID, ""); err != nil {
		return nil, err
	}
	return nil, ctl.Orch.UpdatePreference(ctx, req.SessionToken, c.uid, *req.Value)
}

func (ctl *SignalWSController) handleReady(ctx context.Context, c *wsSignalConn, data []byte) (any, error) {
	req, err := decode[readyRequest](ctl, data)
	if err != nil {
		return nil, err
	}
	if err := ctl.claim(ctx, c, req.UID, req.Token); err != nil {
		return nil, err
	}
	return nil, ctl.Orch.Ready(ctx, req.SessionToken, c.uid)
}

func (ctl *SignalWSController) handleMessage(ctx context.Context, c *wsSignalConn, data []byte) (any, error) {
	req, err := decode[messageRequest](ctl, data)
	if err != nil {
		return nil, err
	}
	if err := ctl.claim(ctx, c, req.Sender, req.Token); err != nil {
		return nil, err
	}
	if !ctl.limiter.Allow(c.uid) {
		return nil, apperr.BadInputf("too many messages, slow down")
	}
	return nil, ctl.Orch.SendMessage(ctx, req.SessionToken, c.uid, req.Receiver, req.Message)
}
