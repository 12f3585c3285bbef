package signal

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/confer/internal/app/orch"
	"github.com/dkeye/confer/internal/apperr"
	"github.com/dkeye/confer/internal/auth"
	"github.com/dkeye/confer/internal/domain"
)

// claim checks that a request speaks for the connection's own identity
// and, when credential is set, that it was issued to that identity.
func (ctl *SignalWSController) claim(ctx context.Context, c *wsSignalConn, uid domain.UserID, credential string) error {
	if uid != c.uid {
		return apperr.Unauthorizedf("uid does not match connection")
	}
	if credential == "" {
		return nil
	}
	return auth.CheckClaim(ctx, ctl.Verifier, uid, credential)
}

func (ctl *SignalWSController) handleCreate(ctx context.Context, c *wsSignalConn, data []byte) (any, error) {
	req, err := decode[createRequest](ctl, data)
	if err != nil {
		return nil, err
	}
	if err := ctl.claim(ctx, c, req.UID, req.Token); err != nil {
		return nil, err
	}
	res, err := ctl.Orch.Create(ctx, c.client(), req.Password, req.IsChat)
	if err != nil {
		return nil, err
	}
	c.rooms[res.SessionToken] = struct{}{}
	log.Info().Str("module", "signal").Str("uid", string(c.uid)).Uint("sid", uint(res.SessionID)).Msg("create")
	return res, nil
}

func (ctl *SignalWSController) handleJoin(ctx context.Context, c *wsSignalConn, data []byte) (any, error) {
	req, err := decode[joinRequest](ctl, data)
	if err != nil {
		return nil, err
	}
	if err := ctl.claim(ctx, c, req.UID, req.Token); err != nil {
		return nil, err
	}
	res, err := ctl.Orch.Join(ctx, c.client(), orch.JoinRequest{
		SessionToken: req.SessionToken,
		Password:     req.Password,
		Audio:        boolOf(req.Audio),
		Video:        boolOf(req.Video),
	})
	if err != nil {
		return nil, err
	}
	c.rooms[req.SessionToken] = struct{}{}
	log.Info().Str("module", "signal").Str("uid", string(c.uid)).Msg("join")
	return res, nil
}

func (ctl *SignalWSController) handleLeave(ctx context.Context, c *wsSignalConn, data []byte) (any, error) {
	req, err := decode[leaveRequest](ctl, data)
	if err != nil {
		return nil, err
	}
	if err := ctl.claim(ctx, c, req.UID, ""); err != nil {
		return nil, err
	}
	err = ctl.Orch.Leave(ctx, req.SessionToken, c.uid, c.id)
	if err == nil || apperr.Is(err, apperr.NotFound) {
		delete(c.rooms, req.SessionToken)
	}
	log.Info().Str("module", "signal").Str("uid", string(c.uid)).Str("status", string(apperr.StatusOf(err))).Msg("leave")
	return nil, err
}

func (ctl *SignalWSController) handleTerminate(ctx context.Context, c *wsSignalConn, data []byte) (any, error) {
	req, err := decode[terminateRequest](ctl, data)
	if err != nil {
		return nil, err
	}
	if err := ctl.claim(ctx, c, req.UID, req.Token); err != nil {
		return nil, err
	}
	sess, err := ctl.Sessions.Verify(ctx, req.SessionToken)
	if err != nil {
		return nil, err
	}
	if sess.CreatorID != c.uid {
		return nil, apperr.Unauthorizedf("only the creator can terminate")
	}
	if err := ctl.Orch.Terminate(ctx, req.SessionToken); err != nil {
		return nil, err
	}
	delete(c.rooms, req.SessionToken)
	log.Info().Str("module", "signal").Str("uid", string(c.uid)).Uint("sid", uint(sess.ID)).Msg("terminate")
	return nil, nil
}
