package signal

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/confer/internal/app/orch"
	"github.com/dkeye/confer/internal/apperr"
)

func (ctl *SignalWSController) handleSendSignal(ctx context.Context, c *wsSignalConn, data []byte) (any, error) {
	return nil, ctl.relay(ctx, c, data, orch.Offer)
}

func (ctl *SignalWSController) handleReturnSignal(ctx context.Context, c *wsSignalConn, data []byte) (any, error) {
	return nil, ctl.relay(ctx, c, data, orch.Answer)
}

func (ctl *SignalWSController) relay(ctx context.Context, c *wsSignalConn, data []byte, dir orch.Direction) error {
	req, err := decode[signalRequest](ctl, data)
	if err != nil {
		return err
	}
	if err := ctl.claim(ctx, c, req.Sender, ""); err != nil {
		return err
	}
	if bytes.Equal(bytes.TrimSpace(req.Signal), []byte("null")) {
		return apperr.BadInputf("missing signal")
	}
	if ctl.opts.MaxSignalBytes > 0 && len(req.Signal) > ctl.opts.MaxSignalBytes {
		return apperr.BadInputf("signal exceeds %d bytes", ctl.opts.MaxSignalBytes)
	}

	kind := classify(req.Signal)
	if err := checkDirection(dir, kind); err != nil {
		return err
	}

	log.Debug().
		Str("module", "signal").
		Str("from", string(req.Sender)).
		Str("to", string(req.Target)).
		Str("kind", kind).
		Msg("relay")

	return ctl.Orch.Relay(ctx, req.SessionToken, orch.Signal{
		Direction: dir,
		Sender:    c.uid,
		Target:    req.Target,
		Payload:   req.Signal,
		Audio:     req.Audio,
		Video:     req.Video,
	})
}

// checkDirection rejects a session description travelling the wrong way:
// send_signal never carries an answer and return_signal never an offer.
// Candidates, rollbacks and opaque payloads go either way.
func checkDirection(dir orch.Direction, kind string) error {
	switch {
	case dir == orch.Offer && (kind == webrtc.SDPTypeAnswer.String() || kind == webrtc.SDPTypePranswer.String()):
		return apperr.BadInputf("send_signal cannot carry %s", kind)
	case dir == orch.Answer && kind == webrtc.SDPTypeOffer.String():
		return apperr.BadInputf("return_signal cannot carry offer")
	}
	return nil
}

// classify names the kind of negotiation payload. The payload is relayed
// as-is whatever it holds.
func classify(raw json.RawMessage) string {
	var sd webrtc.SessionDescription
	if err := json.Unmarshal(raw, &sd); err == nil && sd.SDP != "" {
		switch sd.Type {
		case webrtc.SDPTypeOffer, webrtc.SDPTypeAnswer, webrtc.SDPTypePranswer, webrtc.SDPTypeRollback:
			return sd.Type.String()
		}
	}

	var ice webrtc.ICECandidateInit
	if err := json.Unmarshal(raw, &ice); err == nil && ice.Candidate != "" {
		return "candidate"
	}
	var wrapped struct {
		Candidate webrtc.ICECandidateInit `json:"candidate"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Candidate.Candidate != "" {
		return "candidate"
	}
	return "opaque"
}
