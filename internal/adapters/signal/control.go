package signal

import "context"

func (ctl *SignalWSController) handlePing(_ context.Context, c *wsSignalConn, data []byte) (any, error) {
	if _, err := decode[pingRequest](ctl, data); err != nil {
		return nil, err
	}
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(c, resp)
	return nil, nil
}
