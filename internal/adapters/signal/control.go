package signal

import "github.com/fluxsocial/voicerelay/internal/core"

func (ctl *Controller) handlePing(c *wsConn) {
	ctl.sendJSON(c, struct {
		Type string `json:"type"`
	}{Type: core.MsgPong})
}
