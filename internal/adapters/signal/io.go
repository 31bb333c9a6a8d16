package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/peersight/server/internal/domain"
	"github.com/peersight/server/internal/protocol"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	period := ctl.Cfg.PingPeriod
	if period <= 0 {
		period = 54 * time.Second
	}
	ping := time.NewTicker(period)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ping.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
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

// readPump owns the disconnect: whatever kills the read loop, the
// session handler hears about it exactly once.
func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, connID domain.ConnID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(connID)).Msg("readPump closing")
		ctl.Sessions.Disconnect(connID)
		ctl.Limiter.Forget(connID)
		cancel()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("conn", string(connID)).Msg("readPump read error")
				return
			}
			ctl.handleFrame(connID, data)
		}
	}
}

// handleFrame dispatches one inbound frame. Anything that fails to
// decode, or carries an unknown type, is dropped without a reply.
func (ctl *SignalWSController) handleFrame(connID domain.ConnID, data []byte) {
	evType, ok := protocol.DecodeEnvelope(data)
	if !ok {
		log.Debug().Str("module", "signal").Str("conn", string(connID)).Msg("bad json frame dropped")
		return
	}

	switch evType {
	case protocol.TypeJoin:
		if !ctl.Limiter.Allow(connID) {
			log.Warn().Str("module", "signal").Str("conn", string(connID)).Msg("join rate limited")
			return
		}
		var p protocol.Join
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		ctl.Sessions.Join(connID, p)
	case protocol.TypeHeartbeat:
		ctl.Sessions.Heartbeat(connID)
	case protocol.TypeConsentToggle:
		var p protocol.ConsentToggle
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		ctl.Sessions.Consent(connID, p)
	case protocol.TypeAdminSubscribe:
		if !ctl.Limiter.Allow(connID) {
			log.Warn().Str("module", "signal").Str("conn", string(connID)).Msg("subscribe rate limited")
			return
		}
		var p protocol.AdminSubscribe
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		ctl.Sessions.AdminSubscribe(connID, p)
	case protocol.TypeRelayOffer, protocol.TypeRelayAnswer, protocol.TypeRelayICE:
		var p protocol.RelaySignal
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		ctl.Sessions.RelaySignal(connID, p)
	default:
		log.Warn().Str("module", "signal").Str("type", evType).Msg("unknown signal")
	}
}
