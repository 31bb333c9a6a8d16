package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/peersight/server/internal/app"
	"github.com/peersight/server/internal/config"
	"github.com/peersight/server/internal/core"
	"github.com/peersight/server/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// SignalWSController is the lifecycle glue: it turns each WebSocket
// connection into a bound session and feeds inbound frames to the
// session handler until the socket dies.
type SignalWSController struct {
	Sessions *app.Sessions
	Cfg      *config.Config
	Limiter  *EventRateLimiter
}

func NewSignalWSController(sessions *app.Sessions, cfg *config.Config) *SignalWSController {
	return &SignalWSController{
		Sessions: sessions,
		Cfg:      cfg,
		Limiter:  NewEventRateLimiter(cfg.RateLimit, cfg.RateInterval),
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
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

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the connection to
// completion. Every socket gets a fresh connection id; the peer never
// chooses its own.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	connID := domain.ConnID(uuid.NewString())
	log.Info().Str("module", "signal").Str("conn", string(connID)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}
	if ctl.Cfg.ReadLimit > 0 {
		ws.SetReadLimit(ctl.Cfg.ReadLimit)
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	ctl.Sessions.Connect(connID, conn)
	ctx, cancel := context.WithCancel(ctx)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, connID, conn)
}
