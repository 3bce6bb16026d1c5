package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/yolosopher/rps-live/internal/api/apierr"
	"github.com/yolosopher/rps-live/internal/dependencies/clock"
	"github.com/yolosopher/rps-live/internal/model"
	"github.com/yolosopher/rps-live/internal/services/match"
	"github.com/yolosopher/rps-live/internal/services/token"
)

// Config holds gateway tuning knobs
type Config struct {
	// WriteTimeout bounds a single outbound frame write
	WriteTimeout time.Duration
	// OutboundBuffer is the per-connection outbound queue size. A full
	// queue drops frames rather than blocking the sender.
	OutboundBuffer int
}

// DefaultConfig returns default gateway configuration
func DefaultConfig() Config {
	return Config{
		WriteTimeout:   10 * time.Second,
		OutboundBuffer: 32,
	}
}

// Gateway upgrades HTTP requests to websocket connections and dispatches
// JSON frames to the match controller. Authentication happens per frame:
// every request carries its own access token, and the first verified frame
// binds the connection to that user's presence session.
type Gateway struct {
	hub     *Hub
	tokens  token.ServiceInterface
	matches match.ControllerInterface
	clock   clock.Clock
	logger  *slog.Logger
	cfg     Config

	actions map[string]action
}

// New creates a gateway. The hub must be the same instance the match
// controller pushes through.
func New(
	hub *Hub,
	tokens token.ServiceInterface,
	matches match.ControllerInterface,
	clk clock.Clock,
	logger *slog.Logger,
	cfg Config,
) *Gateway {
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}
	if cfg.OutboundBuffer == 0 {
		cfg.OutboundBuffer = DefaultConfig().OutboundBuffer
	}
	g := &Gateway{
		hub:     hub,
		tokens:  tokens,
		matches: matches,
		clock:   clk,
		logger:  logger,
		cfg:     cfg,
	}
	g.actions = g.buildActions()
	return g
}

// conn is one websocket connection. Frames are handled sequentially by the
// read pump, so identity and sessionID need no locking; only the outbound
// queue is shared with the hub.
type conn struct {
	ws       *websocket.Conn
	outbound chan any
	done     chan struct{}
	once     sync.Once

	identity  *model.Identity
	sessionID string
}

// push enqueues an outbound frame, dropping it if the client is too slow
func (c *conn) push(frame any) {
	select {
	case c.outbound <- frame:
	case <-c.done:
	default:
	}
}

func (c *conn) close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// ServeHTTP upgrades the request and runs the connection until the client
// goes away.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Dev-permissive; origin policy belongs to the deployment proxy
		InsecureSkipVerify: true,
	})
	if err != nil {
		g.logger.Warn("websocket accept failed", slog.String("error", err.Error()))
		return
	}

	c := &conn{
		ws:       ws,
		outbound: make(chan any, g.cfg.OutboundBuffer),
		done:     make(chan struct{}),
	}

	go g.writePump(c)
	g.readPump(r.Context(), c)

	c.close()
	g.teardown(c)
	_ = ws.Close(websocket.StatusNormalClosure, "")
}

// readPump reads frames until the connection drops. Malformed frames get an
// error push; they never close the connection.
func (g *Gateway) readPump(ctx context.Context, c *conn) {
	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			return
		}

		var frame requestFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.push(pushFrame{
				Event: model.EventError,
				Data:  apierr.ToAPIError(apierr.NewInvalidRequestError("malformed frame")),
			})
			continue
		}
		g.handle(ctx, c, frame)
	}
}

func (g *Gateway) writePump(c *conn) {
	for {
		select {
		case frame := <-c.outbound:
			ctx, cancel := context.WithTimeout(context.Background(), g.cfg.WriteTimeout)
			err := wsjson.Write(ctx, c.ws, frame)
			cancel()
			if err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// handle dispatches one frame: authenticate, authorize, run the action,
// then ack if the client asked for one.
func (g *Gateway) handle(ctx context.Context, c *conn, frame requestFrame) {
	act, ok := g.actions[frame.Event]
	if !ok {
		g.fail(c, frame, apierr.NewInvalidRequestError("unknown event: "+frame.Event))
		return
	}

	identity, err := g.authenticate(ctx, c, frame.Token)
	if err != nil {
		g.fail(c, frame, err)
		return
	}
	if act.authRequired && identity == nil {
		g.fail(c, frame, apierr.NewUnauthorizedError())
		return
	}

	data, err := act.handle(ctx, c, identity, frame.Data)
	if err != nil {
		g.fail(c, frame, err)
		return
	}
	if frame.ID != "" {
		c.push(ackFrame{ID: frame.ID, Success: true, Data: data})
	}
}

// authenticate verifies the frame's access token. The first verified frame
// on a connection records a presence session and registers the connection
// with the hub; later frames must belong to the same user. A frame with no
// token is anonymous regardless of earlier frames.
func (g *Gateway) authenticate(ctx context.Context, c *conn, accessToken string) (*model.Identity, error) {
	if accessToken == "" {
		return nil, nil
	}

	identity, err := g.tokens.VerifyAccess(accessToken)
	if err != nil {
		return nil, err
	}

	if c.identity != nil {
		if c.identity.UserID != identity.UserID {
			return nil, apierr.NewUnauthorizedError()
		}
		return &identity, nil
	}

	sessionID, err := g.matches.Connect(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	c.identity = &identity
	c.sessionID = sessionID
	g.hub.register(identity.UserID, sessionID, c)
	return &identity, nil
}

// fail reports an action error: as a failed ack when the frame carried an
// id, otherwise as an error push.
func (g *Gateway) fail(c *conn, frame requestFrame, err error) {
	apiErr := apierr.ToAPIError(err)
	if frame.ID == "" {
		c.push(pushFrame{Event: model.EventError, Data: apiErr})
		return
	}
	c.push(ackFrame{
		ID:                   frame.ID,
		Success:              false,
		Code:                 apiErr.Code,
		Message:              apiErr.Message,
		TokenRefreshRequired: apiErr.Code == apierr.CodeRefreshRequired,
	})
}

// teardown releases the presence session after the connection drops
func (g *Gateway) teardown(c *conn) {
	if c.identity == nil {
		return
	}
	g.hub.unregister(c.identity.UserID, c.sessionID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.matches.Disconnect(ctx, c.identity.UserID, c.sessionID); err != nil {
		g.logger.Error("disconnect cleanup failed",
			slog.String("user_id", string(c.identity.UserID)),
			slog.String("error", err.Error()),
		)
	}
}
