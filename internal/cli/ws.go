package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// wsFrame is the gateway wire shape for both directions. Acks carry an id;
// pushes carry an event.
type wsFrame struct {
	ID                   string          `json:"id,omitempty"`
	Event                string          `json:"event,omitempty"`
	Token                string          `json:"token,omitempty"`
	Success              bool            `json:"success,omitempty"`
	Code                 string          `json:"code,omitempty"`
	Message              string          `json:"message,omitempty"`
	TokenRefreshRequired bool            `json:"tokenRefreshRequired,omitempty"`
	Data                 json.RawMessage `json:"data,omitempty"`
}

// WSClient is a websocket client for the gateway
type WSClient struct {
	conn   *websocket.Conn
	token  string
	nextID int
}

// DialWS connects to the server's websocket gateway
func DialWS(ctx context.Context, serverURL, token string) (*WSClient, error) {
	wsURL := httpToWS(serverURL) + "/ws"

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", wsURL, err)
	}
	return &WSClient{conn: conn, token: token}, nil
}

// Close closes the connection
func (c *WSClient) Close() {
	_ = c.conn.Close(websocket.StatusNormalClosure, "")
}

// Send emits a frame without waiting for an acknowledgment
func (c *WSClient) Send(ctx context.Context, event string, data any) error {
	return wsjson.Write(ctx, c.conn, wsFrame{
		Event: event,
		Token: c.token,
		Data:  marshalData(data),
	})
}

// Call sends a request frame and waits for its acknowledgment, skipping any
// pushed events that arrive in between. The ack payload is decoded into
// result when given.
func (c *WSClient) Call(ctx context.Context, event string, data, result any) error {
	c.nextID++
	id := strconv.Itoa(c.nextID)

	err := wsjson.Write(ctx, c.conn, wsFrame{
		ID:    id,
		Event: event,
		Token: c.token,
		Data:  marshalData(data),
	})
	if err != nil {
		return fmt.Errorf("failed to send %s: %w", event, err)
	}

	for {
		var frame wsFrame
		if err := wsjson.Read(ctx, c.conn, &frame); err != nil {
			return fmt.Errorf("connection lost waiting for %s: %w", event, err)
		}
		if frame.ID != id {
			continue
		}

		if !frame.Success {
			if frame.TokenRefreshRequired {
				return fmt.Errorf("access token expired, run 'rps auth refresh' and retry")
			}
			return fmt.Errorf("%s (%s)", frame.Message, frame.Code)
		}
		if result != nil && len(frame.Data) > 0 {
			if err := json.Unmarshal(frame.Data, result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
		}
		return nil
	}
}

// Next reads the next pushed event
func (c *WSClient) Next(ctx context.Context) (string, json.RawMessage, error) {
	for {
		var frame wsFrame
		if err := wsjson.Read(ctx, c.conn, &frame); err != nil {
			return "", nil, err
		}
		if frame.Event == "" {
			continue
		}
		return frame.Event, frame.Data, nil
	}
}

func marshalData(data any) json.RawMessage {
	if data == nil {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return raw
}

func httpToWS(serverURL string) string {
	url := strings.TrimSuffix(serverURL, "/")
	switch {
	case strings.HasPrefix(url, "https://"):
		return "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		return "ws://" + strings.TrimPrefix(url, "http://")
	default:
		return "ws://" + url
	}
}
