package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	socketReadLimit    = 1 << 20
	socketReadTimeout  = 60 * time.Second
	socketWriteTimeout = 10 * time.Second
	socketPingPeriod   = 30 * time.Second
	maxReconnectDelay  = 30 * time.Second
)

// Socket maintains the event connection to the chat platform and
// delivers inbound command invocations to a handler. The connection is
// re-established automatically when the platform asks for a refresh or
// the link drops.
type Socket struct {
	client  *Client
	handler func(CommandEvent)
}

// NewSocket creates a listener that calls handler for every command
// event. The handler must not block; slow work belongs on the command
// bus.
func NewSocket(client *Client, handler func(CommandEvent)) *Socket {
	return &Socket{client: client, handler: handler}
}

// socketEnvelope is one frame received over the event connection.
type socketEnvelope struct {
	Type       string          `json:"type"`
	EnvelopeID string          `json:"envelope_id"`
	Payload    json.RawMessage `json:"payload"`
}

// Run connects and processes events until the context is cancelled,
// reconnecting with backoff after failures.
func (s *Socket) Run(ctx context.Context) error {
	delay := time.Second
	for {
		started := time.Now()
		err := s.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			log.Printf("Event connection lost: %v", err)
		}

		// A connection that lived a while earns a fresh backoff.
		if time.Since(started) > time.Minute {
			delay = time.Second
		}
		log.Printf("Reconnecting to event stream in %s", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// runOnce opens one event connection and reads it until it closes.
func (s *Socket) runOnce(ctx context.Context) error {
	socketURL, err := s.client.openSocketURL(ctx)
	if err != nil {
		return fmt.Errorf("opening event connection: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, socketURL, nil)
	if err != nil {
		return fmt.Errorf("dialing event connection: %w", err)
	}

	send := make(chan []byte, 16)
	done := make(chan struct{})
	go s.writePump(conn, send, done)
	defer func() {
		close(done)
		conn.Close()
	}()

	// Drop the connection when the context ends so ReadMessage unblocks.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	conn.SetReadLimit(socketReadLimit)
	conn.SetReadDeadline(time.Now().Add(socketReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(socketReadTimeout))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				return err
			}
			return nil
		}
		conn.SetReadDeadline(time.Now().Add(socketReadTimeout))

		var envelope socketEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			log.Printf("Discarding malformed event frame: %v", err)
			continue
		}

		// Every envelope with an id must be acknowledged promptly or the
		// platform re-delivers it.
		if envelope.EnvelopeID != "" {
			ack, _ := json.Marshal(map[string]string{"envelope_id": envelope.EnvelopeID})
			select {
			case send <- ack:
			case <-done:
				return nil
			}
		}

		switch envelope.Type {
		case "hello":
			log.Printf("Event connection established")
		case "disconnect":
			// The platform rotates connections; reconnect right away.
			return nil
		case "slash_commands":
			var event CommandEvent
			if err := json.Unmarshal(envelope.Payload, &event); err != nil {
				log.Printf("Discarding malformed command payload: %v", err)
				continue
			}
			s.handler(event)
		}
	}
}

// writePump owns all writes on the connection: acknowledgements from
// the read loop and the keepalive pings.
func (s *Socket) writePump(conn *websocket.Conn, send <-chan []byte, done <-chan struct{}) {
	ticker := time.NewTicker(socketPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message := <-send:
			conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
