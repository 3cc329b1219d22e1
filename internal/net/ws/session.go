package ws

import (
	"context"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	nebulous "github.com/parkjaeuk0210/nebulous-game"
	"github.com/parkjaeuk0210/nebulous-game/internal/net/intake"
	"github.com/parkjaeuk0210/nebulous-game/internal/net/proto"
	"github.com/parkjaeuk0210/nebulous-game/internal/sim"
)

const rejectRateLimited = "rate_limited"

// session owns one websocket connection. The read loop runs on the handler
// goroutine; a writer goroutine owns every data frame written to the socket.
type session struct {
	hub     *nebulous.Hub
	conn    *websocket.Conn
	sub     *nebulous.Subscriber
	logger  *log.Logger
	config  HandlerConfig
	limiter *rate.Limiter

	playerID string
}

func (s *session) run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		s.writeLoop(ctx)
		close(writerDone)
	}()

	s.readLoop(ctx)

	cancel()
	s.hub.Unsubscribe(s.sub)
	if s.playerID != "" {
		s.hub.Disconnect(s.playerID)
	}
	<-writerDone

	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	s.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(s.config.WriteWait))
	s.conn.Close()
}

func (s *session) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	messageType := websocket.TextMessage
	if s.sub.Codec().Binary() {
		messageType = websocket.BinaryMessage
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.sub.Done():
			return
		case frame := <-s.sub.Outbound():
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteWait))
			if err := s.conn.WriteMessage(messageType, frame); err != nil {
				// Unblocks the read loop, which performs the cleanup.
				s.conn.Close()
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.config.WriteWait)); err != nil {
				s.conn.Close()
				return
			}
		}
	}
}

func (s *session) readLoop(ctx context.Context) {
	s.conn.SetReadLimit(s.config.ReadLimit)
	s.extendReadDeadline()
	s.conn.SetPongHandler(func(string) error {
		s.extendReadDeadline()
		return nil
	})

	for {
		messageType, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.logger.Printf("websocket closed for %s: %v", s.describe(), err)
			}
			return
		}
		s.extendReadDeadline()

		if !s.limiter.Allow() {
			s.hub.RecordMessageRejected(s.playerID, "", rejectRateLimited)
			continue
		}

		msg, err := proto.DecodeClientMessage(payload, messageType == websocket.BinaryMessage)
		if err != nil {
			s.hub.RecordMessageRejected(s.playerID, msg.Type, proto.RejectReason(err))
			continue
		}

		if msg.Type == proto.TypeJoin {
			if !s.join(ctx, msg.Name) {
				return
			}
			continue
		}

		_, ok, reason := intake.StageClientCommand(intake.CommandContext{
			Engine: s.hub,
			Tick:   s.hub.Tick,
		}, s.playerID, msg)
		if ok {
			continue
		}
		switch reason {
		case sim.CommandRejectUnknownActor:
			// Commands before join are ignored.
		case sim.CommandRejectQueueLimit, sim.CommandRejectQueueFull:
			// Reported by the hub's drop hook.
		default:
			s.hub.RecordMessageRejected(s.playerID, msg.Type, reason)
		}
	}
}

// join spawns a player for this connection and sends init. A repeat join
// replaces the previous player. It returns false when the connection is gone.
func (s *session) join(ctx context.Context, name string) bool {
	if s.playerID != "" {
		s.hub.Disconnect(s.playerID)
		s.playerID = ""
		s.sub.SetPlayerID("")
	}

	id, err := s.hub.Join(ctx, name)
	if err != nil {
		s.logger.Printf("join failed for %s: %v", s.describe(), err)
		s.hub.RecordMessageRejected("", proto.TypeJoin, "join_failed")
		return ctx.Err() == nil
	}
	s.playerID = id
	s.sub.SetPlayerID(id)

	frame, err := proto.EncodeInit(s.sub.Codec(), id)
	if err != nil {
		s.logger.Printf("failed to encode init for %s: %v", id, err)
		return false
	}
	if err := s.sub.Send(ctx, frame); err != nil {
		return false
	}
	return true
}

func (s *session) extendReadDeadline() {
	s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
}

func (s *session) describe() string {
	if s.playerID != "" {
		return s.playerID
	}
	return s.conn.RemoteAddr().String()
}
