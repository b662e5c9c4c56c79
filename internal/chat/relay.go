package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/quickads/internal/metrics"
)

// Conn is the part of a websocket connection the relay uses.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetWriteDeadline(t time.Time) error
}

type RelayConfig struct {
	PingInterval  time.Duration
	WriteDeadline time.Duration
	MaxMsgSize    int64
	AskTimeout    time.Duration
}

type Relay struct {
	svc  *Service
	conf RelayConfig
	log  *zap.Logger
}

func NewRelay(svc *Service, conf RelayConfig, log *zap.Logger) *Relay {
	if conf.PingInterval <= 0 {
		conf.PingInterval = 30 * time.Second
	}
	if conf.WriteDeadline <= 0 {
		conf.WriteDeadline = 10 * time.Second
	}
	if conf.MaxMsgSize <= 0 {
		conf.MaxMsgSize = 8 << 10
	}
	if conf.AskTimeout <= 0 {
		conf.AskTimeout = 60 * time.Second
	}
	return &Relay{svc: svc, conf: conf, log: log}
}

// frame is what the widget sends: {"question": "..."} or {"text": "..."}.
type frame struct {
	Question string `json:"question"`
	Text     string `json:"text"`
}

// Handler is mounted behind websocket.New.
func (r *Relay) Handler(c *websocket.Conn) {
	r.Serve(c)
}

// Serve greets the client and answers one bot message per text frame until
// the connection closes.
func (r *Relay) Serve(c Conn) {
	metrics.ChatConnections.Inc()
	defer metrics.ChatConnections.Dec()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wmu sync.Mutex
	write := func(mt int, b []byte) error {
		wmu.Lock()
		defer wmu.Unlock()
		_ = c.SetWriteDeadline(time.Now().Add(r.conf.WriteDeadline))
		return c.WriteMessage(mt, b)
	}
	send := func(m Message) error {
		b, _ := json.Marshal(m)
		return write(websocket.TextMessage, b)
	}

	if err := send(Message{Text: Greeting, IsBot: true}); err != nil {
		return
	}

	go func() {
		ticker := time.NewTicker(r.conf.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := write(websocket.PingMessage, nil); err != nil {
					r.log.Debug("chat ping failed", zap.Error(err))
					return
				}
			}
		}
	}()

	c.SetReadLimit(r.conf.MaxMsgSize)
	for {
		mt, msg, err := c.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		var f frame
		if err := json.Unmarshal(msg, &f); err != nil {
			f.Question = string(msg)
		}
		q := f.Question
		if q == "" {
			q = f.Text
		}

		askCtx, askCancel := context.WithTimeout(ctx, r.conf.AskTimeout)
		reply, err := r.svc.Reply(askCtx, q)
		askCancel()
		if err != nil {
			r.log.Debug("chat reply fallback", zap.Error(err))
		}
		if err := send(reply); err != nil {
			return
		}
	}
}
