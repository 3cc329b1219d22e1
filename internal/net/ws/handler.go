package ws

import (
	"log"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	nebulous "github.com/parkjaeuk0210/nebulous-game"
	"github.com/parkjaeuk0210/nebulous-game/internal/net/proto"
)

const (
	DefaultMessageRate  = 60.0
	DefaultMessageBurst = 120
	DefaultPingInterval = 25 * time.Second
	DefaultReadTimeout  = 60 * time.Second
	DefaultReadLimit    = 64 << 10
	DefaultWriteWait    = 10 * time.Second
)

// HandlerConfig tunes per-connection limits. Zero values use the defaults.
type HandlerConfig struct {
	Logger       *log.Logger
	MessageRate  float64
	MessageBurst int
	PingInterval time.Duration
	ReadTimeout  time.Duration
	ReadLimit    int64
	WriteWait    time.Duration
}

func (cfg HandlerConfig) withDefaults() HandlerConfig {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.MessageRate <= 0 {
		cfg.MessageRate = DefaultMessageRate
	}
	if cfg.MessageBurst <= 0 {
		cfg.MessageBurst = DefaultMessageBurst
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = DefaultReadLimit
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = DefaultWriteWait
	}
	return cfg
}

type Handler struct {
	hub      *nebulous.Hub
	logger   *log.Logger
	config   HandlerConfig
	upgrader websocket.Upgrader
}

func NewHandler(hub *nebulous.Hub, cfg HandlerConfig) *Handler {
	cfg = cfg.withDefaults()

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:      hub,
		logger:   cfg.Logger,
		config:   cfg,
		upgrader: upgrader,
	}
}

// Handle upgrades the request and serves the connection until it closes. The
// optional codec query parameter selects JSON or MessagePack frames.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	codec, err := proto.ParseCodec(r.URL.Query().Get("codec"))
	if err != nil {
		nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	sub := h.hub.Subscribe(codec)
	s := &session{
		hub:     h.hub,
		conn:    conn,
		sub:     sub,
		logger:  h.logger,
		config:  h.config,
		limiter: rate.NewLimiter(rate.Limit(h.config.MessageRate), h.config.MessageBurst),
	}
	s.run()
}
