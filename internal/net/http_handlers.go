package net

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	nethttp "net/http"
	"time"

	nebulous "github.com/parkjaeuk0210/nebulous-game"
	"github.com/parkjaeuk0210/nebulous-game/internal/net/ws"
	"github.com/parkjaeuk0210/nebulous-game/internal/observability"
	"github.com/parkjaeuk0210/nebulous-game/logging"
)

const defaultResetTimeout = 5 * time.Second

type HTTPHandlerConfig struct {
	ClientDir     string
	Logger        *log.Logger
	WS            ws.HandlerConfig
	RouterStats   func() logging.RouterStats
	ResetTimeout  time.Duration
	Observability observability.Config
}

type resetRequest struct {
	Seed      *string  `json:"seed"`
	Width     *float64 `json:"width"`
	Height    *float64 `json:"height"`
	FoodCount *int     `json:"foodCount"`
	MaxCells  *int     `json:"maxCells"`
}

func NewHTTPHandler(hub *nebulous.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	resetTimeout := cfg.ResetTimeout
	if resetTimeout <= 0 {
		resetTimeout = defaultResetTimeout
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status     string               `json:"status"`
			ServerTime int64                `json:"serverTime"`
			Tick       uint64               `json:"tick"`
			TickRate   int                  `json:"tickRate"`
			Players    any                  `json:"players"`
			Settings   any                  `json:"settings"`
			Telemetry  any                  `json:"telemetry"`
			Metrics    map[string]uint64    `json:"metrics"`
			Logging    *logging.RouterStats `json:"logging,omitempty"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Tick:       hub.Tick(),
			TickRate:   hub.TickRate(),
			Players:    hub.DiagnosticsSnapshot(),
			Settings:   hub.CurrentSettings(),
			Telemetry:  hub.TelemetrySnapshot(),
			Metrics:    hub.MetricsSnapshot(),
		}
		if cfg.RouterStats != nil {
			stats := cfg.RouterStats()
			payload.Logging = &stats
		}
		writeJSON(w, payload)
	})

	mux.HandleFunc("/world/reset", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		settings := hub.CurrentSettings()
		if r.Body != nil {
			defer r.Body.Close()
			var req resetRequest
			decoder := json.NewDecoder(r.Body)
			if err := decoder.Decode(&req); err != nil && err != io.EOF {
				httpError(w, "invalid payload", nethttp.StatusBadRequest)
				return
			}
			if req.Seed != nil {
				settings.Seed = *req.Seed
			}
			if req.Width != nil {
				settings.Width = *req.Width
			}
			if req.Height != nil {
				settings.Height = *req.Height
			}
			if req.FoodCount != nil {
				settings.FoodCount = *req.FoodCount
				if settings.FoodCount == 0 {
					settings.FoodCount = -1
				}
			}
			if req.MaxCells != nil {
				settings.MaxCells = *req.MaxCells
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), resetTimeout)
		defer cancel()
		result, err := hub.ResetWorld(ctx, settings)
		if err != nil {
			logger.Printf("world reset failed: %v", err)
			code := nethttp.StatusServiceUnavailable
			if errors.Is(err, context.DeadlineExceeded) {
				code = nethttp.StatusGatewayTimeout
			}
			httpError(w, "reset failed", code)
			return
		}

		writeJSON(w, struct {
			Status  string `json:"status"`
			Config  any    `json:"config"`
			Dropped int    `json:"dropped"`
		}{
			Status:  "ok",
			Config:  result.Settings,
			Dropped: len(result.Dropped),
		})
	})

	wsCfg := cfg.WS
	if wsCfg.Logger == nil {
		wsCfg.Logger = logger
	}
	wsHandler := ws.NewHandler(hub, wsCfg)
	mux.HandleFunc("/ws", wsHandler.Handle)

	observability.Register(mux, cfg.Observability)

	if cfg.ClientDir != "" {
		fs := nethttp.FileServer(nethttp.Dir(cfg.ClientDir))
		mux.Handle("/", fs)
	}

	return mux
}

func writeJSON(w nethttp.ResponseWriter, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
