package health

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Proton-105/number-bot/internal/middleware"
	"github.com/Proton-105/number-bot/pkg/logger"
)

// AliveMessage is the body of the liveness endpoint.
const AliveMessage = "Bot is alive!"

// WebhookPath receives telegram updates in webhook mode.
const WebhookPath = "/telegram/webhook"

type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// NewMux serves liveness on "/", component checks on "/healthz" and Prometheus metrics on "/metrics".
// webhook is mounted on WebhookPath when non-nil.
func NewMux(checker *Checker, webhook http.Handler, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(AliveMessage))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Components: map[string]string{}}
		status := http.StatusOK

		if checker != nil {
			components, healthy := checker.Check(r.Context())
			resp.Components = components
			if !healthy {
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Error("failed to write health response", slog.Any("error", err))
		}
	})

	mux.Handle("/metrics", promhttp.Handler())

	if webhook != nil {
		mux.Handle(WebhookPath, webhook)
	}

	return logger.Middleware(middleware.New(log)(mux))
}
