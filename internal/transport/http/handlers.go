package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/snehjoshi/smq/internal/metrics"
	"github.com/snehjoshi/smq/internal/node"
	"github.com/snehjoshi/smq/internal/queue"
)

// Version is reported by /health.
const Version = "1.0.0"

// Handler groups the HTTP request handlers around a queue.Store.
type Handler struct {
	store *queue.Store
	node  *node.Node
	reg   *metrics.Registry // may be nil

	// configuredCapacity is the capacity hint as read from config, reported
	// next to the store's effective value by the info endpoint.
	configuredCapacity int
}

// ─── DTOs ─────────────────────────────────────────────────────────────────────

type healthResp struct {
	Status    string    `json:"status"`
	NodeID    string    `json:"node_id"`
	Channels  int       `json:"channels"`
	StartedAt time.Time `json:"started_at"`
	Uptime    string    `json:"uptime"`
	UptimeMs  int64     `json:"uptime_ms"`
	Version   string    `json:"version"`
}

type statsResp struct {
	Channels   []queue.ChannelStats `json:"channels"`
	TotalDepth int                  `json:"total_depth"`
}

// ─── Messages ─────────────────────────────────────────────────────────────────

// pushMessage appends the raw request body to the channel named by x-channel.
func (h *Handler) pushMessage(w http.ResponseWriter, r *http.Request) {
	channel := r.Header.Get(HeaderChannel)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Warn("push: read body", "channel", channel, "err", err,
			"request_id", RequestIDFrom(r.Context()))
		writeText(w, http.StatusBadRequest, "unable to read request body")
		return
	}

	h.store.Enqueue(channel, payload)
	if h.reg != nil {
		h.reg.Pushed.Inc(channel)
	}
	writeText(w, http.StatusOK, "ok")
}

// popMessage returns the oldest payload of the channel named by x-channel,
// or 404 "no message" when there is none.
func (h *Handler) popMessage(w http.ResponseWriter, r *http.Request) {
	channel := r.Header.Get(HeaderChannel)

	payload, err := h.store.Dequeue(channel)
	if err != nil {
		if queue.IsEmpty(err) {
			if h.reg != nil {
				h.reg.Empty.Add(1)
			}
			writeText(w, http.StatusNotFound, "no message")
			return
		}
		slog.Error("pop: dequeue", "channel", channel, "err", err)
		writeText(w, http.StatusInternalServerError, "internal error")
		return
	}

	if h.reg != nil {
		h.reg.Popped.Inc(channel)
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// ─── Info / health / stats ───────────────────────────────────────────────────

// info reports the configured and effective per-channel capacity hint.
func (h *Handler) info(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, fmt.Sprintf(
		"Configured initial capacity: %d.\nEffective initial capacity: %d.\nInstance: %s.\n",
		h.configuredCapacity, h.store.InitialCapacity(), h.node.ID(),
	))
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	elapsed := h.node.Uptime()
	writeJSON(w, http.StatusOK, healthResp{
		Status:    "ok",
		NodeID:    h.node.ID().String(),
		Channels:  h.store.ChannelCount(),
		StartedAt: h.node.StartedAt().UTC(),
		Uptime:    elapsed.Round(time.Second).String(),
		UptimeMs:  elapsed.Milliseconds(),
		Version:   Version,
	})
}

// stats returns per-channel depth and push/pop counters.
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	channels := h.store.Stats()
	total := 0
	for _, c := range channels {
		total += c.Depth
	}
	writeJSON(w, http.StatusOK, statsResp{Channels: channels, TotalDepth: total})
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func writeText(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = io.WriteString(w, msg)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
