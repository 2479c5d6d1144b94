package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/okorolev/tolmach/internal/pipeline"
	"github.com/okorolev/tolmach/internal/websocket"
	"github.com/okorolev/tolmach/pkg/logger"
)

// Handler contains the API request handlers
type Handler struct {
	pipeline *pipeline.Pipeline
	wsServer *websocket.Server
	logger   *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(p *pipeline.Pipeline, wsServer *websocket.Server, log *logger.Logger) *Handler {
	return &Handler{
		pipeline: p,
		wsServer: wsServer,
		logger:   log.Named("api-handler"),
	}
}

// statusResponse is the /status payload
type statusResponse struct {
	State     string  `json:"state"`
	UptimeSec float64 `json:"uptime_seconds"`
	WSClients int     `json:"ws_clients"`
}

// GetHealth handles GET /api/v1/health
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetStatus handles GET /api/v1/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, statusResponse{
		State:     h.pipeline.State().String(),
		UptimeSec: h.pipeline.Uptime().Seconds(),
		WSClients: h.wsServer.ClientCount(),
	})
}

// GetStats handles GET /api/v1/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	snap := h.pipeline.Stats()
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"chunks_captured":          snap.ChunksCaptured,
		"chunks_transcribed":       snap.ChunksTranscribed,
		"translation_attempted":    snap.TranslationAttempted,
		"chunks_translated":        snap.ChunksTranslated,
		"chunks_dropped":           snap.ChunksDropped,
		"avg_recognition_time_sec": snap.AvgRecognitionTime.Seconds(),
		"avg_translation_time_sec": snap.AvgTranslationTime.Seconds(),
		"coverage":                 snap.Coverage,
	})
}

// StartPipeline handles POST /api/v1/pipeline/start
func (h *Handler) StartPipeline(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	if err := h.pipeline.Start(ctx); err != nil {
		h.logger.Error("Failed to start pipeline", logger.Error(err))
		h.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"state": h.pipeline.State().String()})
}

// StopPipeline handles POST /api/v1/pipeline/stop
func (h *Handler) StopPipeline(w http.ResponseWriter, r *http.Request) {
	h.pipeline.Stop()
	h.respondJSON(w, http.StatusOK, map[string]string{"state": h.pipeline.State().String()})
}

// HandleWebSocket handles GET /api/v1/ws
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.wsServer.HandleWS(w, r)
}

// respondJSON writes a JSON response
func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", logger.Error(err))
	}
}
