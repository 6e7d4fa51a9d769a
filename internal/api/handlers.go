// Package api exposes the monitor over HTTP: current snapshot, history,
// window statistics, connection assessment, and the settings contract.
package api

import (
	"encoding/json"
	stdErrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/saveenergy/netglance/internal/config"
	"github.com/saveenergy/netglance/internal/history"
	"github.com/saveenergy/netglance/internal/logging"
	"github.com/saveenergy/netglance/internal/store"
	"github.com/saveenergy/netglance/pkg/diagnostic"
	"github.com/saveenergy/netglance/pkg/errors"
	"github.com/saveenergy/netglance/pkg/types"
)

// Service is the surface of the monitor the API serves.
type Service interface {
	Latest() types.NetworkSnapshot
	History() []types.SpeedSample
	Stats() history.Stats
	Settings() config.Settings
	UpdateSettings(config.Settings)
}

// SnapshotStore reads persisted snapshots; nil disables the stored
// history route.
type SnapshotStore interface {
	Recent(limit int) ([]store.Record, error)
}

const (
	maxJSONBodyBytes  = 1 << 20
	defaultStoreLimit = 100
	maxStoreLimit     = 10000
)

type Handler struct {
	service Service
	store   SnapshotStore
	version string
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) SetStore(s SnapshotStore) {
	h.store = s
}

func (h *Handler) SetVersion(version string) {
	if version == "" {
		version = "dev"
	}
	h.version = version
}

type VersionResponse struct {
	Version string `json:"version"`
}

type HistoryResponse struct {
	Samples []types.SpeedSample `json:"samples"`
}

type StoredResponse struct {
	Snapshots []store.Record `json:"snapshots"`
}

func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.service.Latest(), http.StatusOK)
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	samples := h.service.History()
	if samples == nil {
		samples = []types.SpeedSample{}
	}
	respondJSON(w, HistoryResponse{Samples: samples}, http.StatusOK)
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.service.Stats(), http.StatusOK)
}

func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	stats := h.service.Stats()
	assessment := diagnostic.Assess(diagnostic.Params{
		Snapshot:           h.service.Latest(),
		AvgDownloadBps:     stats.AvgDownloadBps,
		AvgUploadBps:       stats.AvgUploadBps,
		AlertThresholdMBps: h.service.Settings().AlertThresholdMBps,
	})
	respondJSON(w, assessment, http.StatusOK)
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.service.Settings(), http.StatusOK)
}

// PutSettings decodes a settings document, clamps it into range, and
// applies it. The applied (possibly clamped) settings are echoed back.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		respondJSON(w, map[string]string{"error": "Content-Type must be application/json"}, http.StatusUnsupportedMediaType)
		return
	}

	var next config.Settings
	if err := decodeJSONBody(w, r, &next, maxJSONBodyBytes); err != nil {
		respondJSONBodyError(w, err)
		return
	}

	next.Clamp()
	h.service.UpdateSettings(next)
	respondJSON(w, h.service.Settings(), http.StatusOK)
}

// GetStored returns persisted snapshots, newest first. ?limit=N bounds
// the row count.
func (h *Handler) GetStored(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondJSON(w, map[string]string{"error": "persistence disabled"}, http.StatusNotFound)
		return
	}

	limit := defaultStoreLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, errors.ErrInvalidConfig("limit must be a positive integer", nil), http.StatusBadRequest)
			return
		}
		if n > maxStoreLimit {
			n = maxStoreLimit
		}
		limit = n
	}

	rows, err := h.store.Recent(limit)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []store.Record{}
	}
	respondJSON(w, StoredResponse{Snapshots: rows}, http.StatusOK)
}

func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	version := h.version
	if version == "" {
		version = "dev"
	}
	respondJSON(w, VersionResponse{Version: version}, http.StatusOK)
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}, limit int64) error {
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		io.Copy(io.Discard, r.Body)
		return err
	}
	if err := decoder.Decode(&struct{}{}); !stdErrors.Is(err, io.EOF) {
		io.Copy(io.Discard, r.Body)
		return stdErrors.New("request body must contain a single JSON object")
	}
	return nil
}

func isJSONContentType(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return ct == "" || strings.HasPrefix(ct, "application/json")
}

func respondJSONBodyError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if stdErrors.As(err, &maxErr) {
		respondJSON(w, map[string]string{"error": "request body too large"}, http.StatusRequestEntityTooLarge)
		return
	}
	respondJSON(w, map[string]string{"error": "invalid request body"}, http.StatusBadRequest)
}

func respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Warn("JSON response encode failed",
			logging.Field{Key: "error", Value: err})
	}
}

func respondError(w http.ResponseWriter, err error, statusCode int) {
	msg := err.Error()
	var monErr *errors.MonitorError
	if stdErrors.As(err, &monErr) {
		msg = monErr.Message
	}
	respondJSON(w, map[string]string{"error": msg}, statusCode)
}
