package scan_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-scanning/internal/auth"
	"ms-scanning/internal/logger"
	"ms-scanning/internal/models"
	"ms-scanning/internal/scan"
	"ms-scanning/internal/sse"

	"github.com/go-chi/chi/v5"
)

// ConnectivityControl lets gate staff pin the device offline when the
// venue uplink is flapping.
type ConnectivityControl interface {
	Online() bool
	ForceOffline(forced bool)
}

// Handler exposes the scan engine over HTTP for the gate operator UI.
type Handler struct {
	Coordinator  *scan.Coordinator
	Emitter      *sse.GateEventEmitter
	Connectivity ConnectivityControl
	Logger       *logger.Logger
}

func NewHandler(coordinator *scan.Coordinator, emitter *sse.GateEventEmitter, conn ConnectivityControl, log *logger.Logger) *Handler {
	return &Handler{
		Coordinator:  coordinator,
		Emitter:      emitter,
		Connectivity: conn,
		Logger:       log,
	}
}

// RegisterRoutes mounts every scan endpoint on the given router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/scan", h.PostScan)
	r.Post("/scan/{ticketID}/override-reason", h.PostOverrideReason)
	r.Delete("/scan/{ticketID}", h.CancelPendingScan)
	r.Post("/scan/{ticketID}/id-check", h.ConfirmIDCheck)

	r.Get("/sync/status", h.GetSyncStatus)
	r.Post("/sync/run", h.RunSync)
	r.Get("/sync/failed", h.GetFailedScans)
	r.Put("/connectivity", h.SetConnectivity)

	r.Get("/capacity/{eventID}", h.GetCapacity)

	r.Post("/override", h.ActivateOverride)
	r.Delete("/override", h.DeactivateOverride)
	r.Get("/override", h.GetOverrideStatus)

	r.Post("/batch/enable", h.EnableBatch)
	r.Post("/batch/disable", h.DisableBatch)
	r.Get("/batch", h.GetBatchEntries)
	r.Delete("/batch/{ticketID}", h.RemoveBatchEntry)
	r.Post("/batch/approve", h.ApproveBatch)

	r.Get("/mode", h.GetReentryMode)
	r.Put("/mode", h.SetReentryMode)

	r.Get("/events/results", h.StreamResults)
}

// PostScan runs one credential through the engine. The request blocks while
// a scan waits for an override reason, so the operator client should use a
// generous timeout on this call.
func (h *Handler) PostScan(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Payload string            `json:"payload"`
		Method  models.ScanMethod `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if requestBody.Payload == "" {
		http.Error(w, "payload is required", http.StatusBadRequest)
		return
	}
	if requestBody.Method == "" {
		requestBody.Method = models.MethodQR
	}

	attempt := models.ScanAttempt{
		RawPayload: requestBody.Payload,
		Method:     requestBody.Method,
		StaffID:    auth.StaffID(r.Context()),
		DeviceID:   auth.DeviceID(r.Context()),
	}

	result, err := h.Coordinator.ProcessScan(r.Context(), attempt)
	switch {
	case errors.Is(err, scan.ErrOverrideAbandoned):
		http.Error(w, "override abandoned", http.StatusConflict)
		return
	case err != nil:
		h.Logger.Error("SCAN", fmt.Sprintf("scan failed: %v", err))
		http.Error(w, "scan failed: "+err.Error(), http.StatusInternalServerError)
		return
	case result == nil:
		// duplicate presentation inside the debounce window
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// PostOverrideReason supplies the supervisor's reason for a suspended scan.
func (h *Handler) PostOverrideReason(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")

	var requestBody struct {
		Reason string `json:"reason"`
		Notes  string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	err := h.Coordinator.ResolveOverride(ticketID, requestBody.Reason, requestBody.Notes)
	switch {
	case errors.Is(err, scan.ErrReasonRequired):
		http.Error(w, "override reason is required", http.StatusBadRequest)
		return
	case errors.Is(err, scan.ErrNoPendingOverride):
		http.Error(w, "no scan is waiting for an override reason", http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// CancelPendingScan abandons a scan suspended for an override reason.
func (h *Handler) CancelPendingScan(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")

	if err := h.Coordinator.CancelOverride(ticketID); err != nil {
		http.Error(w, "no scan is waiting for an override reason", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConfirmIDCheck records that staff verified the holder's identity for a
// tier that mandates it.
func (h *Handler) ConfirmIDCheck(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")

	err := h.Coordinator.ConfirmIDCheck(r.Context(), ticketID)
	switch {
	case errors.Is(err, scan.ErrTicketNotFound):
		http.Error(w, "ticket not found", http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, "id check failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.Coordinator.GetSyncStatus(r.Context())
	if err != nil {
		http.Error(w, "failed to read queue: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

func (h *Handler) RunSync(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Coordinator.RunSync(r.Context())
	if err != nil {
		h.Logger.Error("SYNC", fmt.Sprintf("manual sync failed: %v", err))
		http.Error(w, "sync failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

func (h *Handler) GetFailedScans(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Coordinator.FailedScans(r.Context())
	if err != nil {
		http.Error(w, "failed to read queue: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// SetConnectivity pins or unpins the gate to offline mode.
func (h *Handler) SetConnectivity(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		ForceOffline bool `json:"force_offline"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.Connectivity.ForceOffline(requestBody.ForceOffline)
	h.Logger.LogSync("FORCE", fmt.Sprintf("force offline set to %v by %s", requestBody.ForceOffline, auth.StaffID(r.Context())))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"online": h.Connectivity.Online()})
}

func (h *Handler) GetCapacity(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	status, err := h.Coordinator.GetCapacityStatus(r.Context(), eventID)
	if err != nil {
		http.Error(w, "failed to read capacity: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// ActivateOverride starts a bypass session for the authenticated supervisor.
func (h *Handler) ActivateOverride(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Categories []string `json:"categories"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	staffID := auth.StaffID(r.Context())
	if staffID == "" {
		http.Error(w, "staff identity required", http.StatusUnauthorized)
		return
	}

	ev := h.Coordinator.ActivateOverride(staffID, requestBody.Categories)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ev)
}

func (h *Handler) DeactivateOverride(w http.ResponseWriter, r *http.Request) {
	h.Coordinator.DeactivateOverride()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetOverrideStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Coordinator.OverrideStatus())
}

func (h *Handler) EnableBatch(w http.ResponseWriter, r *http.Request) {
	h.Coordinator.EnableBatch()
	w.WriteHeader(http.StatusNoContent)
}

// DisableBatch turns batch mode off and discards anything still collected.
func (h *Handler) DisableBatch(w http.ResponseWriter, r *http.Request) {
	h.Coordinator.DisableBatch()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetBatchEntries(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Coordinator.BatchEntries())
}

func (h *Handler) RemoveBatchEntry(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")

	if !h.Coordinator.RemoveBatchEntry(ticketID) {
		http.Error(w, "ticket not in batch", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApproveBatch re-validates and commits every collected scan.
func (h *Handler) ApproveBatch(w http.ResponseWriter, r *http.Request) {
	staffID := auth.StaffID(r.Context())
	if staffID == "" {
		http.Error(w, "staff identity required", http.StatusUnauthorized)
		return
	}

	outcome, err := h.Coordinator.ApproveBatch(r.Context(), staffID)
	if err != nil {
		h.Logger.Error("BATCH", fmt.Sprintf("batch approval failed: %v", err))
		http.Error(w, "batch approval failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(outcome)
}

func (h *Handler) GetReentryMode(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]models.ReentryMode{"mode": h.Coordinator.ReentryMode()})
}

func (h *Handler) SetReentryMode(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Mode models.ReentryMode `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	switch requestBody.Mode {
	case models.ReentrySingle, models.ReentryAllowed, models.ReentryExitTracking:
	default:
		http.Error(w, "unknown re-entry mode", http.StatusBadRequest)
		return
	}

	h.Coordinator.SetReentryMode(requestBody.Mode)
	w.WriteHeader(http.StatusNoContent)
}

// StreamResults pushes scan results, override changes and sync summaries to
// the operator display over SSE.
func (h *Handler) StreamResults(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	ctx := r.Context()
	eventChan := h.Emitter.Subscribe(ctx)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\": \"connected\"}\n\n")
	flusher.Flush()

	h.Logger.Info("SSE", "Operator display connected to gate event stream")

	for {
		select {
		case ev, ok := <-eventChan:
			if !ok {
				return
			}

			jsonData, err := json.Marshal(ev.Payload)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize gate event: %v", err))
				continue
			}

			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, jsonData)
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", "Operator display disconnected from gate event stream")
			return
		}
	}
}
