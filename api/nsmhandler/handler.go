package nsmhandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/VictoriaMetrics/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/nitrosim/nsm-simulator/client"
	"github.com/nitrosim/nsm-simulator/common"
	"github.com/nitrosim/nsm-simulator/nsm"
)

// ErrorCodeHeader carries the device status code on error responses.
const ErrorCodeHeader = "X-NSM-Error-Code"

// Handler serves one simulated NSM session over HTTP. Its mutex serializes
// every request against the session, which is the external mutual exclusion
// the engine requires from its boundary layer.
type Handler struct {
	mu  sync.Mutex
	nsm *client.Client
	log *slog.Logger
}

// NewHandler creates a handler serving the given session client.
func NewHandler(nsmClient *client.Client, log *slog.Logger) *Handler {
	return &Handler{nsm: nsmClient, log: log}
}

// RegisterRoutes binds the device operation surface onto the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/nsm/describe", h.HandleDescribe)
	r.Get("/api/nsm/random/{length}", h.HandleGetRandom)
	r.Get("/api/nsm/digest", h.HandleBankDigest)
	r.Post("/api/nsm/attestation", h.HandleAttest)
	r.Get("/api/nsm/pcr/{slot}", h.HandleDescribePCR)
	r.Post("/api/nsm/pcr/{slot}/extend", h.HandleExtendPCR)
	r.Post("/api/nsm/pcr/{slot}/lock", h.HandleLockPCR)
	r.Post("/api/nsm/pcr/lock-range/{limit}", h.HandleLockRange)
	r.Put("/api/nsm/certificate/{slot}", h.HandleSetCertificate)
	r.Get("/api/nsm/certificate/{slot}", h.HandleDescribeCertificate)
	r.Delete("/api/nsm/certificate/{slot}", h.HandleRemoveCertificate)
}

// HandleDescribe returns the module metadata record.
func (h *Handler) HandleDescribe(w http.ResponseWriter, r *http.Request) {
	countRequest("describe")
	h.mu.Lock()
	description, err := h.nsm.Describe()
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, description)
}

// HandleGetRandom returns the requested number of pseudo-random bytes as an
// octet stream.
func (h *Handler) HandleGetRandom(w http.ResponseWriter, r *http.Request) {
	countRequest("get_random")
	length, err := strconv.Atoi(chi.URLParam(r, "length"))
	if err != nil {
		http.Error(w, fmt.Errorf("invalid length: %w", err).Error(), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	out, err := h.nsm.GetRandom(length)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeBytes(w, out)
}

// HandleBankDigest returns the attestation digest over the whole register
// bank as an octet stream.
func (h *Handler) HandleBankDigest(w http.ResponseWriter, r *http.Request) {
	countRequest("bank_digest")
	h.mu.Lock()
	digest, err := h.nsm.BankDigest()
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeBytes(w, digest)
}

// HandleAttest builds an attestation document bound to the posted request
// fields.
func (h *Handler) HandleAttest(w http.ResponseWriter, r *http.Request) {
	countRequest("attest")
	var req client.AttestationRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Errorf("could not parse attestation request: %w", err).Error(), http.StatusBadRequest)
			return
		}
	}

	h.mu.Lock()
	doc, err := h.nsm.Attest(req)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, doc)
}

// HandleDescribePCR returns the typed state of one register.
func (h *Handler) HandleDescribePCR(w http.ResponseWriter, r *http.Request) {
	countRequest("describe_pcr")
	slot, ok := h.parseSlot(w, r)
	if !ok {
		return
	}

	h.mu.Lock()
	value, err := h.nsm.DescribePCR(slot)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, value)
}

// HandleExtendPCR folds the raw request body into a register and returns its
// new state.
func (h *Handler) HandleExtendPCR(w http.ResponseWriter, r *http.Request) {
	countRequest("extend_pcr")
	slot, ok := h.parseSlot(w, r)
	if !ok {
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, fmt.Errorf("could not read extend data: %w", err).Error(), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	value, err := h.nsm.ExtendPCR(slot, data)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, value)
}

// HandleLockPCR locks a single register.
func (h *Handler) HandleLockPCR(w http.ResponseWriter, r *http.Request) {
	countRequest("lock_pcr")
	slot, ok := h.parseSlot(w, r)
	if !ok {
		return
	}

	h.mu.Lock()
	err := h.nsm.LockPCR(slot)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeStatus(w, "locked")
}

// HandleLockRange locks every register below the limit in the URL. Limits
// beyond the bank are clamped by the engine, never an error.
func (h *Handler) HandleLockRange(w http.ResponseWriter, r *http.Request) {
	countRequest("lock_range")
	limit, err := strconv.ParseUint(chi.URLParam(r, "limit"), 10, 32)
	if err != nil {
		http.Error(w, fmt.Errorf("invalid limit: %w", err).Error(), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	lockErr := h.nsm.LockPCRs(uint32(limit))
	h.mu.Unlock()
	if lockErr != nil {
		h.writeError(w, lockErr)
		return
	}
	h.writeStatus(w, "locked")
}

// HandleSetCertificate stores the raw request body in a certificate slot.
func (h *Handler) HandleSetCertificate(w http.ResponseWriter, r *http.Request) {
	countRequest("set_certificate")
	slot, ok := h.parseSlot(w, r)
	if !ok {
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, fmt.Errorf("could not read certificate: %w", err).Error(), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	setErr := h.nsm.SetCertificate(slot, data)
	h.mu.Unlock()
	if setErr != nil {
		h.writeError(w, setErr)
		return
	}
	h.writeStatus(w, "stored")
}

// HandleDescribeCertificate returns the stored blob as an octet stream.
func (h *Handler) HandleDescribeCertificate(w http.ResponseWriter, r *http.Request) {
	countRequest("describe_certificate")
	slot, ok := h.parseSlot(w, r)
	if !ok {
		return
	}

	h.mu.Lock()
	certificate, err := h.nsm.DescribeCertificate(slot)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeBytes(w, certificate)
}

// HandleRemoveCertificate empties a certificate slot.
func (h *Handler) HandleRemoveCertificate(w http.ResponseWriter, r *http.Request) {
	countRequest("remove_certificate")
	slot, ok := h.parseSlot(w, r)
	if !ok {
		return
	}

	h.mu.Lock()
	err := h.nsm.RemoveCertificate(slot)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeStatus(w, "removed")
}

func (h *Handler) parseSlot(w http.ResponseWriter, r *http.Request) (uint32, bool) {
	slot, err := strconv.ParseUint(chi.URLParam(r, "slot"), 10, 32)
	if err != nil {
		http.Error(w, fmt.Errorf("invalid slot: %w", err).Error(), http.StatusBadRequest)
		return 0, false
	}
	return uint32(slot), true
}

func (h *Handler) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error("could not encode response", "err", err)
	}
}

func (h *Handler) writeBytes(w http.ResponseWriter, payload []byte) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

func (h *Handler) writeStatus(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "{\"status\":%q}\n", status)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := httpStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error("nsm operation failed", "err", err)
	} else {
		h.log.Debug("nsm operation rejected", "err", err)
	}
	w.Header().Set(ErrorCodeHeader, strconv.Itoa(int(nsm.CodeOf(err))))
	http.Error(w, err.Error(), status)
}

// httpStatus maps the engine error taxonomy onto HTTP statuses. The mapping
// is part of the wire contract.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, nsm.ErrInvalidSlot), errors.Is(err, nsm.ErrInvalidLength):
		return http.StatusBadRequest
	case errors.Is(err, nsm.ErrLocked):
		return http.StatusConflict
	case errors.Is(err, nsm.ErrCertMissing):
		return http.StatusNotFound
	case errors.Is(err, nsm.ErrClosed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func countRequest(op string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`%s_requests_total{op=%q}`, common.PackageName, op)).Inc()
}
