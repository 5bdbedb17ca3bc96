package outreach

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/wolfman30/fieldservice-scheduler/pkg/logging"
)

// Runner starts a sweep.
type Runner interface {
	Run(ctx context.Context) (Result, error)
}

// Handler exposes the sweep behind a shared-secret query token.
type Handler struct {
	token  string
	runner Runner
	logger *logging.Logger
}

func NewHandler(token string, runner Runner, logger *logging.Logger) *Handler {
	if runner == nil {
		panic("outreach: runner cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{token: token, runner: runner, logger: logger}
}

// Initiate handles GET /contacts/initiate?token=... and runs the sweep to
// completion before answering. An unset token rejects every request.
func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request) {
	provided := r.URL.Query().Get("token")
	if h.token == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(h.token)) != 1 {
		h.logger.Warn("outreach: unauthorized trigger", "remote_ip", r.RemoteAddr)
		http.Error(w, "Unauthorized", http.StatusForbidden)
		return
	}

	res, err := h.runner.Run(r.Context())
	switch {
	case errors.Is(err, ErrSweepRunning):
		http.Error(w, "Contact sweep already running", http.StatusConflict)
		return
	case err != nil:
		h.logger.Error("outreach: sweep failed", "error", err, "sent", res.Sent)
		http.Error(w, "Failed to initiate contacts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Contacts initiated successfully"))
}
