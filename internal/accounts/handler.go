// Package accounts exposes identity account balances and the development
// faucet. Settlement moves value through ledger transactions; these endpoints
// only observe balances, plus seed them in development.
package accounts

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"landlock/internal/ledger"
	"landlock/pkg/domain"
	dErrors "landlock/pkg/domain-errors"
	"landlock/pkg/platform/httputil"
)

type Handler struct {
	ledger ledger.Store
	logger *slog.Logger
	faucet bool
}

func New(store ledger.Store, logger *slog.Logger, faucet bool) *Handler {
	return &Handler{ledger: store, logger: logger, faucet: faucet}
}

// Register mounts account endpoints on the router. The faucet route is only
// mounted when enabled.
func (h *Handler) Register(r chi.Router) {
	r.Get("/accounts/{key}/balance", h.HandleBalance)
	if h.faucet {
		r.Post("/accounts/{key}/credit", h.HandleCredit)
	}
}

func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	key, ok := h.pathKey(w, r)
	if !ok {
		return
	}
	balance, err := h.ledger.Balance(ctx, key)
	if err != nil {
		h.logger.ErrorContext(ctx, "balance lookup failed", "error", err, "key", key.Short())
		httputil.WriteError(w, dErrors.Internal(err, "failed to load balance"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, balanceResponse{Key: key, Balance: balance})
}

func (h *Handler) HandleCredit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	key, ok := h.pathKey(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[creditRequest](w, r)
	if !ok {
		return
	}
	if req.Amount == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "amount must be positive"))
		return
	}

	if err := h.credit(ctx, key, req.Amount); err != nil {
		h.logger.ErrorContext(ctx, "faucet credit failed", "error", err, "key", key.Short())
		httputil.WriteError(w, dErrors.Internal(err, "failed to credit account"))
		return
	}
	balance, err := h.ledger.Balance(ctx, key)
	if err != nil {
		httputil.WriteError(w, dErrors.Internal(err, "failed to load balance"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, balanceResponse{Key: key, Balance: balance})
}

func (h *Handler) credit(ctx context.Context, key domain.PublicKey, amount uint64) error {
	return h.ledger.Credit(ctx, key, amount)
}

func (h *Handler) pathKey(w http.ResponseWriter, r *http.Request) (domain.PublicKey, bool) {
	key, err := domain.ParsePublicKey(chi.URLParam(r, "key"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid account key"))
		return "", false
	}
	return key, true
}

type creditRequest struct {
	Amount uint64 `json:"amount"`
}

type balanceResponse struct {
	Key     domain.PublicKey `json:"key"`
	Balance uint64           `json:"balance"`
}
