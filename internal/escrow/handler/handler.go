// Package handler wires escrow endpoints to the escrow service.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"landlock/internal/escrow"
	"landlock/internal/ledger"
	dErrors "landlock/pkg/domain-errors"
	"landlock/pkg/platform/httputil"
	"landlock/pkg/requestcontext"
)

// Service defines the escrow operations the handler exposes.
type Service interface {
	Create(ctx context.Context, agreementAddr ledger.Address) (*escrow.Escrow, ledger.Address, error)
	DepositPayment(ctx context.Context, escrowAddr ledger.Address, amount uint64) (*escrow.Escrow, error)
	Authorize(ctx context.Context, escrowAddr ledger.Address) (*escrow.Escrow, error)
	Get(ctx context.Context, escrowAddr ledger.Address) (*escrow.Escrow, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the signed escrow endpoints on the router. The read
// endpoint is mounted separately by the router on the public group.
func (h *Handler) Register(r chi.Router) {
	r.Post("/escrows", h.HandleCreate)
	r.Post("/escrows/{address}/deposit", h.HandleDeposit)
	r.Post("/escrows/{address}/authorize", h.HandleAuthorize)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[createRequest](w, r)
	if !ok {
		return
	}
	agreementAddr, err := ledger.ParseAddress(req.AgreementAddress)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid agreement address"))
		return
	}

	esc, addr, err := h.service.Create(ctx, agreementAddr)
	if err != nil {
		h.logError(ctx, "create escrow failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, escrowResponse{Escrow: esc, Address: addr})
}

func (h *Handler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	addr, ok := h.pathAddress(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[depositRequest](w, r)
	if !ok {
		return
	}

	esc, err := h.service.DepositPayment(ctx, addr, req.Amount)
	if err != nil {
		h.logError(ctx, "deposit payment failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, escrowResponse{Escrow: esc, Address: addr})
}

func (h *Handler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	addr, ok := h.pathAddress(w, r)
	if !ok {
		return
	}
	esc, err := h.service.Authorize(ctx, addr)
	if err != nil {
		h.logError(ctx, "authorize settlement failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, escrowResponse{Escrow: esc, Address: addr})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	addr, ok := h.pathAddress(w, r)
	if !ok {
		return
	}
	esc, err := h.service.Get(ctx, addr)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, escrowResponse{Escrow: esc, Address: addr})
}

func (h *Handler) pathAddress(w http.ResponseWriter, r *http.Request) (ledger.Address, bool) {
	addr, err := ledger.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid escrow address"))
		return "", false
	}
	return addr, true
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
		"caller", requestcontext.Caller(ctx).Short(),
	)
}
