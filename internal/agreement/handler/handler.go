// Package handler wires agreement endpoints to the agreement service.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"landlock/internal/agreement"
	"landlock/internal/ledger"
	dErrors "landlock/pkg/domain-errors"
	"landlock/pkg/platform/httputil"
	"landlock/pkg/requestcontext"
)

// Service defines the agreement operations the handler exposes.
type Service interface {
	Draft(ctx context.Context, titleNumber string, buyerAddr ledger.Address, price uint64) (*agreement.Agreement, ledger.Address, error)
	Sign(ctx context.Context, agreementAddr ledger.Address) (*agreement.Agreement, error)
	Cancel(ctx context.Context, agreementAddr ledger.Address) error
	Get(ctx context.Context, agreementAddr ledger.Address) (*agreement.Agreement, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the signed agreement endpoints on the router. The read
// endpoint is mounted separately by the router on the public group.
func (h *Handler) Register(r chi.Router) {
	r.Post("/agreements", h.HandleDraft)
	r.Post("/agreements/{address}/sign", h.HandleSign)
	r.Delete("/agreements/{address}", h.HandleCancel)
}

func (h *Handler) HandleDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[draftRequest](w, r)
	if !ok {
		return
	}
	buyerAddr, err := ledger.ParseAddress(req.BuyerAddress)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid buyer address"))
		return
	}

	agr, addr, err := h.service.Draft(ctx, req.TitleNumber, buyerAddr, req.Price)
	if err != nil {
		h.logError(ctx, "draft agreement failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, agreementResponse{Agreement: agr, Address: addr})
}

func (h *Handler) HandleSign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	addr, ok := h.pathAddress(w, r)
	if !ok {
		return
	}
	agr, err := h.service.Sign(ctx, addr)
	if err != nil {
		h.logError(ctx, "sign agreement failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, agreementResponse{Agreement: agr, Address: addr})
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	addr, ok := h.pathAddress(w, r)
	if !ok {
		return
	}
	if err := h.service.Cancel(ctx, addr); err != nil {
		h.logError(ctx, "cancel agreement failed", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	addr, ok := h.pathAddress(w, r)
	if !ok {
		return
	}
	agr, err := h.service.Get(ctx, addr)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, agreementResponse{Agreement: agr, Address: addr})
}

func (h *Handler) pathAddress(w http.ResponseWriter, r *http.Request) (ledger.Address, bool) {
	addr, err := ledger.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid agreement address"))
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
