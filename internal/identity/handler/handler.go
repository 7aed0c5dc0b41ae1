// Package handler wires identity endpoints to the identity service.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"landlock/internal/identity"
	"landlock/internal/ledger"
	"landlock/pkg/domain"
	dErrors "landlock/pkg/domain-errors"
	"landlock/pkg/platform/httputil"
	"landlock/pkg/requestcontext"
)

// Service defines the identity operations the handler exposes.
type Service interface {
	ConfirmAdmin(ctx context.Context) (*identity.Admin, error)
	AddRegistrar(ctx context.Context, authority domain.PublicKey, firstName, lastName, idNumber string) (*identity.Registrar, string, error)
	ConfirmRegistrar(ctx context.Context, code string) (*identity.Registrar, error)
	CreateUser(ctx context.Context, firstName, lastName, idNumber, phoneNumber string) (*identity.User, ledger.Address, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts identity endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/identity/admins/confirm", h.HandleConfirmAdmin)
	r.Post("/identity/registrars", h.HandleAddRegistrar)
	r.Post("/identity/registrars/confirm", h.HandleConfirmRegistrar)
	r.Post("/identity/users", h.HandleCreateUser)
}

func (h *Handler) HandleConfirmAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	admin, err := h.service.ConfirmAdmin(ctx)
	if err != nil {
		h.logError(ctx, "confirm admin failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, admin)
}

func (h *Handler) HandleAddRegistrar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[addRegistrarRequest](w, r)
	if !ok {
		return
	}
	authority, err := domain.ParsePublicKey(req.Authority)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid registrar authority"))
		return
	}

	registrar, code, err := h.service.AddRegistrar(ctx, authority, req.FirstName, req.LastName, req.IDNumber)
	if err != nil {
		h.logError(ctx, "add registrar failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, addRegistrarResponse{
		Registrar: registrar.Sanitized(),
		// Shown exactly once; only the bcrypt hash is stored.
		InvitationCode: code,
	})
}

func (h *Handler) HandleConfirmRegistrar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[confirmRegistrarRequest](w, r)
	if !ok {
		return
	}

	registrar, err := h.service.ConfirmRegistrar(ctx, req.InvitationCode)
	if err != nil {
		h.logError(ctx, "confirm registrar failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, registrar.Sanitized())
}

func (h *Handler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[createUserRequest](w, r)
	if !ok {
		return
	}

	user, addr, err := h.service.CreateUser(ctx, req.FirstName, req.LastName, req.IDNumber, req.PhoneNumber)
	if err != nil {
		h.logError(ctx, "create user failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, createUserResponse{User: user, Address: addr})
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
		"caller", requestcontext.Caller(ctx).Short(),
	)
}
