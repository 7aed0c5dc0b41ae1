// Package handler wires title catalog endpoints to the title service.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"landlock/internal/ledger"
	"landlock/internal/title"
	dErrors "landlock/pkg/domain-errors"
	"landlock/pkg/platform/httputil"
	"landlock/pkg/requestcontext"
)

// Service defines the title operations the handler exposes.
type Service interface {
	Assign(ctx context.Context, params title.AssignParams) (*title.Deed, ledger.Address, error)
	MarkForSale(ctx context.Context, titleNumber string, price uint64) (*title.Listing, ledger.Address, error)
	Search(ctx context.Context, titleNumber string, searcherAddr ledger.Address) (*title.Deed, *title.Lookup, error)
	GetByNumber(ctx context.Context, titleNumber string) (*title.Deed, ledger.Address, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the signed title endpoints on the router. The read
// endpoint is mounted separately by the router on the public group.
func (h *Handler) Register(r chi.Router) {
	r.Post("/titles", h.HandleAssign)
	r.Post("/titles/search", h.HandleSearch)
	r.Post("/titles/{titleNumber}/listing", h.HandleMarkForSale)
}

func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[assignRequest](w, r)
	if !ok {
		return
	}
	ownerAddr, err := ledger.ParseAddress(req.OwnerAddress)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid owner address"))
		return
	}

	deed, addr, err := h.service.Assign(ctx, title.AssignParams{
		OwnerAddr:              ownerAddr,
		TitleNumber:            req.TitleNumber,
		Location:               req.Location,
		Acreage:                req.Acreage,
		DistrictRegistry:       req.DistrictRegistry,
		RegistryMapsheetNumber: req.RegistryMapsheetNumber,
	})
	if err != nil {
		h.logError(ctx, "assign title failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, deedResponse{Deed: deed, Address: addr})
}

func (h *Handler) HandleMarkForSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	titleNumber := chi.URLParam(r, "titleNumber")

	req, ok := httputil.Decode[markForSaleRequest](w, r)
	if !ok {
		return
	}

	listing, addr, err := h.service.MarkForSale(ctx, titleNumber, req.Price)
	if err != nil {
		h.logError(ctx, "mark for sale failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, listingResponse{Listing: listing, Address: addr})
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[searchRequest](w, r)
	if !ok {
		return
	}
	searcherAddr, err := ledger.ParseAddress(req.SearcherAddress)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid searcher address"))
		return
	}

	deed, lookup, err := h.service.Search(ctx, req.TitleNumber, searcherAddr)
	if err != nil {
		h.logError(ctx, "title search failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, searchResponse{Deed: deed, Lookup: lookup})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	deed, addr, err := h.service.GetByNumber(ctx, chi.URLParam(r, "titleNumber"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, deedResponse{Deed: deed, Address: addr})
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
		"caller", requestcontext.Caller(ctx).Short(),
	)
}
