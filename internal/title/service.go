package title

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"landlock/internal/audit"
	"landlock/internal/identity"
	"landlock/internal/ledger"
	dErrors "landlock/pkg/domain-errors"
	"landlock/pkg/platform/sentinel"
	"landlock/pkg/requestcontext"
)

// Service manages the deed catalog: registration by registrars, sale listings
// by owners, and the search index buyers must touch before contracting.
type Service struct {
	ledger ledger.Store
	logger *slog.Logger
	audit  audit.Publisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func New(store ledger.Store, opts ...Option) *Service {
	s := &Service{
		ledger: store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AssignParams carries the descriptive fields of a deed registration.
// OwnerAddr is the owner's user record address; parties are always passed by
// record address, never looked up by key.
type AssignParams struct {
	OwnerAddr              ledger.Address
	TitleNumber            string
	Location               string
	Acreage                float64
	DistrictRegistry       string
	RegistryMapsheetNumber uint64
}

// Assign registers (or re-registers) a land parcel under a title number.
// Registrar-only: the caller must hold an active registrar record. Assigning
// an existing title number overwrites the deed in place; correction of
// registry mistakes goes through the same path as first registration.
func (s *Service) Assign(ctx context.Context, params AssignParams) (*Deed, ledger.Address, error) {
	caller := requestcontext.Caller(ctx)
	if params.OwnerAddr == "" {
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "owner address is required")
	}
	if strings.TrimSpace(params.TitleNumber) == "" {
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "title_number is required")
	}
	if params.Acreage <= 0 {
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "acreage must be positive")
	}

	var deed *Deed
	deedAddr := DeedAddress(params.TitleNumber)
	err := s.ledger.RunInTx(ctx, func(tx ledger.Tx) error {
		if err := identity.RequireActiveRegistrar(ctx, tx, caller); err != nil {
			return err
		}
		owner, err := identity.GetUser(ctx, tx, params.OwnerAddr)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "owner user record not found")
			}
			return err
		}

		deed = &Deed{
			Owner:                  *owner,
			Authority:              owner.Authority,
			TitleNumber:            NormalizeTitleNumber(params.TitleNumber),
			Location:               strings.TrimSpace(params.Location),
			Acreage:                params.Acreage,
			DistrictRegistry:       strings.TrimSpace(params.DistrictRegistry),
			RegistryMapsheetNumber: params.RegistryMapsheetNumber,
			RegistrationDate:       requestcontext.Now(ctx),
			IsForSale:              false,
		}
		data, err := ledger.Encode(deed)
		if err != nil {
			return err
		}
		if err := tx.Create(ctx, ledger.KindTitleDeed, deedAddr, data); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyExists) {
				return tx.Put(ctx, deedAddr, data)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, "", dErrors.Internal(err, "failed to assign title")
	}

	s.emit(ctx, audit.Event{
		Action:  audit.ActionTitleAssigned,
		Actor:   caller,
		Subject: deedAddr.String(),
		Details: map[string]string{"title_number": deed.TitleNumber},
	})
	return deed, deedAddr, nil
}

// MarkForSale lists a deed at a price. Only the deed's current authority may
// list, and only while that authority is still the recorded owner: a deed
// whose authority sits with an escrow cannot be re-listed mid-sale.
func (s *Service) MarkForSale(ctx context.Context, titleNumber string, price uint64) (*Listing, ledger.Address, error) {
	caller := requestcontext.Caller(ctx)
	if price == 0 {
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "sale price must be positive")
	}

	var listing *Listing
	var listingAddr ledger.Address
	err := s.ledger.RunInTx(ctx, func(tx ledger.Tx) error {
		deedAddr, deed, err := GetDeed(ctx, tx, titleNumber)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "title deed not found")
			}
			return err
		}
		if deed.Authority != caller || deed.Owner.Authority != caller {
			return dErrors.New(dErrors.CodeUnauthorized, "only the title owner may list it for sale")
		}

		listing = &Listing{
			TitleDeed: deedAddr,
			Seller:    deed.Owner,
			SalePrice: price,
			ListedAt:  requestcontext.Now(ctx),
		}
		listingAddr = ListingAddress(caller, deedAddr)
		data, err := ledger.Encode(listing)
		if err != nil {
			return err
		}
		if err := tx.Create(ctx, ledger.KindTitleForSale, listingAddr, data); err != nil {
			return err
		}

		deed.IsForSale = true
		return PutDeed(ctx, tx, deed)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, "", dErrors.New(dErrors.CodeConflict, "title is already listed for sale")
		}
		return nil, "", dErrors.Internal(err, "failed to list title for sale")
	}

	s.emit(ctx, audit.Event{
		Action:  audit.ActionTitleListed,
		Actor:   caller,
		Subject: listing.TitleDeed.String(),
		Details: map[string]string{"listing": listingAddr.String()},
	})
	return listing, listingAddr, nil
}

// Search performs the official title search a buyer must complete before an
// agreement can name them. SearcherAddr is the caller's own user record; the
// search is recorded in the lookup entry and overwrites any earlier searcher.
func (s *Service) Search(ctx context.Context, titleNumber string, searcherAddr ledger.Address) (*Deed, *Lookup, error) {
	caller := requestcontext.Caller(ctx)

	var deed Deed
	var lookup *Lookup
	err := s.ledger.RunInTx(ctx, func(tx ledger.Tx) error {
		searcher, err := identity.GetUser(ctx, tx, searcherAddr)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "searcher user record not found")
			}
			return err
		}
		if searcher.Authority != caller {
			return dErrors.New(dErrors.CodeUnauthorized, "searcher record does not belong to the caller")
		}

		deedAddr := DeedAddress(titleNumber)
		deed, err = GetDeedByAddress(ctx, tx, deedAddr)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "title deed not found")
			}
			return err
		}

		lookup = &Lookup{
			TitleNumber: deed.TitleNumber,
			TitleDeed:   deedAddr,
			SearchedBy:  caller,
		}
		data, err := ledger.Encode(lookup)
		if err != nil {
			return err
		}
		lookupAddr := LookupAddress(titleNumber)
		if err := tx.Create(ctx, ledger.KindTitleLookup, lookupAddr, data); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyExists) {
				return tx.Put(ctx, lookupAddr, data)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, dErrors.Internal(err, "failed to search title")
	}

	s.emit(ctx, audit.Event{
		Action:  audit.ActionTitleSearched,
		Actor:   caller,
		Subject: lookup.TitleDeed.String(),
		Details: map[string]string{"title_number": lookup.TitleNumber},
	})
	return &deed, lookup, nil
}

// GetByNumber is the read-only deed lookup behind GET /titles/{titleNumber}.
func (s *Service) GetByNumber(ctx context.Context, titleNumber string) (*Deed, ledger.Address, error) {
	deedAddr := DeedAddress(titleNumber)
	rec, err := s.ledger.Get(ctx, deedAddr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, "", dErrors.New(dErrors.CodeNotFound, "title deed not found")
		}
		return nil, "", dErrors.Internal(err, "failed to load title")
	}
	var deed Deed
	if err := rec.Decode(&deed); err != nil {
		return nil, "", dErrors.Internal(err, "failed to load title")
	}
	return &deed, deedAddr, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
