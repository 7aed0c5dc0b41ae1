package agreement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"landlock/internal/agreement/metrics"
	"landlock/internal/audit"
	"landlock/internal/identity"
	"landlock/internal/ledger"
	"landlock/internal/title"
	dErrors "landlock/pkg/domain-errors"
	"landlock/pkg/platform/sentinel"
	"landlock/pkg/requestcontext"
)

var tracer = otel.Tracer("landlock/agreement")

// Service manages sale agreements: drafting by the seller, confirmation by
// the buyer, and cancellation by either party.
type Service struct {
	ledger  ledger.Store
	logger  *slog.Logger
	audit   audit.Publisher
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
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

// Draft creates a sale agreement for a listed deed. Only the deed's current
// authority may draft, the buyer must be the last recorded searcher of the
// title, and the per-deed index must not already point at a live agreement.
func (s *Service) Draft(ctx context.Context, titleNumber string, buyerAddr ledger.Address, price uint64) (*Agreement, ledger.Address, error) {
	ctx, span := tracer.Start(ctx, "agreement.Draft")
	defer span.End()
	if s.metrics != nil {
		defer s.metrics.ObserveDraft(time.Now())
	}

	caller := requestcontext.Caller(ctx)
	if price == 0 {
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "price must be positive")
	}
	if buyerAddr == "" {
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "buyer address is required")
	}

	var agreement *Agreement
	var agreementAddr ledger.Address
	err := s.ledger.RunInTx(ctx, func(tx ledger.Tx) error {
		deedAddr, deed, err := title.GetDeed(ctx, tx, titleNumber)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "title deed not found")
			}
			return err
		}
		if deed.Authority != caller {
			return dErrors.New(dErrors.CodeUnauthorized, "only the title authority may draft an agreement")
		}

		buyer, err := identity.GetUser(ctx, tx, buyerAddr)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "buyer user record not found")
			}
			return err
		}

		lookup, err := title.GetLookup(ctx, tx, titleNumber)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeFailedPrecondition, "title search not performed")
			}
			return err
		}
		if lookup.TitleDeed != deedAddr {
			return dErrors.New(dErrors.CodeFailedPrecondition, "title search does not match this deed")
		}
		if lookup.SearchedBy.IsZero() || lookup.SearchedBy != buyer.Authority {
			return dErrors.New(dErrors.CodeUnauthorized, "buyer has not searched this title")
		}

		listing, err := title.GetListing(ctx, tx, caller, deedAddr)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeFailedPrecondition, "title not marked for sale")
			}
			return err
		}
		if listing.TitleDeed != deedAddr || listing.Seller.Authority != caller {
			return dErrors.New(dErrors.CodeFailedPrecondition, "title not marked for sale")
		}

		index, err := getIndex(ctx, tx, deedAddr)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		if index != nil && index.Agreement != "" {
			return dErrors.New(dErrors.CodeConflict, "agreement already exists for this title deed")
		}

		agreement = &Agreement{
			Seller:    listing.Seller,
			Buyer:     *buyer,
			TitleDeed: deedAddr,
			Price:     price,
			DraftedBy: caller,
			DraftedAt: requestcontext.Now(ctx),
		}
		agreementAddr = AgreementAddress(caller, buyer.Authority, deedAddr, price)
		data, err := ledger.Encode(agreement)
		if err != nil {
			return err
		}
		if err := tx.Create(ctx, ledger.KindAgreement, agreementAddr, data); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyExists) {
				return dErrors.New(dErrors.CodeConflict, "agreement already exists for this title deed")
			}
			return err
		}

		indexData, err := ledger.Encode(&Index{TitleDeed: deedAddr, Agreement: agreementAddr})
		if err != nil {
			return err
		}
		indexAddr := IndexAddress(deedAddr)
		if index == nil {
			if err := tx.Create(ctx, ledger.KindAgreementIdx, indexAddr, indexData); err != nil {
				if errors.Is(err, sentinel.ErrAlreadyExists) {
					return dErrors.New(dErrors.CodeConflict, "agreement already exists for this title deed")
				}
				return err
			}
			return nil
		}
		return tx.Put(ctx, indexAddr, indexData)
	})
	if err != nil {
		span.RecordError(err)
		return nil, "", dErrors.Internal(err, "failed to draft agreement")
	}

	if s.metrics != nil {
		s.metrics.IncrementDrafted()
	}
	s.emit(ctx, audit.Event{
		Action:  audit.ActionAgreementDrafted,
		Actor:   caller,
		Subject: agreementAddr.String(),
		Details: map[string]string{"title_deed": agreement.TitleDeed.String()},
	})
	return agreement, agreementAddr, nil
}

// Sign records the buyer's confirmation on an agreement. Only the named
// buyer's key may sign. Signing twice simply refreshes the confirmation.
func (s *Service) Sign(ctx context.Context, agreementAddr ledger.Address) (*Agreement, error) {
	ctx, span := tracer.Start(ctx, "agreement.Sign")
	defer span.End()

	caller := requestcontext.Caller(ctx)

	var agreement *Agreement
	err := s.ledger.RunInTx(ctx, func(tx ledger.Tx) error {
		var err error
		agreement, err = GetAgreement(ctx, tx, agreementAddr)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "agreement not found")
			}
			return err
		}
		if agreement.Buyer.Authority != caller {
			return dErrors.New(dErrors.CodeUnauthorized, "only the named buyer may sign the agreement")
		}

		confirmedAt := requestcontext.Now(ctx)
		agreement.BuyerConfirmation = &agreement.Buyer.Authority
		agreement.BuyerConfirmedAt = &confirmedAt
		return putAgreement(ctx, tx, agreementAddr, agreement)
	})
	if err != nil {
		span.RecordError(err)
		return nil, dErrors.Internal(err, "failed to sign agreement")
	}

	if s.metrics != nil {
		s.metrics.IncrementSigned()
	}
	s.emit(ctx, audit.Event{
		Action:  audit.ActionAgreementSigned,
		Actor:   caller,
		Subject: agreementAddr.String(),
	})
	return agreement, nil
}

// Cancel withdraws an agreement. Either named party may cancel; the agreement
// and the per-deed index are both reclaimed to the caller, reopening the deed
// for a fresh draft.
func (s *Service) Cancel(ctx context.Context, agreementAddr ledger.Address) error {
	ctx, span := tracer.Start(ctx, "agreement.Cancel")
	defer span.End()

	caller := requestcontext.Caller(ctx)

	err := s.ledger.RunInTx(ctx, func(tx ledger.Tx) error {
		agreement, err := GetAgreement(ctx, tx, agreementAddr)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "agreement not found")
			}
			return err
		}
		if agreement.Seller.Authority != caller && agreement.Buyer.Authority != caller {
			return dErrors.New(dErrors.CodeUnauthorized, "only the named seller or buyer may cancel")
		}

		if err := tx.Reclaim(ctx, agreementAddr, caller); err != nil {
			return err
		}
		return tx.Reclaim(ctx, IndexAddress(agreement.TitleDeed), caller)
	})
	if err != nil {
		span.RecordError(err)
		return dErrors.Internal(err, "failed to cancel agreement")
	}

	if s.metrics != nil {
		s.metrics.IncrementCancelled()
	}
	s.emit(ctx, audit.Event{
		Action:  audit.ActionAgreementCancelled,
		Actor:   caller,
		Subject: agreementAddr.String(),
	})
	return nil
}

// Get is the read-only agreement lookup.
func (s *Service) Get(ctx context.Context, agreementAddr ledger.Address) (*Agreement, error) {
	rec, err := s.ledger.Get(ctx, agreementAddr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "agreement not found")
		}
		return nil, dErrors.Internal(err, "failed to load agreement")
	}
	if rec.Kind != ledger.KindAgreement {
		return nil, dErrors.New(dErrors.CodeNotFound, "agreement not found")
	}
	var agreement Agreement
	if err := rec.Decode(&agreement); err != nil {
		return nil, dErrors.Internal(err, "failed to load agreement")
	}
	return &agreement, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
