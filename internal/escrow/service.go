package escrow

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"

	"landlock/internal/agreement"
	"landlock/internal/audit"
	"landlock/internal/escrow/metrics"
	"landlock/internal/identity"
	"landlock/internal/ledger"
	"landlock/internal/title"
	dErrors "landlock/pkg/domain-errors"
	"landlock/pkg/platform/sentinel"
	"landlock/pkg/requestcontext"
)

var tracer = otel.Tracer("landlock/escrow")

// Service runs sale settlement: the seller deposits the title by opening the
// escrow, the buyer deposits the exact agreed payment, and an active
// registrar authorizes the exchange after re-validating the whole chain.
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

// Create opens an escrow for a signed agreement and deposits the title into
// it: the deed's authority is re-pointed from the seller to the escrow
// record, so the seller can no longer list, draft, or transfer while the sale
// is in flight.
func (s *Service) Create(ctx context.Context, agreementAddr ledger.Address) (*Escrow, ledger.Address, error) {
	ctx, span := tracer.Start(ctx, "escrow.Create")
	defer span.End()

	caller := requestcontext.Caller(ctx)

	var esc *Escrow
	escrowAddr := EscrowAddress(agreementAddr)
	err := s.ledger.RunInTx(ctx, func(tx ledger.Tx) error {
		agr, err := agreement.GetAgreement(ctx, tx, agreementAddr)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "agreement not found or cancelled")
			}
			return err
		}
		if agr.Seller.Authority != caller {
			return dErrors.New(dErrors.CodeUnauthorized, "only the seller may open the escrow")
		}
		// Checked before the deed authority gate: the first create re-points
		// the deed's authority at the escrow, which would otherwise mask a
		// duplicate attempt as an authority failure.
		if _, err := tx.Get(ctx, escrowAddr); err == nil {
			return dErrors.New(dErrors.CodeConflict, "escrow already exists for this agreement")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		if !agr.Signed() {
			return dErrors.New(dErrors.CodeFailedPrecondition, "agreement not signed by buyer")
		}

		deed, err := title.GetDeedByAddress(ctx, tx, agr.TitleDeed)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "title deed not found")
			}
			return err
		}
		if deed.Authority != caller {
			return dErrors.New(dErrors.CodeUnauthorized, "caller is not the title authority")
		}

		esc = &Escrow{
			Agreement: agreementAddr,
			TitleDeed: agr.TitleDeed,
			Seller:    agr.Seller.Authority,
			Buyer:     agr.Buyer.Authority,
			State:     StateTitleDeposited,
			CreatedAt: requestcontext.Now(ctx),
		}
		data, err := ledger.Encode(esc)
		if err != nil {
			return err
		}
		if err := tx.Create(ctx, ledger.KindEscrow, escrowAddr, data); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyExists) {
				return dErrors.New(dErrors.CodeConflict, "escrow already exists for this agreement")
			}
			return err
		}

		// Title deposit: the escrow record becomes the deed's authority.
		deed.Authority = escrowAddr.Authority()
		return title.PutDeed(ctx, tx, deed)
	})
	if err != nil {
		span.RecordError(err)
		return nil, "", dErrors.Internal(err, "failed to create escrow")
	}

	if s.metrics != nil {
		s.metrics.IncrementEscrowsCreated()
	}
	s.emit(ctx, audit.Event{
		Action:  audit.ActionEscrowCreated,
		Actor:   caller,
		Subject: escrowAddr.String(),
		Details: map[string]string{"agreement": agreementAddr.String()},
	})
	return esc, escrowAddr, nil
}

// DepositPayment moves the exact agreed price from the buyer's account into
// the escrow's deposit record and advances the state.
func (s *Service) DepositPayment(ctx context.Context, escrowAddr ledger.Address, amount uint64) (*Escrow, error) {
	ctx, span := tracer.Start(ctx, "escrow.DepositPayment")
	defer span.End()

	caller := requestcontext.Caller(ctx)

	var esc *Escrow
	err := s.ledger.RunInTx(ctx, func(tx ledger.Tx) error {
		var err error
		esc, err = GetEscrow(ctx, tx, escrowAddr)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "escrow not found")
			}
			return err
		}
		if esc.Buyer != caller {
			return dErrors.New(dErrors.CodeUnauthorized, "only the buyer may deposit payment")
		}
		if esc.State != StateTitleDeposited {
			return dErrors.New(dErrors.CodeFailedPrecondition, "escrow is not awaiting payment")
		}

		agr, err := agreement.GetAgreement(ctx, tx, esc.Agreement)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "agreement not found or cancelled")
			}
			return err
		}
		if amount != agr.Price {
			return dErrors.Newf(dErrors.CodeFailedPrecondition, "deposit must equal the agreed price of %d", agr.Price)
		}

		deposit := &Deposit{
			Escrow:      escrowAddr,
			Amount:      amount,
			DepositedBy: caller,
			DepositedAt: requestcontext.Now(ctx),
		}
		depositAddr := DepositAddress(escrowAddr)
		data, err := ledger.Encode(deposit)
		if err != nil {
			return err
		}
		if err := tx.Create(ctx, ledger.KindDeposit, depositAddr, data); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyExists) {
				return dErrors.New(dErrors.CodeConflict, "payment already deposited")
			}
			return err
		}

		if err := tx.Deposit(ctx, caller, depositAddr, amount); err != nil {
			switch {
			case errors.Is(err, sentinel.ErrInsufficientFunds):
				return dErrors.New(dErrors.CodeFailedPrecondition, "insufficient funds")
			case errors.Is(err, sentinel.ErrOverflow):
				return dErrors.New(dErrors.CodeArithmetic, "deposit amount overflows the record balance")
			}
			return err
		}

		esc.State = StatePaymentDeposited
		return putEscrow(ctx, tx, escrowAddr, esc)
	})
	if err != nil {
		span.RecordError(err)
		return nil, dErrors.Internal(err, "failed to deposit payment")
	}

	if s.metrics != nil {
		s.metrics.IncrementPaymentsDeposited()
	}
	s.emit(ctx, audit.Event{
		Action:  audit.ActionPaymentDeposited,
		Actor:   caller,
		Subject: escrowAddr.String(),
		Details: map[string]string{"amount": strconv.FormatUint(amount, 10)},
	})
	return esc, nil
}

// Authorize completes the sale. Only an active registrar may call it, and it
// trusts nothing pinned earlier: every party and record relationship is
// re-checked against live state before funds move and ownership transfers.
// A second call finds the state already Completed and fails.
func (s *Service) Authorize(ctx context.Context, escrowAddr ledger.Address) (*Escrow, error) {
	ctx, span := tracer.Start(ctx, "escrow.Authorize")
	defer span.End()
	start := time.Now()

	caller := requestcontext.Caller(ctx)

	var esc *Escrow
	var amount uint64
	err := s.ledger.RunInTx(ctx, func(tx ledger.Tx) error {
		if err := identity.RequireActiveRegistrar(ctx, tx, caller); err != nil {
			return err
		}

		var err error
		esc, err = GetEscrow(ctx, tx, escrowAddr)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "escrow not found")
			}
			return err
		}
		if esc.State != StatePaymentDeposited {
			return dErrors.New(dErrors.CodeFailedPrecondition, "escrow is not ready for settlement")
		}

		agr, err := agreement.GetAgreement(ctx, tx, esc.Agreement)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "agreement not found or cancelled")
			}
			return err
		}
		deed, err := title.GetDeedByAddress(ctx, tx, esc.TitleDeed)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "title deed not found")
			}
			return err
		}

		if deed.Owner.Authority != esc.Seller {
			return dErrors.New(dErrors.CodeFailedPrecondition, "deed owner does not match the escrow seller")
		}
		if agr.Buyer.Authority != esc.Buyer {
			return dErrors.New(dErrors.CodeFailedPrecondition, "agreement buyer does not match the escrow buyer")
		}
		if !agr.Signed() {
			return dErrors.New(dErrors.CodeFailedPrecondition, "agreement not signed by buyer")
		}

		listing, err := title.GetListing(ctx, tx, esc.Seller, esc.TitleDeed)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeFailedPrecondition, "title not marked for sale")
			}
			return err
		}
		if listing.TitleDeed != esc.TitleDeed || listing.Seller.Authority != esc.Seller {
			return dErrors.New(dErrors.CodeFailedPrecondition, "title not marked for sale")
		}

		lookup, err := title.GetLookup(ctx, tx, deed.TitleNumber)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeFailedPrecondition, "title search not performed")
			}
			return err
		}
		if lookup.SearchedBy != esc.Buyer {
			return dErrors.New(dErrors.CodeFailedPrecondition, "buyer is not the recorded searcher of this title")
		}

		deposit, err := getDeposit(ctx, tx, escrowAddr)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeFailedPrecondition, "payment not deposited")
			}
			return err
		}
		amount = deposit.Amount

		// Exchange: funds to the seller, deed to the buyer.
		if err := tx.Release(ctx, DepositAddress(escrowAddr), esc.Seller, amount); err != nil {
			return err
		}

		buyer := agr.Buyer
		deed.Owner = buyer
		deed.Authority = buyer.Authority
		deed.IsForSale = false
		if err := title.PutDeed(ctx, tx, deed); err != nil {
			return err
		}

		completedAt := requestcontext.Now(ctx)
		esc.State = StateCompleted
		esc.CompletedAt = &completedAt
		return putEscrow(ctx, tx, escrowAddr, esc)
	})
	if err != nil {
		span.RecordError(err)
		return nil, dErrors.Internal(err, "failed to authorize settlement")
	}

	if s.metrics != nil {
		s.metrics.ObserveSettlement(start, amount)
	}
	s.emit(ctx, audit.Event{
		Action:  audit.ActionSettlementCompleted,
		Actor:   caller,
		Subject: escrowAddr.String(),
		Details: map[string]string{
			"agreement": esc.Agreement.String(),
			"amount":    strconv.FormatUint(amount, 10),
		},
	})
	return esc, nil
}

// Get is the read-only escrow lookup.
func (s *Service) Get(ctx context.Context, escrowAddr ledger.Address) (*Escrow, error) {
	rec, err := s.ledger.Get(ctx, escrowAddr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "escrow not found")
		}
		return nil, dErrors.Internal(err, "failed to load escrow")
	}
	if rec.Kind != ledger.KindEscrow {
		return nil, dErrors.New(dErrors.CodeNotFound, "escrow not found")
	}
	var esc Escrow
	if err := rec.Decode(&esc); err != nil {
		return nil, dErrors.Internal(err, "failed to load escrow")
	}
	return &esc, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
