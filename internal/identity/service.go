package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"landlock/internal/audit"
	"landlock/internal/ledger"
	"landlock/pkg/domain"
	dErrors "landlock/pkg/domain-errors"
	"landlock/pkg/platform/sentinel"
	"landlock/pkg/requestcontext"
	"landlock/pkg/secrets"
)

// MaxAdmins bounds the configured admin allowlist.
const MaxAdmins = 5

// Service manages admins, registrars, and users. The admin allowlist is
// process-wide configuration fixed at construction; there is no runtime
// mutation path.
type Service struct {
	ledger ledger.Store
	admins []domain.PublicKey
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

// New constructs the identity service, validating the admin allowlist.
func New(store ledger.Store, admins []domain.PublicKey, opts ...Option) (*Service, error) {
	if len(admins) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "admin allowlist must not be empty")
	}
	if len(admins) > MaxAdmins {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "admin allowlist is limited to %d entries", MaxAdmins)
	}
	seen := make(map[domain.PublicKey]struct{}, len(admins))
	for _, key := range admins {
		if key.IsZero() {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "admin allowlist contains an empty key")
		}
		if _, dup := seen[key]; dup {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "admin allowlist contains %s twice", key.Short())
		}
		seen[key] = struct{}{}
	}

	s := &Service{
		ledger: store,
		admins: append([]domain.PublicKey(nil), admins...),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ConfirmAdmin lets a pre-listed admin claim their seat. One admin cannot
// confirm another: the record address derives from the caller's own key.
func (s *Service) ConfirmAdmin(ctx context.Context) (*Admin, error) {
	caller := requestcontext.Caller(ctx)
	if !s.isAdmin(caller) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid admin account")
	}

	admin := &Admin{
		Authority:   caller,
		ConfirmedAt: requestcontext.Now(ctx),
	}
	err := s.ledger.RunInTx(ctx, func(tx ledger.Tx) error {
		data, err := ledger.Encode(admin)
		if err != nil {
			return err
		}
		return tx.Create(ctx, ledger.KindAdmin, AdminAddress(caller), data)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, dErrors.New(dErrors.CodeConflict, "admin account already confirmed")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to confirm admin")
	}

	s.emit(ctx, audit.Event{Action: audit.ActionAdminConfirmed, Actor: caller})
	return admin, nil
}

// AddRegistrar creates an inactive registrar record for the given authority
// and returns the one-time invitation code the registrar must present to
// activate. Admin-only.
func (s *Service) AddRegistrar(ctx context.Context, authority domain.PublicKey, firstName, lastName, idNumber string) (*Registrar, string, error) {
	caller := requestcontext.Caller(ctx)
	if authority.IsZero() {
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "registrar authority is required")
	}
	if err := requireNonEmpty(map[string]string{
		"first_name": firstName,
		"last_name":  lastName,
		"id_number":  idNumber,
	}); err != nil {
		return nil, "", err
	}

	code, err := secrets.Generate()
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate invitation code")
	}
	hash, err := secrets.Hash(code)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash invitation code")
	}

	registrar := &Registrar{
		Authority:  authority,
		AddedBy:    caller,
		IsActive:   false,
		FirstName:  strings.TrimSpace(firstName),
		LastName:   strings.TrimSpace(lastName),
		IDNumber:   strings.TrimSpace(idNumber),
		InviteHash: hash,
		AddedAt:    requestcontext.Now(ctx),
	}
	err = s.ledger.RunInTx(ctx, func(tx ledger.Tx) error {
		if _, err := tx.Get(ctx, AdminAddress(caller)); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeUnauthorized, "invalid admin account")
			}
			return err
		}
		data, err := ledger.Encode(registrar)
		if err != nil {
			return err
		}
		return tx.Create(ctx, ledger.KindRegistrar, RegistrarAddress(authority), data)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, "", dErrors.New(dErrors.CodeConflict, "registrar already exists")
		}
		return nil, "", dErrors.Internal(err, "failed to add registrar")
	}

	s.emit(ctx, audit.Event{
		Action:  audit.ActionRegistrarAdded,
		Actor:   caller,
		Subject: authority.String(),
	})
	return registrar, code, nil
}

// ConfirmRegistrar activates the caller's registrar record. Fails if the
// record is already active or the invitation code does not verify.
func (s *Service) ConfirmRegistrar(ctx context.Context, code string) (*Registrar, error) {
	caller := requestcontext.Caller(ctx)

	var registrar *Registrar
	err := s.ledger.RunInTx(ctx, func(tx ledger.Tx) error {
		var err error
		registrar, err = GetRegistrar(ctx, tx, caller)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeUnauthorized, "invalid registrar account")
			}
			return err
		}
		if registrar.IsActive {
			return dErrors.New(dErrors.CodeFailedPrecondition, "registrar already confirmed")
		}
		if err := secrets.Verify(code, registrar.InviteHash); err != nil {
			return dErrors.New(dErrors.CodeUnauthorized, "invalid invitation code")
		}
		registrar.IsActive = true
		registrar.ConfirmedAt = requestcontext.Now(ctx)
		return putRegistrar(ctx, tx, registrar)
	})
	if err != nil {
		return nil, dErrors.Internal(err, "failed to confirm registrar")
	}

	s.emit(ctx, audit.Event{Action: audit.ActionRegistrarConfirmed, Actor: caller})
	return registrar, nil
}

// CreateUser registers the caller as a protocol user. The user record and the
// id-number claim are created in one transaction: both succeed or neither.
func (s *Service) CreateUser(ctx context.Context, firstName, lastName, idNumber, phoneNumber string) (*User, ledger.Address, error) {
	caller := requestcontext.Caller(ctx)
	if err := requireNonEmpty(map[string]string{
		"first_name":   firstName,
		"last_name":    lastName,
		"id_number":    idNumber,
		"phone_number": phoneNumber,
	}); err != nil {
		return nil, "", err
	}

	user := &User{
		Authority:   caller,
		FirstName:   strings.TrimSpace(firstName),
		LastName:    strings.TrimSpace(lastName),
		IDNumber:    strings.TrimSpace(idNumber),
		PhoneNumber: strings.TrimSpace(phoneNumber),
		CreatedAt:   requestcontext.Now(ctx),
	}
	userAddr := UserAddress(user.IDNumber, caller)

	err := s.ledger.RunInTx(ctx, func(tx ledger.Tx) error {
		userData, err := ledger.Encode(user)
		if err != nil {
			return err
		}
		if err := tx.Create(ctx, ledger.KindUser, userAddr, userData); err != nil {
			return err
		}
		claimData, err := ledger.Encode(&IDNumberClaim{Person: userAddr})
		if err != nil {
			return err
		}
		return tx.Create(ctx, ledger.KindIDNumberClaim, ClaimAddress(user.IDNumber), claimData)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, "", dErrors.New(dErrors.CodeConflict, "id number already claimed")
		}
		return nil, "", dErrors.Internal(err, "failed to create user")
	}

	s.emit(ctx, audit.Event{
		Action:  audit.ActionUserCreated,
		Actor:   caller,
		Subject: userAddr.String(),
	})
	return user, userAddr, nil
}

func (s *Service) isAdmin(key domain.PublicKey) bool {
	if key.IsZero() {
		return false
	}
	for _, admin := range s.admins {
		if admin == key {
			return true
		}
	}
	return false
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}

func requireNonEmpty(fields map[string]string) error {
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			return dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", name)
		}
	}
	return nil
}
