package admins

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-manage/internal/auditlog"
	"github.com/odyssey-erp/odyssey-manage/internal/manage"
	"github.com/odyssey-erp/odyssey-manage/internal/shared"
)

// MinPasswordLength is the shortest password accepted by Create.
const MinPasswordLength = 6

// Service wraps administrator business rules.
type Service struct {
	repo   Repository
	audit  auditlog.Recorder
	logger *slog.Logger
	cost   int
	now    func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithBcryptCost overrides the bcrypt cost used for new passwords.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// NewService constructs a new Service. audit may be nil.
func NewService(repo Repository, audit auditlog.Recorder, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{repo: repo, audit: audit, logger: logger, cost: bcrypt.DefaultCost, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login implements manage.Authenticator. Unknown accounts, disabled accounts
// and wrong passwords all yield shared.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, account, password string) (manage.Administrator, error) {
	admin, err := s.Authenticate(ctx, account, password)
	if err != nil {
		return nil, err
	}
	return admin, nil
}

// Authenticate validates account/password credentials and records the login.
func (s *Service) Authenticate(ctx context.Context, account, password string) (*Administrator, error) {
	account = strings.TrimSpace(account)
	if account == "" || password == "" {
		return nil, shared.ErrInvalidCredentials
	}
	admin, err := s.repo.FindByAccount(ctx, account)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.record(ctx, 0, auditlog.ActionLoginFailed, account, "unknown account")
			return nil, shared.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("admins: find %q: %w", account, err)
	}
	if !admin.IsActive {
		s.record(ctx, admin.ID, auditlog.ActionLoginFailed, admin.Account, "disabled")
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		s.record(ctx, admin.ID, auditlog.ActionLoginFailed, admin.Account, "bad password")
		return nil, shared.ErrInvalidCredentials
	}

	now := s.now().UTC()
	ip := auditlog.RemoteAddr(ctx)
	if err := s.repo.RecordLogin(ctx, admin.ID, now, ip); err != nil {
		s.logger.Warn("record login", slog.Int64("admin_id", admin.ID), slog.Any("error", err))
	} else {
		admin.Logins++
		admin.LastLoginAt = &now
		admin.LastLoginIP = ip
	}
	s.record(ctx, admin.ID, auditlog.ActionLogin, admin.Account, "")
	return admin, nil
}

// Create stores a new administrator with a bcrypt hashed password.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Administrator, error) {
	input.Account = strings.TrimSpace(input.Account)
	if input.Account == "" || len(input.Password) < MinPasswordLength || input.RoleID < 0 {
		return nil, shared.ErrValidation
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("admins: hash password: %w", err)
	}
	return s.repo.Create(ctx, input, string(hash))
}

func (s *Service) record(ctx context.Context, actorID int64, action, subject, reason string) {
	if s.audit == nil {
		return
	}
	entry := auditlog.Entry{
		ActorID:  actorID,
		Category: auditlog.CategoryAdministrator,
		Action:   action,
		Subject:  subject,
		IP:       auditlog.RemoteAddr(ctx),
	}
	if reason != "" {
		entry.Meta = map[string]any{"reason": reason}
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("audit login", slog.String("action", action), slog.Any("error", err))
	}
}

var _ manage.Authenticator = (*Service)(nil)
