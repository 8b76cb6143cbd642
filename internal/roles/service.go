package roles

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/odyssey-erp/odyssey-manage/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	FindByID(ctx context.Context, id int64) (*Role, error)
	FindByName(ctx context.Context, name string) (*Role, error)
	Create(ctx context.Context, input CreateInput) (*Role, error)
}

// Invalidator drops cached entities after a write.
type Invalidator interface {
	Invalidate(ctx context.Context) (int64, error)
}

// Service handles role business logic.
type Service struct {
	repo        RepositoryPort
	invalidator Invalidator
	logger      *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, invalidator Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, invalidator: invalidator, logger: logger}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// FindByID returns the role with id, or shared.ErrNotFound.
func (s *Service) FindByID(ctx context.Context, id int64) (*Role, error) {
	if id < 1 {
		return nil, shared.ErrNotFound
	}
	return s.repo.FindByID(ctx, id)
}

// Create stores a new role. Resources are trimmed, deduplicated and sorted.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Role, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, shared.ErrValidation
	}
	resources := make([]string, 0, len(input.Resources))
	for _, res := range input.Resources {
		if res = strings.TrimSpace(res); res != "" {
			resources = append(resources, res)
		}
	}
	slices.Sort(resources)
	input.Resources = slices.Compact(resources)

	role, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	if s.invalidator != nil {
		if _, err := s.invalidator.Invalidate(ctx); err != nil {
			s.logger.Warn("invalidate role cache", slog.Int64("role_id", role.ID), slog.Any("error", err))
		}
	}
	return role, nil
}
