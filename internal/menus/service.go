package menus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/odyssey-manage/internal/shared"
)

// Invalidator drops cached entities after a write.
type Invalidator interface {
	Invalidate(ctx context.Context) (int64, error)
}

// Service handles menu business logic.
type Service struct {
	store       Store
	invalidator Invalidator
	logger      *slog.Logger
}

// NewService builds Service instance.
func NewService(store Store, invalidator Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, invalidator: invalidator, logger: logger}
}

// Tree returns the full menu tree.
func (s *Service) Tree(ctx context.Context) (*Menu, error) {
	return s.store.Tree(ctx)
}

// Create adds a menu below an existing parent and invalidates cached menus.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Menu, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Resource = strings.TrimSpace(input.Resource)
	if input.Name == "" || input.ParentID < RootID {
		return nil, shared.ErrValidation
	}
	if input.ParentID != RootID {
		if _, err := s.store.FindByID(ctx, input.ParentID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, fmt.Errorf("%w: %d", ErrParentNotFound, input.ParentID)
			}
			return nil, err
		}
	}
	menu, err := s.store.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	if s.invalidator != nil {
		if _, err := s.invalidator.Invalidate(ctx); err != nil {
			s.logger.Warn("invalidate menu cache", slog.Int64("menu_id", menu.ID), slog.Any("error", err))
		}
	}
	return menu, nil
}
