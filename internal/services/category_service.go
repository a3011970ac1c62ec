package services

import (
	"context"
	"fmt"
	"strings"

	"bolsya/internal/core"
	"bolsya/internal/storage"
)

// CategoryInput carries the user-editable fields of a category.
type CategoryInput struct {
	Name  string
	Type  core.EntryType
	Color string
	Icon  string
}

// CategoryService is the category registry. Default categories can be read
// but never changed or removed.
type CategoryService struct {
	storage *storage.SQLiteRepository
	stats   *StatsService
}

func NewCategoryService(storage *storage.SQLiteRepository, stats *StatsService) *CategoryService {
	return &CategoryService{storage: storage, stats: stats}
}

// SeedDefaults copies the default set to the user. Calling it twice
// duplicates the set.
func (s *CategoryService) SeedDefaults(ctx context.Context, userID int64) error {
	if err := s.storage.SeedDefaultCategories(ctx, userID); err != nil {
		return err
	}
	s.stats.Invalidate(ctx, userID)
	return nil
}

func (s *CategoryService) Create(ctx context.Context, userID int64, in CategoryInput) (core.Category, error) {
	c := core.Category{
		UserID: userID,
		Name:   strings.TrimSpace(in.Name),
		Type:   in.Type,
		Color:  strings.TrimSpace(in.Color),
		Icon:   strings.TrimSpace(in.Icon),
	}.WithDefaults()
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	created, err := s.storage.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, err
	}
	return created, nil
}

// List returns the user's categories by name, optionally of one type only.
func (s *CategoryService) List(ctx context.Context, userID int64, typ *core.EntryType) ([]core.Category, error) {
	if typ != nil && !typ.Valid() {
		return nil, core.Invalid("type", core.ErrInvalidType)
	}
	return s.storage.ListCategories(ctx, userID, typ)
}

func (s *CategoryService) Get(ctx context.Context, userID, id int64) (core.Category, error) {
	return s.storage.GetCategory(ctx, userID, id)
}

// Update changes name, color and icon. in.Type is ignored because a
// category's type is fixed at creation.
func (s *CategoryService) Update(ctx context.Context, userID, id int64, in CategoryInput) (core.Category, error) {
	current, err := s.storage.GetCategory(ctx, userID, id)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	if current.IsDefault {
		return core.Category{}, core.ErrProtectedCategory
	}

	next := current
	next.Name = strings.TrimSpace(in.Name)
	next.Color = strings.TrimSpace(in.Color)
	next.Icon = strings.TrimSpace(in.Icon)
	next = next.WithDefaults()
	if err := next.Validate(); err != nil {
		return core.Category{}, err
	}

	updated, err := s.storage.UpdateCategory(ctx, next)
	if err != nil {
		return core.Category{}, err
	}
	s.stats.Invalidate(ctx, userID)
	return updated, nil
}

// Delete removes a non-default category. Its transactions stay in the
// ledger without a category.
func (s *CategoryService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.storage.DeleteCategory(ctx, userID, id); err != nil {
		return err
	}
	s.stats.Invalidate(ctx, userID)
	return nil
}
