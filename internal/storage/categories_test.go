package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bolsya/internal/core"
)

func TestSeedDefaultCategories_NotIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo, "a@example.com")

	require.NoError(t, repo.SeedDefaultCategories(ctx, u.ID))

	cats, err := repo.ListCategories(ctx, u.ID, nil)
	require.NoError(t, err)
	assert.Len(t, cats, 24)
}

func TestListCategories_FilterAndOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo, "a@example.com")

	income := core.Income
	cats, err := repo.ListCategories(ctx, u.ID, &income)
	require.NoError(t, err)
	require.Len(t, cats, 4)
	names := make([]string, len(cats))
	for i, c := range cats {
		assert.Equal(t, core.Income, c.Type)
		names[i] = c.Name
	}
	assert.Equal(t, []string{"Freelance", "Investments", "Other income", "Salary"}, names)

	expense := core.Expense
	cats, err = repo.ListCategories(ctx, u.ID, &expense)
	require.NoError(t, err)
	assert.Len(t, cats, 8)

	other := newTestUser(t, repo, "b@example.com")
	_, err = repo.CreateCategory(ctx, core.Category{UserID: other.ID, Name: "Pets", Type: core.Expense})
	require.NoError(t, err)
	cats, err = repo.ListCategories(ctx, u.ID, nil)
	require.NoError(t, err)
	assert.Len(t, cats, 12)
}

func TestCreateCategory_AppliesDefaults(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo, "a@example.com")

	c, err := repo.CreateCategory(ctx, core.Category{UserID: u.ID, Name: "Pets", Type: core.Expense, IsDefault: true})
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
	assert.False(t, c.IsDefault)

	got, err := repo.GetCategory(ctx, u.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DefaultColor, got.Color)
	assert.Equal(t, core.DefaultIcon, got.Icon)

	// Duplicate names are allowed.
	_, err = repo.CreateCategory(ctx, core.Category{UserID: u.ID, Name: "Pets", Type: core.Expense})
	require.NoError(t, err)
}

func TestUpdateCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo, "a@example.com")

	c, err := repo.CreateCategory(ctx, core.Category{UserID: u.ID, Name: "Pets", Type: core.Expense})
	require.NoError(t, err)

	updated, err := repo.UpdateCategory(ctx, core.Category{
		ID: c.ID, UserID: u.ID, Name: "Animals", Color: "#000000", Icon: "paw", Type: core.Income,
	})
	require.NoError(t, err)
	assert.Equal(t, "Animals", updated.Name)
	assert.Equal(t, "paw", updated.Icon)
	assert.Equal(t, core.Expense, updated.Type, "type is immutable")

	food := categoryByName(t, repo, u.ID, "Food")
	_, err = repo.UpdateCategory(ctx, core.Category{ID: food.ID, UserID: u.ID, Name: "Groceries"})
	require.ErrorIs(t, err, core.ErrProtectedCategory)
	assert.Equal(t, "Food", categoryByName(t, repo, u.ID, "Food").Name)

	_, err = repo.UpdateCategory(ctx, core.Category{ID: 9999, UserID: u.ID, Name: "Ghost"})
	require.ErrorIs(t, err, core.ErrNotFound)

	other := newTestUser(t, repo, "b@example.com")
	_, err = repo.UpdateCategory(ctx, core.Category{ID: c.ID, UserID: other.ID, Name: "Stolen"})
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeleteCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo, "a@example.com")

	food := categoryByName(t, repo, u.ID, "Food")
	require.ErrorIs(t, repo.DeleteCategory(ctx, u.ID, food.ID), core.ErrProtectedCategory)
	got, err := repo.GetCategory(ctx, u.ID, food.ID)
	require.NoError(t, err)
	assert.Equal(t, food, got)

	pets, err := repo.CreateCategory(ctx, core.Category{UserID: u.ID, Name: "Pets", Type: core.Expense})
	require.NoError(t, err)
	tx, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID: u.ID, CategoryID: pets.ID, Amount: core.Money{Cents: 1500}, Type: core.Expense, Date: day(2025, 3, 1),
	})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteCategory(ctx, u.ID, pets.ID))
	cats, err := repo.ListCategories(ctx, u.ID, nil)
	require.NoError(t, err)
	assert.Len(t, cats, 12)

	// The transaction survives with no category.
	view, err := repo.GetTransaction(ctx, u.ID, tx.ID)
	require.NoError(t, err)
	assert.Nil(t, view.CategoryName)
	assert.Zero(t, view.CategoryID)
	assert.Equal(t, "Uncategorized", view.CategoryLabel())

	require.ErrorIs(t, repo.DeleteCategory(ctx, u.ID, pets.ID), core.ErrNotFound)
}
