package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bolsya/internal/core"
)

func TestCategoryService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "cat@example.com")

	tests := []struct {
		name    string
		in      CategoryInput
		field   string
		wantErr bool
	}{
		{name: "defaults applied", in: CategoryInput{Name: "  Pets ", Type: core.Expense}},
		{name: "explicit style", in: CategoryInput{Name: "Gifts", Type: core.Income, Color: "#123abc", Icon: "wallet"}},
		{name: "empty name", in: CategoryInput{Name: "   ", Type: core.Expense}, field: "name", wantErr: true},
		{name: "name too long", in: CategoryInput{Name: "abcdefghijabcdefghijabcdefghijk", Type: core.Expense}, field: "name", wantErr: true},
		{name: "bad type", in: CategoryInput{Name: "Misc", Type: "transfer"}, field: "type", wantErr: true},
		{name: "bad color", in: CategoryInput{Name: "Misc", Type: core.Expense, Color: "red"}, field: "color", wantErr: true},
		{name: "unknown icon", in: CategoryInput{Name: "Misc", Type: core.Expense, Icon: "rocket-ship-x"}, field: "icon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := f.categories.Create(ctx, u.ID, tt.in)
			if tt.wantErr {
				var verr *core.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.field, verr.Field)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, c.ID)
			assert.False(t, c.IsDefault)
			assert.NotEmpty(t, c.Color)
			assert.NotEmpty(t, c.Icon)
		})
	}

	pets := f.category(t, u.ID, "Pets")
	assert.Equal(t, core.DefaultColor, pets.Color)
	assert.Equal(t, core.DefaultIcon, pets.Icon)
}

func TestCategoryService_ListByType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "list@example.com")

	income := core.Income
	cats, err := f.categories.List(ctx, u.ID, &income)
	require.NoError(t, err)
	require.Len(t, cats, 4)
	for i, c := range cats {
		assert.Equal(t, core.Income, c.Type)
		if i > 0 {
			assert.LessOrEqual(t, cats[i-1].Name, c.Name)
		}
	}

	bad := core.EntryType("bogus")
	_, err = f.categories.List(ctx, u.ID, &bad)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestCategoryService_DefaultsAreProtected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "guard@example.com")
	food := f.category(t, u.ID, "Food")

	_, err := f.categories.Update(ctx, u.ID, food.ID, CategoryInput{Name: "Groceries"})
	assert.ErrorIs(t, err, core.ErrProtectedCategory)

	err = f.categories.Delete(ctx, u.ID, food.ID)
	assert.ErrorIs(t, err, core.ErrProtectedCategory)

	again, err := f.categories.Get(ctx, u.ID, food.ID)
	require.NoError(t, err)
	assert.Equal(t, food, again)
}

func TestCategoryService_UpdateKeepsType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "update@example.com")

	c, err := f.categories.Create(ctx, u.ID, CategoryInput{Name: "Pets", Type: core.Expense})
	require.NoError(t, err)

	updated, err := f.categories.Update(ctx, u.ID, c.ID, CategoryInput{Name: "Animals", Type: core.Income, Color: "#000000", Icon: "home"})
	require.NoError(t, err)
	assert.Equal(t, "Animals", updated.Name)
	assert.Equal(t, core.Expense, updated.Type)
	assert.Equal(t, "#000000", updated.Color)
	assert.Equal(t, "home", updated.Icon)

	_, err = f.categories.Update(ctx, u.ID, c.ID, CategoryInput{Name: ""})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestCategoryService_DeleteDetachesTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "detach@example.com")

	c, err := f.categories.Create(ctx, u.ID, CategoryInput{Name: "Pets", Type: core.Expense})
	require.NoError(t, err)
	tx, err := f.transactions.Create(ctx, u.ID, TransactionInput{
		CategoryID: c.ID, Amount: core.Money{Cents: 1500}, Type: core.Expense, Date: day(2025, 3, 4),
	})
	require.NoError(t, err)

	before, err := f.categories.List(ctx, u.ID, nil)
	require.NoError(t, err)
	require.NoError(t, f.categories.Delete(ctx, u.ID, c.ID))
	after, err := f.categories.List(ctx, u.ID, nil)
	require.NoError(t, err)
	assert.Len(t, after, len(before)-1)

	view, err := f.transactions.Get(ctx, u.ID, tx.ID)
	require.NoError(t, err)
	assert.Nil(t, view.CategoryName)
	assert.Equal(t, "Uncategorized", view.CategoryLabel())

	assert.ErrorIs(t, f.categories.Delete(ctx, u.ID, c.ID), core.ErrNotFound)
}

func TestCategoryService_OtherUsersCategoriesAreInvisible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")
	bob := f.user(t, "bob@example.com")

	c, err := f.categories.Create(ctx, alice.ID, CategoryInput{Name: "Pets", Type: core.Expense})
	require.NoError(t, err)

	_, err = f.categories.Get(ctx, bob.ID, c.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, f.categories.Delete(ctx, bob.ID, c.ID), core.ErrNotFound)
}

func TestCategoryService_SeedDefaultsDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "seed@example.com")

	require.NoError(t, f.categories.SeedDefaults(ctx, u.ID))
	cats, err := f.categories.List(ctx, u.ID, nil)
	require.NoError(t, err)
	assert.Len(t, cats, 2*len(core.DefaultCategories))
}
