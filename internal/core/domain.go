package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  EntryType = "income"
	Expense EntryType = "expense"
)

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

const (
	DefaultColor = "#6366f1"
	DefaultIcon  = "help-circle"

	MaxCategoryName = 30
	MaxDescription  = 200
)

type (
	// EntryType is shared by categories and transactions.
	EntryType string

	// Role identifies the author of a chat message.
	Role string

	User struct {
		ID           int64
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	Category struct {
		ID        int64
		UserID    int64
		Name      string
		Type      EntryType
		Color     string
		Icon      string
		IsDefault bool
	}

	Transaction struct {
		ID          int64
		UserID      int64
		CategoryID  int64
		Amount      Money
		Type        EntryType
		Date        time.Time
		Description string
		CreatedAt   time.Time
	}

	// TransactionView is a transaction joined with its category. The category
	// fields are nil when the category was deleted.
	TransactionView struct {
		Transaction
		CategoryName  *string
		CategoryColor *string
		CategoryIcon  *string
	}

	ChatMessage struct {
		ID        int64
		UserID    int64
		Role      Role
		Content   string
		CreatedAt time.Time
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidType        = errors.New("invalid type")
	ErrTypeMismatch       = errors.New("transaction type does not match category type")
	ErrEmptyName          = errors.New("empty category name")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidColor       = errors.New("invalid color")
	ErrInvalidIcon        = errors.New("invalid icon")
	ErrEmptyEmail         = errors.New("empty email")
	ErrWeakPassword       = errors.New("password too short")
	ErrEmptyMessage       = errors.New("empty message")
	ErrProtectedCategory  = errors.New("default categories cannot be modified or deleted")
	ErrNotFound           = errors.New("not found")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrConstraint         = errors.New("constraint violation")
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func (t EntryType) Valid() bool {
	return t == Income || t == Expense
}

func (t EntryType) String() string {
	return string(t)
}

func ParseEntryType(s string) (EntryType, error) {
	t := EntryType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", Invalid("type", ErrInvalidType)
	}
	return t, nil
}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// WithDefaults fills empty color and icon with the schema defaults.
func (c Category) WithDefaults() Category {
	if strings.TrimSpace(c.Color) == "" {
		c.Color = DefaultColor
	}
	if strings.TrimSpace(c.Icon) == "" {
		c.Icon = DefaultIcon
	}
	return c
}

func (c Category) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return Invalid("name", ErrEmptyName)
	}
	if utf8.RuneCountInString(name) > MaxCategoryName {
		return Invalid("name", fmt.Errorf("name too long (max %d characters)", MaxCategoryName))
	}
	if !c.Type.Valid() {
		return Invalid("type", ErrInvalidType)
	}
	if !hexColor.MatchString(c.Color) {
		return Invalid("color", ErrInvalidColor)
	}
	if !IsKnownIcon(c.Icon) {
		return Invalid("icon", ErrInvalidIcon)
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return Invalid("amount", err)
	}
	if !t.Type.Valid() {
		return Invalid("type", ErrInvalidType)
	}
	if t.Date.IsZero() {
		return Invalid("date", ErrInvalidDate)
	}
	if utf8.RuneCountInString(t.Description) > MaxDescription {
		return Invalid("description", fmt.Errorf("description too long (max %d characters)", MaxDescription))
	}
	return nil
}

// CheckCategory reports whether the transaction may be booked under c.
func (t Transaction) CheckCategory(c Category) error {
	if c.UserID != t.UserID {
		return ErrNotFound
	}
	if c.Type != t.Type {
		return Invalid("type", ErrTypeMismatch)
	}
	return nil
}

// CategoryLabel returns the joined category name or a placeholder for
// transactions whose category no longer exists.
func (v TransactionView) CategoryLabel() string {
	if v.CategoryName == nil {
		return "Uncategorized"
	}
	return *v.CategoryName
}
