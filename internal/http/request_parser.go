package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"bolsya/internal/core"
	"bolsya/internal/services"
)

const maxBodyBytes = 1 << 20

// badRequestError is a request the server could not parse at all, as
// opposed to one that parsed but failed validation.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

// decodeJSON reads exactly one JSON object into dst. Unknown fields are
// rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return badRequest("request body too large")
		}
		if errors.Is(err, io.EOF) {
			return badRequest("request body is empty")
		}
		return badRequest("malformed request body: %v", err)
	}
	if dec.More() {
		return badRequest("request body must hold a single JSON object")
	}
	return nil
}

// pathID reads a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return id, nil
}

// amountField accepts 12.34, "12.34" or "12,34".
type amountField json.RawMessage

func (a *amountField) UnmarshalJSON(data []byte) error {
	*a = append((*a)[:0], data...)
	return nil
}

func (a amountField) money() (core.Money, error) {
	raw := string(bytes.Trim(bytes.TrimSpace(a), `"`))
	if raw == "" || raw == "null" {
		return core.Money{}, core.Invalid("amount", core.ErrInvalidAmount)
	}
	cents, err := core.ParseDecimalToCents(raw)
	if err != nil {
		return core.Money{}, core.Invalid("amount", err)
	}
	return core.Money{Cents: cents}, nil
}

type transactionRequest struct {
	CategoryID  int64       `json:"category_id"`
	Amount      amountField `json:"amount"`
	Type        string      `json:"type"`
	Date        string      `json:"date"`
	Description string      `json:"description"`
}

// input converts the request body. requireType is false on updates,
// where the stored type wins.
func (req transactionRequest) input(requireType bool) (services.TransactionInput, error) {
	amount, err := req.Amount.money()
	if err != nil {
		return services.TransactionInput{}, err
	}
	in := services.TransactionInput{
		CategoryID:  req.CategoryID,
		Amount:      amount,
		Description: req.Description,
	}
	if requireType {
		if in.Type, err = core.ParseEntryType(req.Type); err != nil {
			return services.TransactionInput{}, err
		}
	}
	if strings.TrimSpace(req.Date) == "" {
		return services.TransactionInput{}, core.Invalid("date", core.ErrInvalidDate)
	}
	if in.Date, err = core.ParseDate(req.Date); err != nil {
		return services.TransactionInput{}, err
	}
	return in, nil
}

type categoryRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

func (req categoryRequest) input(requireType bool) (services.CategoryInput, error) {
	in := services.CategoryInput{Name: req.Name, Color: req.Color, Icon: req.Icon}
	if requireType {
		t, err := core.ParseEntryType(req.Type)
		if err != nil {
			return services.CategoryInput{}, err
		}
		in.Type = t
	}
	return in, nil
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type chatRequest struct {
	Message string `json:"message"`
}

// ParseTypeFilter reads the optional ?type= filter.
func ParseTypeFilter(query url.Values) (*core.EntryType, error) {
	raw := strings.TrimSpace(query.Get("type"))
	if raw == "" {
		return nil, nil
	}
	t, err := core.ParseEntryType(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseRange reads ?month=YYYY-MM or ?start=&end= (each YYYY-MM-DD or RFC
// 3339). A bare end date covers that whole day. Missing bounds default to
// the month containing now.
func ParseRange(query url.Values, now time.Time) (time.Time, time.Time, error) {
	if month := strings.TrimSpace(query.Get("month")); month != "" {
		t, err := time.Parse("2006-01", month)
		if err != nil {
			return time.Time{}, time.Time{}, core.Invalid("month", core.ErrInvalidDate)
		}
		start, end := core.MonthRange(t)
		return start, end, nil
	}

	start, end := core.MonthRange(now.UTC())
	if raw := strings.TrimSpace(query.Get("start")); raw != "" {
		t, err := core.ParseDate(raw)
		if err != nil {
			return time.Time{}, time.Time{}, core.Invalid("start", core.ErrInvalidDate)
		}
		start = t
	}
	if raw := strings.TrimSpace(query.Get("end")); raw != "" {
		t, err := core.ParseDate(raw)
		if err != nil {
			return time.Time{}, time.Time{}, core.Invalid("end", core.ErrInvalidDate)
		}
		if isBareDate(raw) {
			t = core.EndOfDay(t)
		}
		end = t
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, core.Invalid("range", core.ErrInvalidDate)
	}
	return start, end, nil
}

// ParseOptionalRange is ParseRange for listings, where no parameters at
// all means the whole ledger.
func ParseOptionalRange(query url.Values, now time.Time) (time.Time, time.Time, error) {
	if query.Get("month") == "" && query.Get("start") == "" && query.Get("end") == "" {
		return time.Time{}, time.Time{}, nil
	}
	return ParseRange(query, now)
}

// ParseLimit reads ?limit=, clamped to [1, max]; absent means def.
func ParseLimit(query url.Values, def, max int) (int, error) {
	raw := strings.TrimSpace(query.Get("limit"))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, core.Invalid("limit", errors.New("must be a positive integer"))
	}
	if n > max {
		n = max
	}
	return n, nil
}

func isBareDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
