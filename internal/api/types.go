package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar date exchanged as "YYYY-MM-DD".
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar date in UTC.
func NewDate(y int, m time.Month, d int) Date {
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t}, nil
}

// String renders the wire form, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Timestamp accepts both zoned RFC 3339 and the naive ISO 8601 datetimes
// the backend emits; naive values are taken as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*ts = Timestamp{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*ts = Timestamp{t}
			return nil
		}
	}
	return fmt.Errorf("parse timestamp %q", s)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.Format(time.RFC3339Nano))
}

// TransactionStatus is the review state of a transaction.
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "pending"
	StatusReviewed TransactionStatus = "reviewed"
	StatusFlagged  TransactionStatus = "flagged"
)

// TransactionStatuses lists the accepted filter values in display order.
var TransactionStatuses = []TransactionStatus{StatusPending, StatusReviewed, StatusFlagged}

// Valid reports whether s is a known status.
func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusReviewed, StatusFlagged:
		return true
	}
	return false
}

// Transaction is a single ledger entry. Positive amounts are income.
type Transaction struct {
	ID              uuid.UUID         `json:"id"`
	Date            Date              `json:"date"`
	Amount          decimal.Decimal   `json:"amount"`
	Description     *string           `json:"description"`
	Merchant        *string           `json:"merchant"`
	CategoryID      *uuid.UUID        `json:"category_id"`
	ConfidenceScore *float64          `json:"confidence_score"`
	Status          TransactionStatus `json:"status"`
	Notes           *string           `json:"notes"`
	PaymentMethod   *string           `json:"payment_method"`
}

// TransactionCreate is the body of CreateTransaction.
type TransactionCreate struct {
	Date          Date            `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Description   *string         `json:"description,omitempty"`
	Merchant      *string         `json:"merchant,omitempty"`
	CategoryID    *uuid.UUID      `json:"category_id,omitempty"`
	PaymentMethod *string         `json:"payment_method,omitempty"`
	Notes         *string         `json:"notes,omitempty"`
}

// MarshalJSON sends the amount as a JSON number.
func (t TransactionCreate) MarshalJSON() ([]byte, error) {
	type alias TransactionCreate
	return json.Marshal(struct {
		alias
		Amount json.Number `json:"amount"`
	}{alias(t), json.Number(t.Amount.String())})
}

// TransactionUpdate is the body of UpdateTransaction; nil fields are left unchanged.
type TransactionUpdate struct {
	Date        *Date              `json:"date,omitempty"`
	Amount      *decimal.Decimal   `json:"-"`
	Description *string            `json:"description,omitempty"`
	Merchant    *string            `json:"merchant,omitempty"`
	CategoryID  *uuid.UUID         `json:"category_id,omitempty"`
	Status      *TransactionStatus `json:"status,omitempty"`
	Notes       *string            `json:"notes,omitempty"`
	IsTransfer  *bool              `json:"is_transfer,omitempty"`
	IsOwnerDraw *bool              `json:"is_owner_draw,omitempty"`
}

// MarshalJSON sends the amount, when set, as a JSON number.
func (t TransactionUpdate) MarshalJSON() ([]byte, error) {
	type alias TransactionUpdate
	var amount *json.Number
	if t.Amount != nil {
		n := json.Number(t.Amount.String())
		amount = &n
	}
	return json.Marshal(struct {
		alias
		Amount *json.Number `json:"amount,omitempty"`
	}{alias(t), amount})
}

// DateRange is the optional window a summary was computed over.
type DateRange struct {
	Start *Date `json:"start"`
	End   *Date `json:"end"`
}

// Summary aggregates transactions over a date range.
type Summary struct {
	TotalTransactions int             `json:"total_transactions"`
	TotalIncome       decimal.Decimal `json:"total_income"`
	TotalExpenses     decimal.Decimal `json:"total_expenses"`
	NetAmount         decimal.Decimal `json:"net_amount"`
	PendingReview     int             `json:"pending_review"`
	DateRange         DateRange       `json:"date_range"`
}

// DocumentStatus is the processing state of an uploaded document.
type DocumentStatus string

const (
	DocumentPending    DocumentStatus = "pending"
	DocumentProcessing DocumentStatus = "processing"
	DocumentCompleted  DocumentStatus = "completed"
	DocumentFailed     DocumentStatus = "failed"
)

// Document is an uploaded financial document.
type Document struct {
	ID           uuid.UUID      `json:"id"`
	Filename     string         `json:"filename"`
	FileType     *string        `json:"file_type"`
	FileSize     *int64         `json:"file_size"`
	Status       DocumentStatus `json:"status"`
	UploadedAt   Timestamp      `json:"uploaded_at"`
	ProcessedAt  *Timestamp     `json:"processed_at"`
	ErrorMessage *string        `json:"error_message"`
}

// UploadContentTypes are the document types the backend accepts.
var UploadContentTypes = []string{
	"text/csv",
	"application/pdf",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ProcessResult acknowledges ProcessDocument.
type ProcessResult struct {
	Message    string         `json:"message"`
	DocumentID uuid.UUID      `json:"document_id"`
	Status     DocumentStatus `json:"status"`
}

// Message is the acknowledgement body of delete operations.
type Message struct {
	Message string `json:"message"`
}

// AuthStatus is returned by Verify.
type AuthStatus struct {
	Authenticated bool    `json:"authenticated"`
	UserID        string  `json:"user_id"`
	Email         *string `json:"email"`
	Role          *string `json:"role"`
}

// Me is returned by Me.
type Me struct {
	UserID   string         `json:"user_id"`
	Email    *string        `json:"email"`
	Role     *string        `json:"role"`
	Metadata map[string]any `json:"metadata"`
}

// Period is a closed date interval.
type Period struct {
	StartDate Date `json:"start_date"`
	EndDate   Date `json:"end_date"`
}

// CategoryTotal is one line of a report section.
type CategoryTotal struct {
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
}

// ReportSection is a total with an optional category breakdown.
type ReportSection struct {
	Total      decimal.Decimal `json:"total"`
	Categories []CategoryTotal `json:"categories"`
}

// IncomeStatement is the profit and loss report for a period.
type IncomeStatement struct {
	ReportType       string          `json:"report_type"`
	Period           Period          `json:"period"`
	Revenue          ReportSection   `json:"revenue"`
	Expenses         ReportSection   `json:"expenses"`
	NetIncome        decimal.Decimal `json:"net_income"`
	TransactionCount int             `json:"transaction_count"`
}

// BalanceSheet reports assets, liabilities and equity as of a date.
type BalanceSheet struct {
	ReportType  string         `json:"report_type"`
	AsOfDate    Date           `json:"as_of_date"`
	Assets      map[string]any `json:"assets"`
	Liabilities map[string]any `json:"liabilities"`
	Equity      map[string]any `json:"equity"`
	Message     string         `json:"message,omitempty"`
}

// CashFlow reports cash movements for a period.
type CashFlow struct {
	ReportType          string         `json:"report_type"`
	Period              Period         `json:"period"`
	OperatingActivities map[string]any `json:"operating_activities"`
	InvestingActivities map[string]any `json:"investing_activities"`
	FinancingActivities map[string]any `json:"financing_activities"`
	Message             string         `json:"message,omitempty"`
}
