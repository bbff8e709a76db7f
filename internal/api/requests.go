package api

import (
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
)

// Operation names.
const (
	OpVerify            = "auth.verify"
	OpMe                = "auth.me"
	OpListTransactions  = "transactions.list"
	OpGetTransaction    = "transactions.get"
	OpCreateTransaction = "transactions.create"
	OpUpdateTransaction = "transactions.update"
	OpDeleteTransaction = "transactions.delete"
	OpTransactionStats  = "transactions.summary"
	OpListDocuments     = "documents.list"
	OpGetDocument       = "documents.get"
	OpUploadDocument    = "documents.upload"
	OpProcessDocument   = "documents.process"
	OpDeleteDocument    = "documents.delete"
	OpIncomeStatement   = "reports.income_statement"
	OpBalanceSheet      = "reports.balance_sheet"
	OpCashFlow          = "reports.cash_flow"
)

// ListTransactionsParams filters ListTransactions. Zero values are omitted.
type ListTransactionsParams struct {
	Skip   int
	Limit  int
	Status TransactionStatus
}

// ListDocumentsParams pages ListDocuments. Zero values are omitted.
type ListDocumentsParams struct {
	Skip  int
	Limit int
}

// SummaryParams bounds TransactionSummary. Zero dates are omitted.
type SummaryParams struct {
	StartDate Date
	EndDate   Date
}

func paging(q url.Values, skip, limit int) url.Values {
	if skip > 0 {
		q.Set("skip", strconv.Itoa(skip))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

func setDate(q url.Values, key string, d Date) {
	if !d.IsZero() {
		q.Set(key, d.String())
	}
}

func get(op, path string, q url.Values) Request {
	return Request{Operation: op, Method: http.MethodGet, Path: path, Query: q}
}

// VerifyRequest builds GET /api/auth/verify.
func VerifyRequest() Request { return get(OpVerify, "/api/auth/verify", nil) }

// MeRequest builds GET /api/auth/me.
func MeRequest() Request { return get(OpMe, "/api/auth/me", nil) }

// ListTransactionsRequest builds GET /api/transactions; zero paging fields are omitted.
func ListTransactionsRequest(p ListTransactionsParams) Request {
	q := paging(url.Values{}, p.Skip, p.Limit)
	if p.Status != "" {
		q.Set("status", string(p.Status))
	}
	return get(OpListTransactions, "/api/transactions", q)
}

// GetTransactionRequest builds GET /api/transactions/{id}.
func GetTransactionRequest(id uuid.UUID) Request {
	return get(OpGetTransaction, "/api/transactions/"+url.PathEscape(id.String()), nil)
}

// CreateTransactionRequest builds POST /api/transactions with a JSON body.
func CreateTransactionRequest(t TransactionCreate) Request {
	return Request{Operation: OpCreateTransaction, Method: http.MethodPost, Path: "/api/transactions", Body: JSONBody(t)}
}

// UpdateTransactionRequest builds PUT /api/transactions/{id}.
func UpdateTransactionRequest(id uuid.UUID, t TransactionUpdate) Request {
	return Request{
		Operation: OpUpdateTransaction,
		Method:    http.MethodPut,
		Path:      "/api/transactions/" + url.PathEscape(id.String()),
		Body:      JSONBody(t),
	}
}

// DeleteTransactionRequest builds DELETE /api/transactions/{id}.
func DeleteTransactionRequest(id uuid.UUID) Request {
	return Request{Operation: OpDeleteTransaction, Method: http.MethodDelete, Path: "/api/transactions/" + url.PathEscape(id.String())}
}

// TransactionSummaryRequest builds GET /api/transactions/stats/summary.
func TransactionSummaryRequest(p SummaryParams) Request {
	q := url.Values{}
	setDate(q, "start_date", p.StartDate)
	setDate(q, "end_date", p.EndDate)
	return get(OpTransactionStats, "/api/transactions/stats/summary", q)
}

// ListDocumentsRequest builds GET /api/documents.
func ListDocumentsRequest(p ListDocumentsParams) Request {
	return get(OpListDocuments, "/api/documents", paging(url.Values{}, p.Skip, p.Limit))
}

// GetDocumentRequest builds GET /api/documents/{id}.
func GetDocumentRequest(id uuid.UUID) Request {
	return get(OpGetDocument, "/api/documents/"+url.PathEscape(id.String()), nil)
}

// UploadDocumentRequest builds the multipart POST /api/documents/upload.
func UploadDocumentRequest(filename, contentType string, r io.Reader) Request {
	return Request{
		Operation: OpUploadDocument,
		Method:    http.MethodPost,
		Path:      "/api/documents/upload",
		Body:      MultipartFile("file", filename, contentType, r),
	}
}

// ProcessDocumentRequest builds POST /api/documents/{id}/process.
func ProcessDocumentRequest(id uuid.UUID) Request {
	return Request{Operation: OpProcessDocument, Method: http.MethodPost, Path: "/api/documents/" + url.PathEscape(id.String()) + "/process"}
}

// DeleteDocumentRequest builds DELETE /api/documents/{id}.
func DeleteDocumentRequest(id uuid.UUID) Request {
	return Request{Operation: OpDeleteDocument, Method: http.MethodDelete, Path: "/api/documents/" + url.PathEscape(id.String())}
}

// IncomeStatementRequest builds GET /api/reports/income-statement.
func IncomeStatementRequest(p Period) Request {
	q := url.Values{}
	setDate(q, "start_date", p.StartDate)
	setDate(q, "end_date", p.EndDate)
	return get(OpIncomeStatement, "/api/reports/income-statement", q)
}

// BalanceSheetRequest builds GET /api/reports/balance-sheet.
func BalanceSheetRequest(asOf Date) Request {
	q := url.Values{}
	setDate(q, "as_of_date", asOf)
	return get(OpBalanceSheet, "/api/reports/balance-sheet", q)
}

// CashFlowRequest builds GET /api/reports/cash-flow.
func CashFlowRequest(p Period) Request {
	q := url.Values{}
	setDate(q, "start_date", p.StartDate)
	setDate(q, "end_date", p.EndDate)
	return get(OpCashFlow, "/api/reports/cash-flow", q)
}
