// Package api is the typed client for the finance backend. Every call
// goes through Transport, which attaches the caller's bearer token.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
)

// Doer sends a Request. *Transport implements it.
type Doer interface {
	Do(ctx context.Context, req Request) (*http.Response, error)
}

// Response carries a decoded body and the HTTP status it came with.
type Response[T any] struct {
	Data       T
	StatusCode int
}

// Client exposes one method per backend operation.
type Client struct {
	transport Doer
}

// NewClient creates a client on top of transport.
func NewClient(transport Doer) *Client {
	return &Client{transport: transport}
}

func call[T any](ctx context.Context, d Doer, req Request) (*Response[T], error) {
	resp, err := d.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(req.Operation, resp)
	}

	out := &Response[T]{StatusCode: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(&out.Data); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%s: decode response: %w", req.Operation, err)
	}
	return out, nil
}

// Verify checks the caller's token with the backend.
func (c *Client) Verify(ctx context.Context) (*Response[AuthStatus], error) {
	return call[AuthStatus](ctx, c.transport, VerifyRequest())
}

// Me returns the caller's profile.
func (c *Client) Me(ctx context.Context) (*Response[Me], error) {
	return call[Me](ctx, c.transport, MeRequest())
}

// ListTransactions returns transactions in server order.
func (c *Client) ListTransactions(ctx context.Context, p ListTransactionsParams) (*Response[[]Transaction], error) {
	return call[[]Transaction](ctx, c.transport, ListTransactionsRequest(p))
}

// GetTransaction fetches one transaction by id.
func (c *Client) GetTransaction(ctx context.Context, id uuid.UUID) (*Response[Transaction], error) {
	return call[Transaction](ctx, c.transport, GetTransactionRequest(id))
}

// CreateTransaction records a new transaction.
func (c *Client) CreateTransaction(ctx context.Context, t TransactionCreate) (*Response[Transaction], error) {
	return call[Transaction](ctx, c.transport, CreateTransactionRequest(t))
}

// UpdateTransaction changes the fields set in t.
func (c *Client) UpdateTransaction(ctx context.Context, id uuid.UUID, t TransactionUpdate) (*Response[Transaction], error) {
	return call[Transaction](ctx, c.transport, UpdateTransactionRequest(id, t))
}

// DeleteTransaction removes a transaction.
func (c *Client) DeleteTransaction(ctx context.Context, id uuid.UUID) (*Response[Message], error) {
	return call[Message](ctx, c.transport, DeleteTransactionRequest(id))
}

// TransactionSummary returns income, expense and net totals.
func (c *Client) TransactionSummary(ctx context.Context, p SummaryParams) (*Response[Summary], error) {
	return call[Summary](ctx, c.transport, TransactionSummaryRequest(p))
}

// ListDocuments returns uploaded documents in server order.
func (c *Client) ListDocuments(ctx context.Context, p ListDocumentsParams) (*Response[[]Document], error) {
	return call[[]Document](ctx, c.transport, ListDocumentsRequest(p))
}

// GetDocument fetches one document by id.
func (c *Client) GetDocument(ctx context.Context, id uuid.UUID) (*Response[Document], error) {
	return call[Document](ctx, c.transport, GetDocumentRequest(id))
}

// UploadDocument sends r as the multipart field "file".
func (c *Client) UploadDocument(ctx context.Context, filename, contentType string, r io.Reader) (*Response[Document], error) {
	return call[Document](ctx, c.transport, UploadDocumentRequest(filename, contentType, r))
}

// ProcessDocument queues a document for extraction.
func (c *Client) ProcessDocument(ctx context.Context, id uuid.UUID) (*Response[ProcessResult], error) {
	return call[ProcessResult](ctx, c.transport, ProcessDocumentRequest(id))
}

// DeleteDocument removes a document.
func (c *Client) DeleteDocument(ctx context.Context, id uuid.UUID) (*Response[Message], error) {
	return call[Message](ctx, c.transport, DeleteDocumentRequest(id))
}

// IncomeStatement reports revenue and expenses for start..end.
func (c *Client) IncomeStatement(ctx context.Context, start, end Date) (*Response[IncomeStatement], error) {
	return call[IncomeStatement](ctx, c.transport, IncomeStatementRequest(Period{StartDate: start, EndDate: end}))
}

// BalanceSheet reports assets and liabilities as of asOf.
func (c *Client) BalanceSheet(ctx context.Context, asOf Date) (*Response[BalanceSheet], error) {
	return call[BalanceSheet](ctx, c.transport, BalanceSheetRequest(asOf))
}

// CashFlow reports inflows and outflows for start..end.
func (c *Client) CashFlow(ctx context.Context, start, end Date) (*Response[CashFlow], error) {
	return call[CashFlow](ctx, c.transport, CashFlowRequest(Period{StartDate: start, EndDate: end}))
}
