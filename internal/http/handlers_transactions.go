package http

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"kern/internal/api"
	"kern/internal/dashboard"
	"kern/internal/htmx"
)

type transactionRow struct {
	ID uuid.UUID
	dashboard.Row
	Statuses []api.TransactionStatus
}

func rowOf(tx api.Transaction) transactionRow {
	return transactionRow{ID: tx.ID, Row: dashboard.RowOf(tx), Statuses: api.TransactionStatuses}
}

type transactionsData struct {
	Rows     []transactionRow
	Paging   Paging
	Next     Paging
	Prev     Paging
	HasNext  bool
	HasPrev  bool
	Statuses []api.TransactionStatus
	Today    string
}

func rowsOf(txs []api.Transaction) []transactionRow {
	rows := make([]transactionRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, rowOf(tx))
	}
	return rows
}

// handleTransactions renders the transactions page, or only the table
// when htmx pages through it.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	paging := ParsePaging(r.URL.Query())

	resp, err := s.api.ListTransactions(r.Context(), api.ListTransactionsParams{
		Skip:   paging.Skip,
		Limit:  paging.Limit,
		Status: paging.Status,
	})
	if err != nil {
		s.apiFailed(w, r, "load transactions", err)
		return
	}

	data := transactionsData{
		Rows:     rowsOf(resp.Data),
		Paging:   paging,
		Next:     paging.Next(),
		Prev:     paging.Prev(),
		HasNext:  len(resp.Data) >= paging.Limit,
		HasPrev:  paging.Skip > 0,
		Statuses: api.TransactionStatuses,
		Today:    s.now().Format(api.DateLayout),
	}

	if htmx.IsRequest(r) {
		s.render(w, r, "transactions_table", data)
		return
	}
	s.render(w, r, "transactions_page", s.page(r, "Transactions", data))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid form submission").Write(w)
		return
	}

	form := transactionForm{
		Date:          FormValue(r, "date"),
		Amount:        strings.ReplaceAll(FormValue(r, "amount"), ",", ""),
		Description:   FormValue(r, "description"),
		Merchant:      FormValue(r, "merchant"),
		PaymentMethod: FormValue(r, "payment_method"),
		Notes:         FormValue(r, "notes"),
	}
	if errs := validateForm(form); errs != nil {
		BadRequestError(errs.First("date", "amount", "description", "merchant", "payment_method", "notes")).Write(w)
		return
	}

	date, err := api.ParseDate(form.Date)
	if err != nil {
		BadRequestError("Enter a date as YYYY-MM-DD").Write(w)
		return
	}
	amount, err := decimal.NewFromString(form.Amount)
	if err != nil {
		BadRequestError("Enter a valid amount").Write(w)
		return
	}

	create := api.TransactionCreate{
		Date:          date,
		Amount:        amount,
		Description:   optional(form.Description),
		Merchant:      optional(form.Merchant),
		PaymentMethod: optional(form.PaymentMethod),
		Notes:         optional(form.Notes),
	}

	if _, err := s.api.CreateTransaction(r.Context(), create); err != nil {
		s.apiFailed(w, r, "create transaction", err)
		return
	}

	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerTransactionsChanged().
		TriggerFormReset().
		TriggerSuccessNotification("Transaction added").
		Write(w)
}

func (s *Server) handleUpdateTransactionStatus(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r, "id")
	if err != nil {
		BadRequestError("Invalid transaction id").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid form submission").Write(w)
		return
	}

	form := statusForm{Status: FormValue(r, "status")}
	if errs := validateForm(form); errs != nil {
		BadRequestError(errs.First("status")).Write(w)
		return
	}
	status := api.TransactionStatus(form.Status)

	resp, err := s.api.UpdateTransaction(r.Context(), id, api.TransactionUpdate{Status: &status})
	if err != nil {
		s.apiFailed(w, r, "update transaction", err)
		return
	}

	s.renderWith(w, r, NewHTMXResponse().TriggerSuccessNotification("Status updated"), "transaction_row", rowOf(resp.Data))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r, "id")
	if err != nil {
		BadRequestError("Invalid transaction id").Write(w)
		return
	}

	if _, err := s.api.DeleteTransaction(r.Context(), id); err != nil {
		s.apiFailed(w, r, "delete transaction", err)
		return
	}

	// Empty 200 lets htmx swap the row away.
	NewHTMXResponse().TriggerSuccessNotification("Transaction deleted").Write(w)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
