// Package dashboard builds the overview shown on the protected home page:
// three stat cards from the summary and the most recent transactions.
package dashboard

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"kern/internal/api"
	"kern/internal/format"
)

// RecentLimit bounds the recent-transactions table.
const RecentLimit = 5

// ErrDiscarded is returned when the caller went away before the fetches
// completed; the results are dropped instead of rendered.
var ErrDiscarded = errors.New("dashboard load discarded")

// Source is the part of the API surface the overview reads.
type Source interface {
	TransactionSummary(ctx context.Context, p api.SummaryParams) (*api.Response[api.Summary], error)
	ListTransactions(ctx context.Context, p api.ListTransactionsParams) (*api.Response[[]api.Transaction], error)
}

// Variant selects the visual category of a figure.
type Variant string

const (
	VariantDefault Variant = "default"
	VariantSuccess Variant = "success"
	VariantDanger  Variant = "danger"
)

// StatCard is one headline figure.
type StatCard struct {
	Title   string
	Value   string
	Variant Variant
}

// Row is one rendered transaction.
type Row struct {
	Date        string
	Description string
	Merchant    string
	Amount      string
	Variant     Variant
	Status      api.TransactionStatus
}

// View is the fully derived overview. It is built only from a complete
// pair of responses.
type View struct {
	Stats       []StatCard
	Rows        []Row
	ShowViewAll bool
}

// Empty reports whether there are no transactions to list.
func (v View) Empty() bool { return len(v.Rows) == 0 }

// Loader fetches and derives the overview.
type Loader struct {
	source Source
}

// NewLoader creates a loader reading from source.
func NewLoader(source Source) *Loader {
	return &Loader{source: source}
}

// Load fetches the summary and the recent transactions concurrently and
// waits for both. Either failure fails the load.
func (l *Loader) Load(ctx context.Context) (View, error) {
	var (
		summary api.Summary
		recent  []api.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := l.source.TransactionSummary(gctx, api.SummaryParams{})
		if err != nil {
			return fmt.Errorf("load summary: %w", err)
		}
		summary = resp.Data
		return nil
	})
	g.Go(func() error {
		resp, err := l.source.ListTransactions(gctx, api.ListTransactionsParams{Limit: RecentLimit})
		if err != nil {
			return fmt.Errorf("load recent transactions: %w", err)
		}
		recent = resp.Data
		return nil
	})
	err := g.Wait()

	if ctx.Err() != nil {
		return View{}, ErrDiscarded
	}
	if err != nil {
		return View{}, err
	}
	return Build(summary, recent), nil
}

// Build derives the view. Figures are taken from the summary as-is;
// rows keep server order.
func Build(summary api.Summary, recent []api.Transaction) View {
	netVariant := VariantSuccess
	if summary.NetAmount.IsNegative() {
		netVariant = VariantDanger
	}

	v := View{
		Stats: []StatCard{
			{Title: "Total Income", Value: format.Currency(summary.TotalIncome), Variant: VariantSuccess},
			{Title: "Total Expenses", Value: format.Currency(summary.TotalExpenses), Variant: VariantDanger},
			{Title: "Net Amount", Value: format.Currency(summary.NetAmount), Variant: netVariant},
		},
		Rows: make([]Row, 0, len(recent)),
	}

	for _, tx := range recent {
		v.Rows = append(v.Rows, RowOf(tx))
	}
	v.ShowViewAll = len(v.Rows) > 0
	return v
}

// RowOf renders one transaction.
func RowOf(tx api.Transaction) Row {
	variant := VariantSuccess
	if tx.Amount.IsNegative() {
		variant = VariantDanger
	}
	return Row{
		Date:        format.Date(tx.Date.Time),
		Description: format.OrPlaceholder(tx.Description),
		Merchant:    format.OrPlaceholder(tx.Merchant),
		Amount:      format.SignedCurrency(tx.Amount),
		Variant:     variant,
		Status:      tx.Status,
	}
}
