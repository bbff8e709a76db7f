package http

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"kern/internal/api"
	"kern/internal/format"
)

type reportLine struct {
	Name   string
	Amount string
}

type reportsData struct {
	Start     string
	End       string
	Income    api.IncomeStatement
	Revenue   []reportLine
	Expenses  []reportLine
	Balance   api.BalanceSheet
	CashFlow  api.CashFlow
	NetIncome string
	Positive  bool
	Error     string
}

func linesOf(cats []api.CategoryTotal) []reportLine {
	out := make([]reportLine, 0, len(cats))
	for _, c := range cats {
		out = append(out, reportLine{Name: c.Name, Amount: format.Currency(c.Total)})
	}
	return out
}

// handleReports fetches the three reports for the range together. The
// page shows all of them or one error, never a partial set.
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	rng, err := ParseDateRange(r.URL.Query(), s.now())
	if err != nil {
		s.renderWith(w, r, NewHTMXResponse().Status(http.StatusBadRequest), "reports_page",
			s.page(r, "Reports", reportsData{Error: err.Error()}))
		return
	}

	data := reportsData{Start: rng.Start.String(), End: rng.End.String()}

	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		resp, err := s.api.IncomeStatement(gctx, rng.Start, rng.End)
		if err != nil {
			return err
		}
		data.Income = resp.Data
		return nil
	})
	g.Go(func() error {
		resp, err := s.api.BalanceSheet(gctx, rng.End)
		if err != nil {
			return err
		}
		data.Balance = resp.Data
		return nil
	})
	g.Go(func() error {
		resp, err := s.api.CashFlow(gctx, rng.Start, rng.End)
		if err != nil {
			return err
		}
		data.CashFlow = resp.Data
		return nil
	})
	if err := g.Wait(); err != nil {
		s.apiFailed(w, r, "load reports", err)
		return
	}

	data.Revenue = linesOf(data.Income.Revenue.Categories)
	data.Expenses = linesOf(data.Income.Expenses.Categories)
	data.NetIncome = format.Currency(data.Income.NetIncome)
	data.Positive = !data.Income.NetIncome.IsNegative()
	s.render(w, r, "reports_page", s.page(r, "Reports", data))
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "categories_page", s.page(r, "Categories", nil))
}

type settingsData struct {
	Email    string
	UserID   string
	Role     string
	Verified bool
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var (
		me     api.Me
		status api.AuthStatus
	)

	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		resp, err := s.api.Me(gctx)
		if err != nil {
			return err
		}
		me = resp.Data
		return nil
	})
	g.Go(func() error {
		resp, err := s.api.Verify(gctx)
		if err != nil {
			return err
		}
		status = resp.Data
		return nil
	})

	p := s.page(r, "Settings", nil)
	data := settingsData{Email: p.Email}
	if err := g.Wait(); err != nil {
		s.apiFailed(w, r, "load profile", err)
		return
	}

	data.UserID = me.UserID
	data.Role = format.OrPlaceholder(me.Role)
	if me.Email != nil && *me.Email != "" {
		data.Email = *me.Email
	}
	data.Verified = status.Authenticated
	p.Data = data
	s.render(w, r, "settings_page", p)
}
