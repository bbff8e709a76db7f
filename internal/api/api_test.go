package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kern/internal/auth"
	"kern/internal/log"
)

type stubSessions struct {
	session *auth.Session
	err     error
	calls   int
}

func (s *stubSessions) CurrentSession(context.Context) (*auth.Session, error) {
	s.calls++
	return s.session, s.err
}

func newTestClient(t *testing.T, h http.HandlerFunc, sessions SessionSource) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(NewTransport(srv.URL+"/", sessions, srv.Client(), log.Discard()))
}

func TestTransportAttachesBearerPerCall(t *testing.T) {
	var got []string
	sessions := &stubSessions{session: &auth.Session{AccessToken: "tok-1"}}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"authenticated":true,"user_id":"u1"}`))
	}, sessions)

	_, err := c.Verify(context.Background())
	require.NoError(t, err)

	sessions.session = &auth.Session{AccessToken: "tok-2"}
	_, err = c.Verify(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer tok-1", "Bearer tok-2"}, got)
	assert.Equal(t, 2, sessions.calls)
}

func TestTransportWithoutSessionSendsNoHeader(t *testing.T) {
	for name, sessions := range map[string]*stubSessions{
		"absent":        {},
		"lookup failed": {err: errors.New("store down")},
		"empty token":   {session: &auth.Session{}},
	} {
		t.Run(name, func(t *testing.T) {
			var header string
			var seen bool
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				header, seen = r.Header.Get("Authorization"), true
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"detail":"Not authenticated"}`))
			}, sessions)

			_, err := c.Me(context.Background())
			assert.True(t, seen, "request still sent")
			assert.Empty(t, header)

			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
			assert.Equal(t, "Not authenticated", se.Detail)
			assert.Equal(t, OpMe, se.Operation)
			assert.True(t, IsStatus(err, http.StatusUnauthorized))
		})
	}
}

func TestListTransactionsQueryAndDecode(t *testing.T) {
	id := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/transactions", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "flagged", r.URL.Query().Get("status"))
		assert.False(t, r.URL.Query().Has("skip"))
		_, _ = w.Write([]byte(`[{"id":"` + id.String() + `","date":"2024-03-05","amount":-250.5,"description":null,"merchant":"Acme","category_id":null,"confidence_score":0.9,"status":"flagged","notes":null,"payment_method":null}]`))
	}, &stubSessions{})

	resp, err := c.ListTransactions(context.Background(), ListTransactionsParams{Limit: 5, Status: StatusFlagged})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	tx := resp.Data[0]
	assert.Equal(t, id, tx.ID)
	assert.Equal(t, "2024-03-05", tx.Date.String())
	assert.True(t, decimal.RequireFromString("-250.5").Equal(tx.Amount))
	assert.Nil(t, tx.Description)
	require.NotNil(t, tx.Merchant)
	assert.Equal(t, "Acme", *tx.Merchant)
	assert.Equal(t, StatusFlagged, tx.Status)
}

func TestTransactionSummaryDates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/transactions/stats/summary", r.URL.Path)
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("start_date"))
		assert.False(t, r.URL.Query().Has("end_date"))
		_, _ = w.Write([]byte(`{"total_transactions":3,"total_income":5000,"total_expenses":1250.75,"net_amount":3749.25,"pending_review":1,"date_range":{"start":"2024-01-01","end":null}}`))
	}, &stubSessions{})

	resp, err := c.TransactionSummary(context.Background(), SummaryParams{StartDate: NewDate(2024, 1, 1)})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Data.TotalTransactions)
	assert.True(t, decimal.NewFromInt(5000).Equal(resp.Data.TotalIncome))
	require.NotNil(t, resp.Data.DateRange.Start)
	assert.Equal(t, "2024-01-01", resp.Data.DateRange.Start.String())
	assert.Nil(t, resp.Data.DateRange.End)
}

func TestCreateTransactionSendsNumericAmount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 12.5, body["amount"])
		assert.Equal(t, "2024-03-05", body["date"])
		assert.NotContains(t, body, "merchant")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"` + uuid.NewString() + `","date":"2024-03-05","amount":12.5,"status":"pending"}`))
	}, &stubSessions{})

	resp, err := c.CreateTransaction(context.Background(), TransactionCreate{
		Date:   NewDate(2024, 3, 5),
		Amount: decimal.RequireFromString("12.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestUpdateTransactionOmitsUnsetFields(t *testing.T) {
	status := StatusReviewed
	raw, err := json.Marshal(TransactionUpdate{Status: &status})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"reviewed"}`, string(raw))

	amount := decimal.RequireFromString("-3")
	raw, err = json.Marshal(TransactionUpdate{Amount: &amount})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":-3}`, string(raw))
}

func TestUploadDocumentMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/documents/upload", r.URL.Path)
		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/form-data", mediaType)

		part, err := multipart.NewReader(r.Body, params["boundary"]).NextPart()
		require.NoError(t, err)
		assert.Equal(t, "file", part.FormName())
		assert.Equal(t, "bank.csv", part.FileName())
		assert.Equal(t, "text/csv", part.Header.Get("Content-Type"))
		content, _ := io.ReadAll(part)
		assert.Equal(t, "a,b\n", string(content))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"` + uuid.NewString() + `","filename":"bank.csv","file_type":"text/csv","file_size":4,"status":"pending","uploaded_at":"2024-03-05T10:11:12.123456","processed_at":null,"error_message":null}`))
	}, &stubSessions{})

	resp, err := c.UploadDocument(context.Background(), "bank.csv", "text/csv", strings.NewReader("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, DocumentPending, resp.Data.Status)
	assert.Equal(t, time.Date(2024, 3, 5, 10, 11, 12, 123456000, time.UTC), resp.Data.UploadedAt.Time)
	assert.Nil(t, resp.Data.ProcessedAt)
}

func TestStatusErrorDetailShapes(t *testing.T) {
	assert.Equal(t, "Transaction not found", detailOf([]byte(`{"detail":"Transaction not found"}`)))
	assert.Equal(t, "field required", detailOf([]byte(`{"detail":[{"loc":["query","start_date"],"msg":"field required"}]}`)))
	assert.Equal(t, "", detailOf([]byte(`<html>bad gateway</html>`)))
	assert.Equal(t, "", detailOf(nil))
}

func TestTransportErrorIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(NewTransport(srv.URL, &stubSessions{}, nil, log.Discard()))

	_, err := c.ListDocuments(context.Background(), ListDocumentsParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), OpListDocuments)
	assert.False(t, IsStatus(err, http.StatusNotFound))
}

func TestRequestBuilders(t *testing.T) {
	id := uuid.MustParse("6f1c2a8e-2b1d-4c7a-9a51-0d7f3c2e9b10")

	tests := []struct {
		name   string
		req    Request
		method string
		path   string
		query  string
	}{
		{"verify", VerifyRequest(), http.MethodGet, "/api/auth/verify", ""},
		{"me", MeRequest(), http.MethodGet, "/api/auth/me", ""},
		{"list transactions", ListTransactionsRequest(ListTransactionsParams{Skip: 20, Limit: 10}), http.MethodGet, "/api/transactions", "limit=10&skip=20"},
		{"get transaction", GetTransactionRequest(id), http.MethodGet, "/api/transactions/" + id.String(), ""},
		{"delete transaction", DeleteTransactionRequest(id), http.MethodDelete, "/api/transactions/" + id.String(), ""},
		{"summary", TransactionSummaryRequest(SummaryParams{}), http.MethodGet, "/api/transactions/stats/summary", ""},
		{"list documents", ListDocumentsRequest(ListDocumentsParams{Limit: 50}), http.MethodGet, "/api/documents", "limit=50"},
		{"get document", GetDocumentRequest(id), http.MethodGet, "/api/documents/" + id.String(), ""},
		{"process document", ProcessDocumentRequest(id), http.MethodPost, "/api/documents/" + id.String() + "/process", ""},
		{"delete document", DeleteDocumentRequest(id), http.MethodDelete, "/api/documents/" + id.String(), ""},
		{"income statement", IncomeStatementRequest(Period{NewDate(2024, 1, 1), NewDate(2024, 3, 31)}), http.MethodGet, "/api/reports/income-statement", "end_date=2024-03-31&start_date=2024-01-01"},
		{"balance sheet", BalanceSheetRequest(NewDate(2024, 3, 31)), http.MethodGet, "/api/reports/balance-sheet", "as_of_date=2024-03-31"},
		{"cash flow", CashFlowRequest(Period{NewDate(2024, 1, 1), NewDate(2024, 3, 31)}), http.MethodGet, "/api/reports/cash-flow", "end_date=2024-03-31&start_date=2024-01-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.method, tt.req.Method)
			assert.Equal(t, tt.path, tt.req.Path)
			assert.Equal(t, tt.query, tt.req.Query.Encode())
			assert.NotEmpty(t, tt.req.Operation)
		})
	}
}

func TestDateJSON(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-02-29"`), &d))
	assert.Equal(t, "2024-02-29", d.String())

	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.True(t, d.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`"29/02/2024"`), &d))

	raw, err := json.Marshal(NewDate(2024, 12, 1))
	require.NoError(t, err)
	assert.Equal(t, `"2024-12-01"`, string(raw))
}

func TestGetByID(t *testing.T) {
	txID := uuid.MustParse("6f1c1b7e-52a4-4c39-9d53-0f1f3f2d2b11")
	docID := uuid.MustParse("0b4c3f0e-2f5f-4b8e-9d0a-6c1d2e3f4a5b")

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/transactions/" + txID.String():
			_, _ = w.Write([]byte(`{"id":"` + txID.String() + `","date":"2024-03-09","amount":-250,"status":"pending"}`))
		case "/api/documents/" + docID.String():
			_, _ = w.Write([]byte(`{"id":"` + docID.String() + `","filename":"march.csv","file_size":2048,"status":"completed","uploaded_at":"2024-03-15T10:00:00"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Not found"}`))
		}
	}, &stubSessions{})

	tx, err := c.GetTransaction(context.Background(), txID)
	require.NoError(t, err)
	assert.Equal(t, txID, tx.Data.ID)
	assert.True(t, decimal.NewFromInt(-250).Equal(tx.Data.Amount))

	doc, err := c.GetDocument(context.Background(), docID)
	require.NoError(t, err)
	assert.Equal(t, "march.csv", doc.Data.Filename)
	require.NotNil(t, doc.Data.FileSize)
	assert.Equal(t, int64(2048), *doc.Data.FileSize)

	_, err = c.GetDocument(context.Background(), uuid.New())
	assert.True(t, IsStatus(err, http.StatusNotFound))
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Not found", se.Detail)
}
