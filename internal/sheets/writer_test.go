package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/Veraticus/expensesbot/internal/model"
)

type recordedCall struct {
	method string
	path   string
	body   string
}

type fakeSheetsAPI struct {
	calls      []recordedCall
	failWrites int
	mu         sync.Mutex
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{method: r.Method, path: r.URL.Path, body: string(body)})
	fail := r.Method == http.MethodPut && f.failWrites > 0
	if fail {
		f.failWrites--
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case fail:
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":503,"message":"try later"}}`))
	case r.Method == http.MethodPost && r.URL.Path == "/v4/spreadsheets":
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","spreadsheetUrl":"https://sheets.example/sheet-1"}`))
	default:
		_, _ = w.Write([]byte(`{}`))
	}
}

func (f *fakeSheetsAPI) writes() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedCall
	for _, c := range f.calls {
		if c.method == http.MethodPut {
			out = append(out, c)
		}
	}
	return out
}

func newTestWriter(t *testing.T, api *fakeSheetsAPI, cfg Config) *Writer {
	t.Helper()

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	w, err := newWriter(context.Background(), cfg, nil,
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return w
}

func testReport() Report {
	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	return Report{
		Period:   "2024-03-01 - 2024-03-31",
		Currency: "EUR",
		Total:    1530,
		Categories: []model.CategoryTotal{
			{Category: "Restaurants", Total: 1280, ItemCount: 1},
			{Category: "Groceries", Total: 250, ItemCount: 2},
		},
		Rows: []model.ExportRow{
			{PurchaseDate: date, StoreName: "Pizzeria", ItemName: "pizza", Quantity: 1, UnitPrice: 1280, TotalPrice: 1280, Category: "Restaurants"},
			{PurchaseDate: date, StoreName: "Lidl", ItemName: "milk", Quantity: 2, UnitPrice: 125, TotalPrice: 250, Category: "Groceries"},
		},
	}
}

func TestWriter_Write(t *testing.T) {
	api := &fakeSheetsAPI{}
	cfg := DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	w := newTestWriter(t, api, cfg)

	url, err := w.Write(context.Background(), testReport())
	require.NoError(t, err)
	assert.Equal(t, "https://sheets.example/sheet-1", url)

	var paths []string
	for _, c := range api.calls {
		paths = append(paths, c.method+" "+c.path)
	}
	assert.Equal(t, "POST /v4/spreadsheets", paths[0])
	assert.True(t, strings.HasSuffix(paths[1], ":clear"), paths[1])
	assert.True(t, strings.HasSuffix(paths[len(paths)-1], ":batchUpdate"), paths[len(paths)-1])

	writes := api.writes()
	require.Len(t, writes, 1)

	var payload struct {
		Values [][]any `json:"values"`
	}
	require.NoError(t, json.Unmarshal([]byte(writes[0].body), &payload))
	assert.Equal(t, []any{"Expense Report", "2024-03-01 - 2024-03-31"}, payload.Values[0])
	assert.Equal(t, []any{"Total Spent", "15.30"}, payload.Values[3])
	assert.Contains(t, payload.Values, []any{"Restaurants", float64(1), "12.80"})
	last := payload.Values[len(payload.Values)-1]
	assert.Equal(t, []any{"2024-03-10", "Lidl", "milk", float64(2), "", "1.25", "2.50", "Groceries"}, last)
}

func TestWriter_BatchesAndRetries(t *testing.T) {
	api := &fakeSheetsAPI{failWrites: 1}
	cfg := DefaultConfig()
	cfg.BatchSize = 5
	cfg.RetryDelay = time.Millisecond
	cfg.EnableFormatting = false
	cfg.SpreadsheetID = ""
	w := newTestWriter(t, api, cfg)

	_, err := w.Write(context.Background(), testReport())
	require.NoError(t, err)

	rows := len(prepareReportData(testReport()))
	batches := (rows + cfg.BatchSize - 1) / cfg.BatchSize
	// The first batch is attempted twice.
	assert.Len(t, api.writes(), batches+1)
	for _, c := range api.calls {
		assert.NotContains(t, c.path, ":batchUpdate")
	}
}

func TestWriter_GivesUpAfterRetries(t *testing.T) {
	api := &fakeSheetsAPI{failWrites: 10}
	cfg := DefaultConfig()
	cfg.RetryAttempts = 1
	cfg.RetryDelay = time.Millisecond
	w := newTestWriter(t, api, cfg)

	_, err := w.Write(context.Background(), testReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write data")
	assert.Len(t, api.writes(), 2)
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	token := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer"}

	require.NoError(t, SaveToken(path, token))
	loaded, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "r", loaded.RefreshToken)

	_, err = LoadToken(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestNewWriter_InvalidConfig(t *testing.T) {
	_, err := NewWriter(context.Background(), Config{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no authentication method configured")
}
