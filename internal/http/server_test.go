package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"pfms/internal/auth"
	"pfms/internal/services"
	"pfms/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	hash, err := auth.HashPassword("admin")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if err := repo.EnsureUser(context.Background(), "admin", hash); err != nil {
		t.Fatalf("EnsureUser() error = %v", err)
	}

	authSvc := auth.NewService(repo, time.Hour)
	txService := services.NewTransactionService(repo, nil)

	srv := NewServer(":0", repo, authSvc, txService, 10000)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return ts
}

// doJSON issues a request and decodes the JSON envelope.
func doJSON(t *testing.T, ts *httptest.Server, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, reqBody)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response for %s %s: %v", method, path, err)
	}
	return resp.StatusCode, payload
}

func login(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	status, payload := doJSON(t, ts, http.MethodPost, "/api/login", "",
		map[string]any{"username": "admin", "password": "admin"})
	if status != http.StatusOK {
		t.Fatalf("login status = %d, body = %v", status, payload)
	}
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatal("login returned no token")
	}
	return token
}

func TestLoginEndpoint(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
		wantError  string
	}{
		{
			name:       "valid credentials",
			body:       map[string]any{"username": "admin", "password": "admin"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong password",
			body:       map[string]any{"username": "admin", "password": "nope"},
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid credentials",
		},
		{
			name:       "missing password",
			body:       map[string]any{"username": "admin"},
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing fields",
		},
		{
			name:       "missing username",
			body:       map[string]any{"password": "admin"},
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing fields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, payload := doJSON(t, ts, http.MethodPost, "/api/login", "", tt.body)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if tt.wantError != "" {
				if got, _ := payload["error"].(string); got != tt.wantError {
					t.Errorf("error = %q, want %q", got, tt.wantError)
				}
			} else {
				if payload["ok"] != true {
					t.Errorf("ok = %v, want true", payload["ok"])
				}
				if payload["token"] == "" {
					t.Error("expected a session token")
				}
			}
		})
	}
}

func TestLoginIssuesDistinctTokens(t *testing.T) {
	ts := newTestServer(t)
	if login(t, ts) == login(t, ts) {
		t.Error("two logins returned the same token")
	}
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/transactions"},
		{http.MethodPost, "/api/transactions"},
		{http.MethodDelete, "/api/transactions/1"},
		{http.MethodGet, "/api/budgets"},
		{http.MethodPost, "/api/budgets"},
		{http.MethodGet, "/api/summary/monthly"},
		{http.MethodGet, "/api/summary/categories"},
		{http.MethodGet, "/api/summary/budget"},
		{http.MethodPost, "/api/logout"},
	}

	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			status, payload := doJSON(t, ts, p.method, p.path, "", nil)
			if status != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", status)
			}
			if got, _ := payload["error"].(string); got != "Invalid session" {
				t.Errorf("error = %q, want %q", got, "Invalid session")
			}
		})
	}
}

func TestPingIsOpen(t *testing.T) {
	ts := newTestServer(t)

	status, payload := doJSON(t, ts, http.MethodGet, "/api/ping", "", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if payload["ok"] != true {
		t.Errorf("ok = %v, want true", payload["ok"])
	}
	ts1, ok := payload["ts"].(float64)
	if !ok || ts1 <= 0 {
		t.Errorf("ts = %v, want positive epoch millis", payload["ts"])
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)

	status, payload := doJSON(t, ts, http.MethodPost, "/api/transactions", token, map[string]any{
		"date":     "2025-03-15",
		"type":     "expense",
		"category": "Food",
		"amount":   250,
	})
	if status != http.StatusOK {
		t.Fatalf("create status = %d, body = %v", status, payload)
	}

	created, ok := payload["transaction"].(map[string]any)
	if !ok {
		t.Fatalf("transaction missing from response: %v", payload)
	}
	if created["id"] == nil {
		t.Error("created transaction has no id")
	}
	if created["created_at"] == "" {
		t.Error("created transaction has no created_at")
	}
	if created["amount"].(float64) != 250 {
		t.Errorf("amount = %v, want 250", created["amount"])
	}

	// March is month index 2.
	status, payload = doJSON(t, ts, http.MethodGet, "/api/transactions?month=2&year=2025", token, nil)
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	list, _ := payload["transactions"].([]any)
	if len(list) != 1 {
		t.Fatalf("filtered list length = %d, want 1", len(list))
	}
	row := list[0].(map[string]any)
	if row["id"] != created["id"] {
		t.Errorf("listed id = %v, want %v", row["id"], created["id"])
	}

	// A different month excludes it.
	status, payload = doJSON(t, ts, http.MethodGet, "/api/transactions?month=3&year=2025", token, nil)
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	if list, _ := payload["transactions"].([]any); len(list) != 0 {
		t.Errorf("other-month list length = %d, want 0", len(list))
	}
}

func TestCreateTransactionMissingFields(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)

	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "no date", body: map[string]any{"type": "expense", "amount": 10}},
		{name: "no type", body: map[string]any{"date": "2025-03-15", "amount": 10}},
		{name: "no amount", body: map[string]any{"date": "2025-03-15", "type": "expense"}},
		{name: "bad date", body: map[string]any{"date": "15/03/2025", "type": "expense", "amount": 10}},
		{name: "bad type", body: map[string]any{"date": "2025-03-15", "type": "transfer", "amount": 10}},
		{name: "negative amount", body: map[string]any{"date": "2025-03-15", "type": "expense", "amount": -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, payload := doJSON(t, ts, http.MethodPost, "/api/transactions", token, tt.body)
			if status != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", status)
			}
			if got, _ := payload["error"].(string); got != "Missing fields" {
				t.Errorf("error = %q, want %q", got, "Missing fields")
			}
		})
	}
}

func TestListTransactionsOrdering(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)

	for _, tx := range []map[string]any{
		{"date": "2025-01-10", "type": "income", "amount": 1},
		{"date": "2025-03-20", "type": "expense", "amount": 2},
		{"date": "2025-03-20", "type": "expense", "amount": 3},
		{"date": "2025-02-05", "type": "income", "amount": 4},
	} {
		if status, payload := doJSON(t, ts, http.MethodPost, "/api/transactions", token, tx); status != http.StatusOK {
			t.Fatalf("create status = %d, body = %v", status, payload)
		}
	}

	_, payload := doJSON(t, ts, http.MethodGet, "/api/transactions", token, nil)
	list, _ := payload["transactions"].([]any)
	if len(list) != 4 {
		t.Fatalf("list length = %d, want 4", len(list))
	}

	// Date descending, ties by id descending: the later 2025-03-20
	// insert (amount 3) comes first.
	wantAmounts := []float64{3, 2, 4, 1}
	for i, want := range wantAmounts {
		row := list[i].(map[string]any)
		if got := row["amount"].(float64); got != want {
			t.Errorf("position %d amount = %v, want %v", i, got, want)
		}
	}
}

func TestDeleteTransaction(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)

	_, payload := doJSON(t, ts, http.MethodPost, "/api/transactions", token, map[string]any{
		"date": "2025-03-15", "type": "expense", "amount": 10,
	})
	id := payload["transaction"].(map[string]any)["id"].(float64)

	status, payload := doJSON(t, ts, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", int64(id)), token, nil)
	if status != http.StatusOK {
		t.Fatalf("delete status = %d", status)
	}
	if payload["deleted"].(float64) != 1 {
		t.Errorf("deleted = %v, want 1", payload["deleted"])
	}

	// Deleting a missing id reports zero, not an error.
	status, payload = doJSON(t, ts, http.MethodDelete, "/api/transactions/99999", token, nil)
	if status != http.StatusOK {
		t.Fatalf("delete missing status = %d", status)
	}
	if payload["deleted"].(float64) != 0 {
		t.Errorf("deleted = %v, want 0", payload["deleted"])
	}
}

func TestBudgetUpsert(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)

	set := func(amount float64) {
		t.Helper()
		status, payload := doJSON(t, ts, http.MethodPost, "/api/budgets", token, map[string]any{
			"month": 2, "year": 2025, "amount": amount,
		})
		if status != http.StatusOK {
			t.Fatalf("set budget status = %d, body = %v", status, payload)
		}
		if payload["upserted"] != true {
			t.Errorf("upserted = %v, want true", payload["upserted"])
		}
	}

	set(5000)
	set(6000)

	_, payload := doJSON(t, ts, http.MethodGet, "/api/budgets", token, nil)
	budgets, _ := payload["budgets"].([]any)
	if len(budgets) != 1 {
		t.Fatalf("budget rows = %d, want 1", len(budgets))
	}
	row := budgets[0].(map[string]any)
	if row["amount"].(float64) != 6000 {
		t.Errorf("amount = %v, want 6000 (second upsert wins)", row["amount"])
	}
	if row["month"].(float64) != 2 || row["year"].(float64) != 2025 {
		t.Errorf("key = (%v, %v), want (2, 2025)", row["month"], row["year"])
	}
}

func TestSetBudgetMissingFields(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)

	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "no month", body: map[string]any{"year": 2025, "amount": 100}},
		{name: "no year", body: map[string]any{"month": 2, "amount": 100}},
		{name: "no amount", body: map[string]any{"month": 2, "year": 2025}},
		{name: "month out of range", body: map[string]any{"month": 12, "year": 2025, "amount": 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, payload := doJSON(t, ts, http.MethodPost, "/api/budgets", token, tt.body)
			if status != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", status)
			}
			if got, _ := payload["error"].(string); got != "Missing fields" {
				t.Errorf("error = %q, want %q", got, "Missing fields")
			}
		})
	}

	// Month zero is January, not a missing field.
	status, _ := doJSON(t, ts, http.MethodPost, "/api/budgets", token, map[string]any{
		"month": 0, "year": 2025, "amount": 100,
	})
	if status != http.StatusOK {
		t.Errorf("month 0 status = %d, want 200", status)
	}
}

func TestSummaryMonthly(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)

	// Same calendar month across years sums together.
	for _, tx := range []map[string]any{
		{"date": "2025-03-10", "type": "income", "amount": 1000},
		{"date": "2024-03-20", "type": "income", "amount": 500},
		{"date": "2025-03-15", "type": "expense", "amount": 300},
		{"date": "2025-06-01", "type": "expense", "amount": 50},
	} {
		doJSON(t, ts, http.MethodPost, "/api/transactions", token, tx)
	}

	_, payload := doJSON(t, ts, http.MethodGet, "/api/summary/monthly", token, nil)
	income := payload["income"].([]any)
	expense := payload["expense"].([]any)
	savings := payload["savings"].([]any)
	if len(income) != 12 || len(expense) != 12 || len(savings) != 12 {
		t.Fatalf("series lengths = %d/%d/%d, want 12 each", len(income), len(expense), len(savings))
	}

	if got := income[2].(float64); got != 1500 {
		t.Errorf("march income = %v, want 1500", got)
	}
	if got := expense[2].(float64); got != 300 {
		t.Errorf("march expense = %v, want 300", got)
	}
	if got := savings[2].(float64); got != 1200 {
		t.Errorf("march savings = %v, want 1200", got)
	}
	if got := savings[5].(float64); got != -50 {
		t.Errorf("june savings = %v, want -50", got)
	}
}

func TestSummaryCategories(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)

	for _, tx := range []map[string]any{
		{"date": "2025-03-10", "type": "expense", "category": "Food", "amount": 100},
		{"date": "2025-03-12", "type": "expense", "category": "Food", "amount": 50},
		{"date": "2025-03-15", "type": "expense", "amount": 25},
		{"date": "2025-03-18", "type": "income", "category": "Salary", "amount": 9999},
	} {
		doJSON(t, ts, http.MethodPost, "/api/transactions", token, tx)
	}

	_, payload := doJSON(t, ts, http.MethodGet, "/api/summary/categories?month=2&year=2025", token, nil)
	categories, _ := payload["categories"].([]any)
	if len(categories) != 2 {
		t.Fatalf("categories = %d, want 2 (income excluded, empty bucketed)", len(categories))
	}

	byName := map[string]float64{}
	for _, c := range categories {
		row := c.(map[string]any)
		byName[row["category"].(string)] = row["amount"].(float64)
	}
	if byName["Food"] != 150 {
		t.Errorf("Food = %v, want 150", byName["Food"])
	}
	if byName["Uncategorized"] != 25 {
		t.Errorf("Uncategorized = %v, want 25", byName["Uncategorized"])
	}
}

func TestSummaryBudget(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)

	// No budget set yet.
	_, payload := doJSON(t, ts, http.MethodGet, "/api/summary/budget?month=2&year=2025", token, nil)
	if got, _ := payload["status"].(string); got != "none" {
		t.Errorf("status with no budget = %q, want %q", got, "none")
	}
	if payload["percent"].(float64) != 0 {
		t.Errorf("percent with no budget = %v, want 0", payload["percent"])
	}

	doJSON(t, ts, http.MethodPost, "/api/budgets", token, map[string]any{
		"month": 2, "year": 2025, "amount": 5000,
	})
	doJSON(t, ts, http.MethodPost, "/api/transactions", token, map[string]any{
		"date": "2025-03-15", "type": "expense", "amount": 6000,
	})

	_, payload = doJSON(t, ts, http.MethodGet, "/api/summary/budget?month=2&year=2025", token, nil)
	if got := payload["percent"].(float64); got != 100 {
		t.Errorf("percent = %v, want capped 100", got)
	}
	if got, _ := payload["status"].(string); got != "exceeded" {
		t.Errorf("status = %q, want %q (raw spend beats the cap)", got, "exceeded")
	}
	if got := payload["spent"].(float64); got != 6000 {
		t.Errorf("spent = %v, want 6000", got)
	}
}

func TestSummaryCacheInvalidation(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)

	doJSON(t, ts, http.MethodPost, "/api/transactions", token, map[string]any{
		"date": "2025-03-15", "type": "income", "amount": 100,
	})

	_, payload := doJSON(t, ts, http.MethodGet, "/api/summary/monthly", token, nil)
	if got := payload["income"].([]any)[2].(float64); got != 100 {
		t.Fatalf("march income = %v, want 100", got)
	}

	// A new mutation must be visible immediately despite the cache.
	doJSON(t, ts, http.MethodPost, "/api/transactions", token, map[string]any{
		"date": "2025-03-16", "type": "income", "amount": 50,
	})
	_, payload = doJSON(t, ts, http.MethodGet, "/api/summary/monthly", token, nil)
	if got := payload["income"].([]any)[2].(float64); got != 150 {
		t.Errorf("march income after mutation = %v, want 150", got)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)

	status, _ := doJSON(t, ts, http.MethodPost, "/api/logout", token, nil)
	if status != http.StatusOK {
		t.Fatalf("logout status = %d", status)
	}

	status, payload := doJSON(t, ts, http.MethodGet, "/api/transactions", token, nil)
	if status != http.StatusUnauthorized {
		t.Errorf("status after logout = %d, want 401", status)
	}
	if got, _ := payload["error"].(string); got != "Invalid session" {
		t.Errorf("error = %q, want %q", got, "Invalid session")
	}
}
