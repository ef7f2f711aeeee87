package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"moneymind/internal/auth"
	"moneymind/internal/core"
	"moneymind/internal/events"
	"moneymind/internal/ledger/memory"
	"moneymind/internal/services"
)

var testNow = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

type testEnv struct {
	srv    *Server
	svc    *services.FinanceService
	broker *events.Broker
	alice  string
	bob    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	verifier, err := auth.NewVerifier("test-secret-0123456789", "moneymind")
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	broker := events.NewBroker(events.DefaultBuffer)
	spending := services.NewSpendingCache(64, time.Minute)

	cfg := services.DefaultFinanceServiceConfig()
	cfg.Now = func() time.Time { return testNow }
	cfg.Spending = spending
	cfg.Selector = core.NewNudgeSelector(func(int) int { return 0 })
	svc := services.NewFinanceService(memory.New(), events.Multi{broker, spending}, cfg)

	srv := NewServer(":0", Deps{
		Service:            svc,
		Broker:             broker,
		Spending:           spending,
		Verifier:           verifier,
		RateLimitPerMinute: 10000,
		Heartbeat:          time.Hour,
	})
	t.Cleanup(func() {
		broker.Close()
		_ = srv.Shutdown(context.Background())
	})

	sign := func(user string) string {
		tok, err := verifier.Sign(user, time.Hour)
		if err != nil {
			t.Fatalf("Sign: %v", err)
		}
		return tok
	}
	return &testEnv{srv: srv, svc: svc, broker: broker, alice: sign("alice"), bob: sign("bob")}
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d, body: %s", rr.Code, want, rr.Body.String())
	}
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthReadyMetrics(t *testing.T) {
	e := newTestEnv(t)
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rr := e.do(t, http.MethodGet, path, "", "")
		expectStatus(t, rr, http.StatusOK)
		if rr.Header().Get("Content-Type") != "application/json" {
			t.Fatalf("%s content type %q", path, rr.Header().Get("Content-Type"))
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Fatalf("%s missing request id", path)
		}
	}
	m := decode[metricsBody](t, e.do(t, http.MethodGet, "/metrics", "", ""))
	if m.Requests.TotalRequests < 3 {
		t.Fatalf("expected request metrics, got %+v", m.Requests)
	}
}

func TestGoalsEndpoints(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(t, http.MethodPost, "/api/goals", "", `{"name":"House","targetAmount":120000,"deadline":"2025-09-06","priority":"high"}`)
	expectStatus(t, rr, http.StatusUnauthorized)
	if decode[errorBody](t, rr).Error == "" {
		t.Fatal("error body missing message")
	}

	rr = e.do(t, http.MethodPost, "/api/goals", e.alice, `{"name":"House","targetAmount":120000,"deadline":"2025-09-06","priority":"high"}`)
	expectStatus(t, rr, http.StatusCreated)
	id := decode[idBody](t, rr).ID

	goals := decode[[]core.FinancialGoal](t, e.do(t, http.MethodGet, "/api/goals", e.alice, ""))
	if len(goals) != 1 || goals[0].ID != id || goals[0].SuggestedMonthlySavings != 20000 || goals[0].Feasibility != core.FeasibilityHigh {
		t.Fatalf("unexpected goals %+v", goals)
	}
	if others := decode[[]core.FinancialGoal](t, e.do(t, http.MethodGet, "/api/goals", e.bob, "")); len(others) != 0 {
		t.Fatalf("bob sees alice's goals: %+v", others)
	}

	expectStatus(t, e.do(t, http.MethodPost, "/api/goals/"+id+"/progress", e.alice, `{}`), http.StatusUnprocessableEntity)
	expectStatus(t, e.do(t, http.MethodPost, "/api/goals/"+id+"/progress", e.bob, `{"currentAmount":1}`), http.StatusNotFound)
	expectStatus(t, e.do(t, http.MethodPost, "/api/goals/"+id+"/progress", e.alice, `{"currentAmount":"120000"}`), http.StatusNoContent)

	goals = decode[[]core.FinancialGoal](t, e.do(t, http.MethodGet, "/api/goals", e.alice, ""))
	if goals[0].Status != core.GoalCompleted || goals[0].CurrentAmount != 120000 {
		t.Fatalf("progress not applied: %+v", goals[0])
	}

	expectStatus(t, e.do(t, http.MethodPost, "/api/goals", e.alice, `{"name":"Bad","targetAmount":10,"deadline":"09/06/2025","priority":"high"}`), http.StatusUnprocessableEntity)
}

func TestTransactionsEndpoints(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(t, http.MethodPost, "/api/transactions", e.alice, `{"type":"expense","category":"Food","amount":"12,50","date":"2025-03-02","description":"lunch"}`)
	expectStatus(t, rr, http.StatusCreated)
	foodID := decode[idBody](t, rr).ID
	expectStatus(t, e.do(t, http.MethodPost, "/api/transactions", e.alice, `{"type":"income","category":"Salary","amount":5000,"date":"2025-03-01"}`), http.StatusCreated)
	expectStatus(t, e.do(t, http.MethodPost, "/api/transactions", e.alice, `{"type":"expense","category":"Rent","amount":900,"date":"2025-02-01"}`), http.StatusCreated)

	expectStatus(t, e.do(t, http.MethodPost, "/api/transactions", e.alice, `{"type":"expense","category":"Food","amount":"-3","date":"2025-03-02"}`), http.StatusUnprocessableEntity)
	expectStatus(t, e.do(t, http.MethodPost, "/api/transactions", e.alice, `{"type":"expense"`), http.StatusUnprocessableEntity)
	expectStatus(t, e.do(t, http.MethodPost, "/api/transactions", e.alice, ``), http.StatusUnprocessableEntity)

	txs := decode[[]core.Transaction](t, e.do(t, http.MethodGet, "/api/transactions", e.alice, ""))
	if len(txs) != 3 || txs[2].ID != foodID || txs[2].Amount != 12.5 {
		t.Fatalf("unexpected listing %+v", txs)
	}
	if got := decode[[]core.Transaction](t, e.do(t, http.MethodGet, "/api/transactions?type=income", e.alice, "")); len(got) != 1 {
		t.Fatalf("expected one income, got %d", len(got))
	}
	if got := decode[[]core.Transaction](t, e.do(t, http.MethodGet, "/api/transactions?limit=1", e.alice, "")); len(got) != 1 {
		t.Fatalf("expected limit 1, got %d", len(got))
	}
	expectStatus(t, e.do(t, http.MethodGet, "/api/transactions?limit=-1", e.alice, ""), http.StatusUnprocessableEntity)
	expectStatus(t, e.do(t, http.MethodGet, "/api/transactions?type=gift", e.alice, ""), http.StatusUnprocessableEntity)

	if got := decode[[]core.Transaction](t, e.do(t, http.MethodGet, "/api/transactions/range?start=2025-03-01&end=2025-03-31", e.alice, "")); len(got) != 2 {
		t.Fatalf("expected 2 in March, got %d", len(got))
	}
	expectStatus(t, e.do(t, http.MethodGet, "/api/transactions/range?start=2025-03-31&end=2025-03-01", e.alice, ""), http.StatusUnprocessableEntity)

	spending := decode[[]core.CategoryAmount](t, e.do(t, http.MethodGet, "/api/spending?month=2025-03", e.alice, ""))
	if len(spending) != 1 || spending[0].Category != "Food" || spending[0].Amount != 12.5 {
		t.Fatalf("unexpected spending %+v", spending)
	}
	expectStatus(t, e.do(t, http.MethodGet, "/api/spending?month=2025-13", e.alice, ""), http.StatusUnprocessableEntity)

	summary := decode[services.Summary](t, e.do(t, http.MethodGet, "/api/summary", e.alice, ""))
	if summary.Month != "2025-03" || summary.Totals.Income != 5000 || summary.Totals.Expenses != 12.5 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	expectStatus(t, e.do(t, http.MethodDelete, "/api/transactions/"+foodID, e.bob, ""), http.StatusNotFound)
	expectStatus(t, e.do(t, http.MethodDelete, "/api/transactions/"+foodID, "", ""), http.StatusUnauthorized)
	expectStatus(t, e.do(t, http.MethodDelete, "/api/transactions/"+foodID, e.alice, ""), http.StatusNoContent)

	if spending := decode[[]core.CategoryAmount](t, e.do(t, http.MethodGet, "/api/spending?month=2025-03", e.alice, "")); len(spending) != 0 {
		t.Fatalf("spending should be empty after delete, got %+v", spending)
	}
}

func TestInvestmentsEndpoints(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(t, http.MethodPost, "/api/investments/insights", "", `{"type":"FD","amount":10000,"duration":12,"rate":7,"maturityAmount":10700}`)
	expectStatus(t, rr, http.StatusOK)
	p := decode[core.Projection](t, rr)
	if p.TotalReturns != 700 || p.Tier != core.TierModerate || !strings.HasPrefix(p.Narrative, "Your FD investment of ₹10,000") {
		t.Fatalf("unexpected projection %+v", p)
	}
	expectStatus(t, e.do(t, http.MethodPost, "/api/investments/insights", "", `{"type":"FD","amount":0,"duration":12,"rate":7,"maturityAmount":1}`), http.StatusUnprocessableEntity)

	expectStatus(t, e.do(t, http.MethodPost, "/api/investments", "", `{"name":"FD","type":"FD","amount":10000,"duration":12,"rate":7,"maturityAmount":10700}`), http.StatusUnauthorized)
	expectStatus(t, e.do(t, http.MethodPost, "/api/investments", e.alice, `{"name":"FD","type":"FD","amount":10000,"duration":12,"rate":7,"maturityAmount":10700,"aiInsights":"ok"}`), http.StatusCreated)
	list := decode[[]core.InvestmentCalculation](t, e.do(t, http.MethodGet, "/api/investments", e.alice, ""))
	if len(list) != 1 || list[0].Insight != "ok" {
		t.Fatalf("unexpected investments %+v", list)
	}
}

func TestNudgesEndpoints(t *testing.T) {
	e := newTestEnv(t)

	expectStatus(t, e.do(t, http.MethodPost, "/api/nudges/generate", "", ""), http.StatusUnauthorized)
	expectStatus(t, e.do(t, http.MethodPost, "/api/nudges/generate", e.alice, ""), http.StatusNoContent)

	nudges := decode[[]core.SmartNudge](t, e.do(t, http.MethodGet, "/api/nudges", e.alice, ""))
	if len(nudges) != 1 || nudges[0].IsRead || nudges[0].Type != core.NudgeOverspending {
		t.Fatalf("unexpected nudges %+v", nudges)
	}
	id := nudges[0].ID

	expectStatus(t, e.do(t, http.MethodPost, "/api/nudges/"+id+"/read", e.bob, ""), http.StatusNotFound)
	expectStatus(t, e.do(t, http.MethodPost, "/api/nudges/"+id+"/read", e.alice, ""), http.StatusNoContent)
	nudges = decode[[]core.SmartNudge](t, e.do(t, http.MethodGet, "/api/nudges", e.alice, ""))
	if !nudges[0].IsRead {
		t.Fatal("nudge should be read")
	}
}

func TestProfileAndAccountsEndpoints(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(t, http.MethodGet, "/api/profile", e.alice, "")
	expectStatus(t, rr, http.StatusOK)
	if strings.TrimSpace(rr.Body.String()) != "null" {
		t.Fatalf("expected null profile, got %s", rr.Body.String())
	}

	first := decode[idBody](t, e.do(t, http.MethodPut, "/api/profile", e.alice, `{"firstName":"Alice","monthlyIncome":50000,"currency":"INR","financialGoals":["house"," "]}`))
	second := decode[idBody](t, e.do(t, http.MethodPut, "/api/profile", e.alice, `{"firstName":"Alicia","monthlyIncome":"60000","currency":"INR"}`))
	if first.ID == "" || first.ID != second.ID {
		t.Fatalf("profile upsert produced ids %q and %q", first.ID, second.ID)
	}
	p := decode[core.UserProfile](t, e.do(t, http.MethodGet, "/api/profile", e.alice, ""))
	if p.FirstName != "Alicia" || p.MonthlyIncome != 60000 || !p.OnboardingCompleted {
		t.Fatalf("unexpected profile %+v", p)
	}

	expectStatus(t, e.do(t, http.MethodPost, "/api/accounts", e.alice, `{"accountType":"bank","accountName":"Checking","balance":2500,"accountNumber":"123456789012"}`), http.StatusCreated)
	expectStatus(t, e.do(t, http.MethodPost, "/api/accounts", e.alice, `{"accountType":"wallet","accountName":"x"}`), http.StatusUnprocessableEntity)
	accounts := decode[[]core.ConnectedAccount](t, e.do(t, http.MethodGet, "/api/accounts", e.alice, ""))
	if len(accounts) != 1 || accounts[0].AccountNumber != "****9012" || !accounts[0].IsActive {
		t.Fatalf("unexpected accounts %+v", accounts)
	}
}

func TestRoutingAndTokens(t *testing.T) {
	e := newTestEnv(t)

	expectStatus(t, e.do(t, http.MethodGet, "/api/nope", "", ""), http.StatusNotFound)
	// Unrouted methods fall through to the JSON catch-all.
	expectStatus(t, e.do(t, http.MethodPatch, "/api/goals", e.alice, ""), http.StatusNotFound)
	expectStatus(t, e.do(t, http.MethodGet, "/.git/config", "", ""), http.StatusBadRequest)

	// A bad token is treated as anonymous: reads are empty, writes are refused.
	rr := e.do(t, http.MethodGet, "/api/goals", "not-a-token", "")
	expectStatus(t, rr, http.StatusOK)
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("expected empty list, got %s", rr.Body.String())
	}
	rr = e.do(t, http.MethodPost, "/api/nudges/generate", "not-a-token", "")
	expectStatus(t, rr, http.StatusUnauthorized)
	if rr.Header().Get("WWW-Authenticate") == "" {
		t.Fatal("missing WWW-Authenticate header")
	}
}

func TestRateLimit(t *testing.T) {
	e := newTestEnv(t)
	verifier, _ := auth.NewVerifier("test-secret-0123456789", "moneymind")
	srv := NewServer(":0", Deps{Service: e.svc, Broker: e.broker, Verifier: verifier, RateLimitPerMinute: 2})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	var last int
	for range 3 {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		last = rr.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", last)
	}
}

func TestEventStream(t *testing.T) {
	e := newTestEnv(t)
	ts := httptest.NewServer(e.srv.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/events")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous stream status = %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	req.Header.Set("Authorization", "Bearer "+e.alice)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type %q", ct)
	}

	lines := bufio.NewScanner(resp.Body)
	if !lines.Scan() || lines.Text() != ": connected" {
		t.Fatalf("expected connected comment, got %q", lines.Text())
	}

	bobCtx := auth.WithUser(context.Background(), "bob")
	if _, err := e.svc.AddTransaction(bobCtx, services.AddTransactionInput{Type: core.Income, Category: "Gift", Amount: 1, Date: "2025-03-01"}); err != nil {
		t.Fatal(err)
	}
	aliceCtx := auth.WithUser(context.Background(), "alice")
	id, err := e.svc.AddTransaction(aliceCtx, services.AddTransactionInput{Type: core.Expense, Category: "Food", Amount: 3, Date: "2025-03-01"})
	if err != nil {
		t.Fatal(err)
	}

	var data string
	for lines.Scan() {
		if d, ok := strings.CutPrefix(lines.Text(), "data: "); ok {
			data = d
			break
		}
	}
	if data == "" {
		t.Fatalf("no event received: %v", lines.Err())
	}
	var c events.Change
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		t.Fatal(err)
	}
	if c.UserID != "alice" || c.ID != id || c.Entity != events.EntityTransaction || c.Op != events.OpCreated {
		t.Fatalf("unexpected change %+v", c)
	}
}
