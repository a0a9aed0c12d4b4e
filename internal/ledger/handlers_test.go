package ledger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

const (
	hexAlice = "0xaaaa000000000000000000000000000000000001"
	hexBob   = "0xbbbb000000000000000000000000000000000002"
)

// setupTestRouter wires the ledger handler the way the server does, with a
// header-based stand-in for the auth middleware.
func setupTestRouter(l *Ledger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewHandler(l)

	v1 := router.Group("/v1")
	h.RegisterRoutes(v1)

	protected := v1.Group("")
	protected.Use(func(c *gin.Context) {
		if addr := c.GetHeader("X-Player-Address"); addr != "" {
			c.Set("authPlayerAddr", addr)
		}
		c.Next()
	})
	h.RegisterProtectedRoutes(protected)

	admin := v1.Group("/admin")
	h.RegisterAdminRoutes(admin)

	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_DepositAndBalance(t *testing.T) {
	router := setupTestRouter(newTestLedger())

	w := doJSON(t, router, "POST", "/v1/admin/deposits", map[string]any{
		"playerAddr": hexAlice,
		"amount":     500,
		"reference":  "dep-1",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	// Replay is rejected without double-crediting
	w = doJSON(t, router, "POST", "/v1/admin/deposits", map[string]any{
		"playerAddr": hexAlice,
		"amount":     500,
		"reference":  "dep-1",
	}, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 on replayed reference, got %d", w.Code)
	}

	w = doJSON(t, router, "GET", "/v1/players/"+hexAlice+"/balance", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Balance Balance `json:"balance"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if resp.Balance.Available != 500 {
		t.Errorf("expected available 500, got %d", resp.Balance.Available)
	}
}

func TestHandler_DepositValidation(t *testing.T) {
	router := setupTestRouter(newTestLedger())

	// Missing reference
	w := doJSON(t, router, "POST", "/v1/admin/deposits", map[string]any{
		"playerAddr": hexAlice,
		"amount":     500,
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing reference, got %d", w.Code)
	}

	// Bad address
	w = doJSON(t, router, "POST", "/v1/admin/deposits", map[string]any{
		"playerAddr": "not-an-address",
		"amount":     500,
		"reference":  "dep-1",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad address, got %d", w.Code)
	}

	// Negative amount
	w = doJSON(t, router, "POST", "/v1/admin/deposits", map[string]any{
		"playerAddr": hexAlice,
		"amount":     -10,
		"reference":  "dep-2",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for negative amount, got %d", w.Code)
	}
}

func TestHandler_Withdraw(t *testing.T) {
	l := newTestLedger()
	router := setupTestRouter(l)
	auth := map[string]string{"X-Player-Address": hexAlice}

	// Broke player
	w := doJSON(t, router, "POST", "/v1/players/withdraw", map[string]any{"amount": 100}, auth)
	if w.Code != http.StatusPaymentRequired {
		t.Errorf("expected 402 for unfunded player, got %d", w.Code)
	}

	w = doJSON(t, router, "POST", "/v1/admin/deposits", map[string]any{
		"playerAddr": hexAlice,
		"amount":     300,
		"reference":  "dep-1",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("deposit failed: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, "POST", "/v1/players/withdraw", map[string]any{
		"amount":    200,
		"reference": "wd-1",
	}, auth)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, "GET", "/v1/players/"+hexAlice+"/balance", nil, nil)
	var resp struct {
		Balance Balance `json:"balance"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Balance.Available != 100 {
		t.Errorf("expected available 100 after withdrawal, got %d", resp.Balance.Available)
	}
}

func TestHandler_GetBalance_BadAddress(t *testing.T) {
	router := setupTestRouter(newTestLedger())

	w := doJSON(t, router, "GET", "/v1/players/garbage/balance", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid address, got %d", w.Code)
	}
}

func TestHandler_History(t *testing.T) {
	l := newTestLedger()
	router := setupTestRouter(l)

	for i, ref := range []string{"dep-1", "dep-2", "dep-3"} {
		w := doJSON(t, router, "POST", "/v1/admin/deposits", map[string]any{
			"playerAddr": hexBob,
			"amount":     100 * (i + 1),
			"reference":  ref,
		}, nil)
		if w.Code != http.StatusCreated {
			t.Fatalf("deposit %s failed: %d", ref, w.Code)
		}
	}

	w := doJSON(t, router, "GET", "/v1/players/"+hexBob+"/history?limit=2", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Entries []Entry `json:"entries"`
		Count   int     `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if resp.Count != 2 {
		t.Fatalf("expected 2 entries, got %d", resp.Count)
	}
	// Newest first
	if resp.Entries[0].Amount != 300 || resp.Entries[1].Amount != 200 {
		t.Errorf("expected newest-first ordering, got %d then %d",
			resp.Entries[0].Amount, resp.Entries[1].Amount)
	}
}
