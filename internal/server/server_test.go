package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mbd888/chipvault/internal/config"
)

const (
	testArbiter = "0xaaaa000000000000000000000000000000000001"
	testPlayer1 = "0xbbbb000000000000000000000000000000000002"
	testPlayer2 = "0xcccc000000000000000000000000000000000003"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:          "0",
		Env:           "development",
		LogLevel:      "error",
		RefundTimeout: 24 * time.Hour,
		SweepInterval: time.Minute,
		MinBuyIn:      1,
		MaxBuyIn:      1_000_000_000,
		RateLimitRPM:  600000, // Effectively unlimited for tests
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	t.Setenv("ADMIN_SECRET", "") // Demo mode: any API key can credit deposits
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	srv, err := New(testConfig(), WithLogger(logger))
	if err != nil {
		t.Fatalf("server.New failed: %v", err)
	}
	t.Cleanup(func() {
		if srv.rateLimiter != nil {
			srv.rateLimiter.Stop()
		}
	})
	return srv
}

func do(t *testing.T, srv *Server, method, path, apiKey string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

// registerPlayer registers an address and returns its raw API key.
func registerPlayer(t *testing.T, srv *Server, address string) string {
	t.Helper()
	w := do(t, srv, "POST", "/v1/players", "", map[string]string{"address": address})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s failed: %d %s", address, w.Code, w.Body.String())
	}
	var resp struct {
		APIKey string `json:"apiKey"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.APIKey == "" {
		t.Fatalf("no API key in registration response: %s", w.Body.String())
	}
	return resp.APIKey
}

// deposit credits chips through the admin on-ramp (demo mode).
func deposit(t *testing.T, srv *Server, apiKey, address string, amount int64, ref string) {
	t.Helper()
	w := do(t, srv, "POST", "/v1/admin/deposits", apiKey, map[string]any{
		"playerAddr": address,
		"amount":     amount,
		"reference":  ref,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("deposit for %s failed: %d %s", address, w.Code, w.Body.String())
	}
}

func TestServer_HealthAndInfo(t *testing.T) {
	srv := newTestServer(t)

	if w := do(t, srv, "GET", "/health", "", nil); w.Code != http.StatusOK {
		t.Errorf("expected healthy, got %d: %s", w.Code, w.Body.String())
	}
	if w := do(t, srv, "GET", "/health/live", "", nil); w.Code != http.StatusOK {
		t.Errorf("expected alive, got %d", w.Code)
	}
	// Readiness flips on only when Run starts the listener
	if w := do(t, srv, "GET", "/health/ready", "", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected not ready before Run, got %d", w.Code)
	}

	w := do(t, srv, "GET", "/api", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("info endpoint failed: %d", w.Code)
	}
	var info struct {
		Name     string `json:"name"`
		Currency string `json:"currency"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &info)
	if info.Name != "Chipvault" || info.Currency != "chips" {
		t.Errorf("unexpected info payload: %s", w.Body.String())
	}

	if w := do(t, srv, "GET", "/metrics", "", nil); w.Code != http.StatusOK {
		t.Errorf("metrics endpoint failed: %d", w.Code)
	}
}

func TestServer_RegistrationAndAuth(t *testing.T) {
	srv := newTestServer(t)

	apiKey := registerPlayer(t, srv, testArbiter)

	// Bad address rejected
	if w := do(t, srv, "POST", "/v1/players", "", map[string]string{"address": "nope"}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad address, got %d", w.Code)
	}

	// Mutations require the key
	if w := do(t, srv, "POST", "/v1/games", "", map[string]any{
		"buyIn": 100, "minPlayers": 2, "maxPlayers": 6, "mode": "single_hand", "handLabel": "x",
	}); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", w.Code)
	}

	// /auth/me reflects the key holder
	w := do(t, srv, "GET", "/v1/auth/me", apiKey, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("auth/me failed: %d %s", w.Code, w.Body.String())
	}
	var me struct {
		PlayerAddress string `json:"playerAddress"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &me)
	if me.PlayerAddress != testArbiter {
		t.Errorf("expected %s, got %s", testArbiter, me.PlayerAddress)
	}
}

func TestServer_FullGameLifecycle(t *testing.T) {
	srv := newTestServer(t)

	arbiterKey := registerPlayer(t, srv, testArbiter)
	p1Key := registerPlayer(t, srv, testPlayer1)
	p2Key := registerPlayer(t, srv, testPlayer2)

	deposit(t, srv, arbiterKey, testPlayer1, 500, "dep-1")
	deposit(t, srv, arbiterKey, testPlayer2, 500, "dep-2")

	// Create a single-hand game
	w := do(t, srv, "POST", "/v1/games", arbiterKey, map[string]any{
		"buyIn":      100,
		"minPlayers": 2,
		"maxPlayers": 6,
		"mode":       "single_hand",
		"handLabel":  "friday night",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create game failed: %d %s", w.Code, w.Body.String())
	}
	var created struct {
		Game struct {
			ID string `json:"id"`
		} `json:"game"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	gameID := created.Game.ID
	if gameID == "" {
		t.Fatalf("no game ID in response: %s", w.Body.String())
	}

	// Players join; buy-ins move into the pot
	if w := do(t, srv, "POST", "/v1/games/"+gameID+"/join", p1Key, nil); w.Code != http.StatusOK {
		t.Fatalf("player1 join failed: %d %s", w.Code, w.Body.String())
	}
	if w := do(t, srv, "POST", "/v1/games/"+gameID+"/join", p2Key, nil); w.Code != http.StatusOK {
		t.Fatalf("player2 join failed: %d %s", w.Code, w.Body.String())
	}

	var balResp struct {
		Balance struct {
			Available int64 `json:"available"`
		} `json:"balance"`
	}
	w = do(t, srv, "GET", "/v1/players/"+testPlayer1+"/balance", "", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &balResp)
	if balResp.Balance.Available != 400 {
		t.Errorf("expected 400 after buy-in, got %d", balResp.Balance.Available)
	}

	// Only the arbiter can start
	if w := do(t, srv, "POST", "/v1/games/"+gameID+"/start", p1Key, nil); w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-arbiter start, got %d", w.Code)
	}
	if w := do(t, srv, "POST", "/v1/games/"+gameID+"/start", arbiterKey, nil); w.Code != http.StatusOK {
		t.Fatalf("start failed: %d %s", w.Code, w.Body.String())
	}

	// Arbiter distributes the full pot; single-hand self-closes
	w = do(t, srv, "POST", "/v1/games/"+gameID+"/distribute", arbiterKey, map[string]any{
		"winner":    testPlayer2,
		"amount":    200,
		"handRank":  6,
		"handLabel": "Full House",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("distribute failed: %d %s", w.Code, w.Body.String())
	}

	w = do(t, srv, "GET", "/v1/players/"+testPlayer2+"/balance", "", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &balResp)
	if balResp.Balance.Available != 600 {
		t.Errorf("expected winner at 600, got %d", balResp.Balance.Available)
	}

	// The record is released after the self-close
	if w := do(t, srv, "GET", "/v1/games/"+gameID, "", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after self-close, got %d", w.Code)
	}

	// Winner cashes out
	if w := do(t, srv, "POST", "/v1/players/withdraw", p2Key, map[string]any{
		"amount": 600, "reference": "wd-1",
	}); w.Code != http.StatusOK {
		t.Errorf("withdraw failed: %d %s", w.Code, w.Body.String())
	}
}

func TestServer_AdminRequiresSecretWhenConfigured(t *testing.T) {
	srv := newTestServer(t)
	apiKey := registerPlayer(t, srv, testArbiter)

	t.Setenv("ADMIN_SECRET", "vault-secret")

	// API key alone no longer suffices
	w := do(t, srv, "POST", "/v1/admin/deposits", apiKey, map[string]any{
		"playerAddr": testPlayer1, "amount": 100, "reference": "dep-x",
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 without admin secret, got %d", w.Code)
	}

	// With the secret header the credit goes through
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(map[string]any{
		"playerAddr": testPlayer1, "amount": 100, "reference": "dep-x",
	})
	req := httptest.NewRequest("POST", "/v1/admin/deposits", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Secret", "vault-secret")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201 with admin secret, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestServer_RequestIDPropagation(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, "GET", "/api", "", nil)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected generated request ID header")
	}

	req := httptest.NewRequest("GET", "/api", nil)
	req.Header.Set("X-Request-ID", "req-from-lb")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "req-from-lb" {
		t.Errorf("expected request ID passthrough, got %q", got)
	}
}
