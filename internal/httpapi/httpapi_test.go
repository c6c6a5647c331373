package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/254Kioko/chemist-mgs/internal/domain"
	"github.com/254Kioko/chemist-mgs/internal/events"
	"github.com/254Kioko/chemist-mgs/internal/notify"
	"github.com/254Kioko/chemist-mgs/internal/service"
	"github.com/254Kioko/chemist-mgs/internal/store/memory"
)

const testSecret = "test-secret-that-is-long-enough-32"

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	repo := memory.NewSeeded()
	svc := service.New(repo, notify.NewDispatcher(nil), events.NoopSink{}, nil)
	auth := NewAuthManager(testSecret, time.Hour)
	api := New(svc, auth, "*")
	return api.Handler()
}

func doJSON(t *testing.T, handler http.Handler, method string, path string, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, handler http.Handler, username string, password string) domain.LoginResponse {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{
		Username: username,
		Password: password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s failed: status %d body %s", username, rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestHandler(t)
	rec := doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestLoginIssuesRoleToken(t *testing.T) {
	handler := newTestHandler(t)

	resp := login(t, handler, "admin", "admin123")
	if resp.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %s", resp.Role)
	}
	if resp.AccessToken == "" {
		t.Fatalf("expected a token")
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{
		Username: "admin",
		Password: "wrongpass",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", rec.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	handler := newTestHandler(t)

	var last int
	for i := 0; i < 6; i++ {
		rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{
			Username: "admin",
			Password: "wrongpass",
		})
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after repeated attempts, got %d", last)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	handler := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/medicines", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/medicines", "not-a-real-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with garbage token, got %d", rec.Code)
	}
}

func TestRoleGatesOnRoutes(t *testing.T) {
	handler := newTestHandler(t)
	cashier := login(t, handler, "cashier", "cashier123")

	// Settings routes are admin-only at the router level.
	rec := doJSON(t, handler, http.MethodGet, "/api/v1/settings", cashier.AccessToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier on settings, got %d", rec.Code)
	}

	// Suppliers are readable but not creatable for cashiers; the policy
	// layer denies the write.
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/suppliers", cashier.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for cashier supplier list, got %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/suppliers", cashier.AccessToken, domain.SupplierCreateRequest{Name: "Rogue"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier supplier create, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "not permitted") {
		t.Fatalf("authorization failure should stay generic, got %s", rec.Body.String())
	}
}

func TestCheckoutOverHTTP(t *testing.T) {
	handler := newTestHandler(t)
	cashier := login(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/medicines", cashier.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list medicines: %d", rec.Code)
	}
	var listing struct {
		Medicines []domain.Medicine `json:"medicines"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode medicines: %v", err)
	}
	if len(listing.Medicines) == 0 {
		t.Fatalf("seeded store should list medicines")
	}
	med := listing.Medicines[0]

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/checkout", cashier.AccessToken, domain.CheckoutRequest{
		CartLines:     []domain.CartLine{{MedicineID: med.ID, Qty: 2}},
		PaymentMethod: domain.PaymentCash,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout status %d body %s", rec.Code, rec.Body.String())
	}

	var resp domain.CheckoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode checkout response: %v", err)
	}
	wantPrefix := fmt.Sprintf("SALE-%s-", time.Now().UTC().Format("20060102"))
	if !strings.HasPrefix(resp.Sale.SaleNumber, wantPrefix) {
		t.Fatalf("sale number %s should start with %s", resp.Sale.SaleNumber, wantPrefix)
	}
	if resp.Sale.TotalAmountCents != 2*med.UnitPriceCents {
		t.Fatalf("wrong total: %d", resp.Sale.TotalAmountCents)
	}

	// Insufficient stock maps to 409 and names the item.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/checkout", cashier.AccessToken, domain.CheckoutRequest{
		CartLines:     []domain.CartLine{{MedicineID: med.ID, Qty: 1_000_000}},
		PaymentMethod: domain.PaymentCash,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for oversized cart, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), med.Name) {
		t.Fatalf("conflict body should name the item: %s", rec.Body.String())
	}

	// Empty cart maps to 400.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/checkout", cashier.AccessToken, domain.CheckoutRequest{
		PaymentMethod: domain.PaymentCash,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty cart, got %d", rec.Code)
	}
}

func TestUnknownSaleReturns404(t *testing.T) {
	handler := newTestHandler(t)
	admin := login(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/sales/sale-does-not-exist", admin.AccessToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	handler := newTestHandler(t)
	admin := login(t, handler, "admin", "admin123")

	phone := "+254700000009"
	threshold := 25
	rec := doJSON(t, handler, http.MethodPatch, "/api/v1/settings", admin.AccessToken, domain.SettingsUpdateRequest{
		AlertPhone:        &phone,
		LowStockThreshold: &threshold,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("settings patch: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/settings", admin.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("settings get: %d", rec.Code)
	}
	var wrapper struct {
		Settings domain.Settings `json:"settings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &wrapper); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if wrapper.Settings.AlertPhone != phone || wrapper.Settings.LowStockThreshold != threshold {
		t.Fatalf("settings did not round trip: %+v", wrapper.Settings)
	}
}

func TestCredentialUpdateOverHTTP(t *testing.T) {
	handler := newTestHandler(t)
	admin := login(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/users/credentials", admin.AccessToken, domain.CredentialUpdateRequest{
		OldUsername: "cashier",
		NewUsername: "tellerone",
		NewPassword: "fresh-secret-9",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("credential update: %d %s", rec.Code, rec.Body.String())
	}

	resp := login(t, handler, "tellerone", "fresh-secret-9")
	if resp.Role != domain.RoleCashier {
		t.Fatalf("expected cashier role after rename, got %s", resp.Role)
	}
}

func TestBodyCapHoldsWithoutContentType(t *testing.T) {
	handler := newTestHandler(t)

	// Valid JSON just over the cap; without the cap it would decode and
	// fail authentication with a 401 instead.
	payload := fmt.Sprintf(`{"username":%q,"password":"x"}`, strings.Repeat("a", 1<<20+1024))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized body, got %d", rec.Code)
	}
}

func TestAttemptLimiterDropsIdleKeys(t *testing.T) {
	limiter := newAttemptLimiter(3, 5*time.Millisecond)

	if !limiter.Allow("first") {
		t.Fatalf("first attempt should pass")
	}
	time.Sleep(10 * time.Millisecond)
	if !limiter.Allow("second") {
		t.Fatalf("second attempt should pass")
	}

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	if _, stale := limiter.entries["first"]; stale {
		t.Fatalf("expired key should have been pruned")
	}
	if len(limiter.entries) != 1 {
		t.Fatalf("expected 1 live key, got %d", len(limiter.entries))
	}
}

func TestTokenRejectedWhenSignedWithOtherSecret(t *testing.T) {
	handler := newTestHandler(t)

	other := NewAuthManager("another-secret-also-32-chars-long!", time.Hour)
	forged, err := other.IssueToken(domain.Actor{Username: "admin", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("issue forged token: %v", err)
	}

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/medicines", forged.AccessToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for token signed with a different secret, got %d", rec.Code)
	}
}
