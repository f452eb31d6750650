package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func callWithToken(t *testing.T, configured, sent string) int {
	t.Helper()
	handler := TriggerAuthMiddleware(configured)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/digest/run", nil)
	if sent != "" {
		req.Header.Set("Authorization", "Bearer "+sent)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestTriggerAuthMiddleware(t *testing.T) {
	if code := callWithToken(t, "secret", "secret"); code != http.StatusOK {
		t.Fatalf("ожидали 200 с верным токеном, получили %d", code)
	}
	if code := callWithToken(t, "secret", "wrong"); code != http.StatusUnauthorized {
		t.Fatalf("ожидали 401 с неверным токеном, получили %d", code)
	}
	if code := callWithToken(t, "secret", ""); code != http.StatusUnauthorized {
		t.Fatalf("ожидали 401 без токена, получили %d", code)
	}
	if code := callWithToken(t, "", ""); code != http.StatusOK {
		t.Fatalf("ожидали 200 при отключённой проверке, получили %d", code)
	}
}
