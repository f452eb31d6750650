package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"net/http"
	"strings"
)

// TriggerAuthMiddleware проверяет общий токен для ручного запуска цикла.
// Сравнение выполняется по SHA-256 за константное время. Пустой токен в
// конфиге отключает проверку (локальная разработка).
func TriggerAuthMiddleware(token string) func(http.Handler) http.Handler {
	expected := sha256.Sum256([]byte(token))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if got == "" {
				WriteError(w, http.StatusUnauthorized, errors.New("токен отсутствует"))
				return
			}
			sum := sha256.Sum256([]byte(got))
			if !hmac.Equal(sum[:], expected[:]) {
				WriteError(w, http.StatusUnauthorized, errors.New("токен недействителен"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
