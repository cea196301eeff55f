package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"
)

type contextKey string

const staffLoginKey contextKey = "staffLogin"

const (
	sessionCookieName = "staff_session"
	sessionCookieTTL  = 30 * 24 * time.Hour
)

// AuthMiddleware выполняет проверку сессии персонала по подписанному cookie.
type AuthMiddleware struct {
	secretKey []byte
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
	}
}

// Middleware проверяет cookie сессии и добавляет логин сотрудника в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		login, ok := a.parseCookie(cookie.Value)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), staffLoginKey, login)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetSessionCookie устанавливает cookie сессии для указанного логина.
func (a *AuthMiddleware) SetSessionCookie(w http.ResponseWriter, login string) {
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    a.signLogin(login),
		Path:     "/",
		Expires:  time.Now().Add(sessionCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

func (a *AuthMiddleware) signLogin(login string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(login))
	signature := mac.Sum(nil)
	return hex.EncodeToString([]byte(login)) + "." + hex.EncodeToString(signature)
}

func (a *AuthMiddleware) parseCookie(cookieValue string) (string, bool) {
	parts := strings.Split(cookieValue, ".")
	if len(parts) != 2 {
		return "", false
	}

	loginRaw, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", false
	}
	login := string(loginRaw)

	expected := a.signLogin(login)
	expectedParts := strings.Split(expected, ".")
	if len(expectedParts) != 2 {
		return "", false
	}

	if !hmac.Equal([]byte(parts[1]), []byte(expectedParts[1])) {
		return "", false
	}

	return login, true
}

// GetStaffLoginFromContext извлекает логин сотрудника из контекста запроса.
func GetStaffLoginFromContext(ctx context.Context) (string, bool) {
	login, ok := ctx.Value(staffLoginKey).(string)
	return login, ok
}
