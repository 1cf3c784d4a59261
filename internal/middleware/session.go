package middleware

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// The quiz has no accounts: a session is just an opaque ID minted on
// first contact and carried in a signed cookie, so one browser maps to
// one resumable run without any login.

const cookieName = "quiz_session"

type Manager struct {
	secret []byte
}

func NewManager(secret string) *Manager {
	return &Manager{secret: []byte(secret)}
}

// Session attaches a session ID to every request, issuing a fresh one
// when the cookie is absent, expired, or fails signature verification.
func (m *Manager) Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid, ok := m.verify(r)
		if !ok {
			sid = uuid.NewString()
			token, err := m.sign(sid)
			if err != nil {
				log.Printf("WARN: [session] sign token: %v", err)
			} else {
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
					MaxAge:   int((30 * 24 * time.Hour).Seconds()),
				})
			}
		}

		ctx := context.WithValue(r.Context(), "session_id", sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionID extracts the session ID the middleware stored on the request.
func SessionID(r *http.Request) (string, bool) {
	sid, ok := r.Context().Value("session_id").(string)
	return sid, ok && sid != ""
}

func (m *Manager) verify(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return "", false
	}

	token, err := jwt.Parse(cookie.Value, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return "", false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}
	sid, ok := claims["sid"].(string)
	return sid, ok && sid != ""
}

func (m *Manager) sign(sid string) (string, error) {
	claims := jwt.MapClaims{
		"sid": sid,
		"exp": time.Now().Add(30 * 24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}
