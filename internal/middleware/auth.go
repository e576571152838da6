// Package middleware содержит HTTP middleware для сервиса комплектования.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/mmeshcher/acquisitions/internal/permission"
)

type contextKey string

const actorKey contextKey = "actor"

const (
	authCookieName = "auth_token"
	authCookieTTL  = 24 * time.Hour
)

// Названия ролей в cookie.
const (
	RolePatron          = "patron"
	RoleLibrarian       = "librarian"
	RoleSystemLibrarian = "system_librarian"
	RoleAdmin           = "admin"
)

type claims struct {
	UserID         string   `json:"uid"`
	Role           string   `json:"role"`
	OrganisationID string   `json:"org,omitempty"`
	Libraries      []string `json:"libs,omitempty"`
}

// AuthMiddleware восстанавливает пользователя из подписанного cookie.
type AuthMiddleware struct {
	secretKey []byte
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом.
// Без ключа генерируется случайный, и cookie живут до перезапуска процесса.
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

// Middleware кладёт пользователя из cookie в контекст запроса.
// Запрос без cookie или с неверной подписью выполняется от имени анонима.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := permission.Actor{Role: permission.Anonymous{}}

		if cookie, err := r.Cookie(authCookieName); err == nil {
			if parsed, ok := a.parseCookie(cookie.Value); ok {
				actor = parsed
			}
		}

		ctx := context.WithValue(r.Context(), actorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetActorCookie устанавливает cookie авторизации для пользователя.
func (a *AuthMiddleware) SetActorCookie(w http.ResponseWriter, actor permission.Actor) error {
	value, err := a.sign(actor)
	if err != nil {
		return err
	}

	cookie := &http.Cookie{
		Name:     authCookieName,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(authCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
	return nil
}

func (a *AuthMiddleware) sign(actor permission.Actor) (string, error) {
	c := claims{UserID: actor.UserID}
	switch role := actor.Role.(type) {
	case permission.Patron:
		c.Role = RolePatron
		c.OrganisationID = role.OrganisationID
	case permission.Librarian:
		c.Role = RoleLibrarian
		c.OrganisationID = role.OrganisationID
		c.Libraries = role.Libraries
	case permission.SystemLibrarian:
		c.Role = RoleSystemLibrarian
		c.OrganisationID = role.OrganisationID
	case permission.Admin:
		c.Role = RoleAdmin
	default:
		c.Role = ""
	}

	data, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	payload := base64.RawURLEncoding.EncodeToString(data)
	return payload + "." + a.signature(payload), nil
}

func (a *AuthMiddleware) signature(payload string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *AuthMiddleware) parseCookie(cookieValue string) (permission.Actor, bool) {
	payload, signature, found := strings.Cut(cookieValue, ".")
	if !found {
		return permission.Actor{}, false
	}

	if !hmac.Equal([]byte(signature), []byte(a.signature(payload))) {
		return permission.Actor{}, false
	}

	data, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return permission.Actor{}, false
	}
	var c claims
	if err := json.Unmarshal(data, &c); err != nil {
		return permission.Actor{}, false
	}

	actor := permission.Actor{UserID: c.UserID}
	switch c.Role {
	case RolePatron:
		actor.Role = permission.Patron{OrganisationID: c.OrganisationID}
	case RoleLibrarian:
		actor.Role = permission.Librarian{OrganisationID: c.OrganisationID, Libraries: c.Libraries}
	case RoleSystemLibrarian:
		actor.Role = permission.SystemLibrarian{OrganisationID: c.OrganisationID}
	case RoleAdmin:
		actor.Role = permission.Admin{}
	default:
		actor.Role = permission.Anonymous{}
	}
	return actor, true
}

// GetActorFromContext извлекает пользователя из контекста запроса.
// Без middleware возвращается аноним.
func GetActorFromContext(ctx context.Context) permission.Actor {
	actor, ok := ctx.Value(actorKey).(permission.Actor)
	if !ok {
		return permission.Actor{Role: permission.Anonymous{}}
	}
	return actor
}
