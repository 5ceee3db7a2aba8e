package app

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Spok95/lms-points/internal/ctxutil"
	"github.com/Spok95/lms-points/internal/models"
)

var errBadToken = errors.New("invalid token")

// Токены выпускает внешний бэкенд авторизации: HS256, sub = id пользователя, role.
type accessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func parseToken(secret []byte, raw string) (int64, models.Role, error) {
	var c accessClaims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", errBadToken, err)
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", fmt.Errorf("%w: bad subject %q", errBadToken, c.Subject)
	}
	role := models.Role(c.Role)
	if !role.Valid() {
		return 0, "", fmt.Errorf("%w: unknown role %q", errBadToken, c.Role)
	}
	return id, role, nil
}

// bearerToken: заголовок Authorization; для websocket браузер заголовок
// не передаёт, там токен приходит параметром access_token.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	if strings.HasSuffix(r.URL.Path, "/ws") {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		id, role, err := parseToken(s.jwtSecret, raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := ctxutil.WithRole(ctxutil.WithUserID(r.Context(), id), role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if role, ok := ctxutil.Role(r.Context()); !ok || !role.CanManage() {
			writeError(w, http.StatusForbidden, "instructor, admin or staff role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
