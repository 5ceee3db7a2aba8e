package ctxutil

import (
	"context"
	"time"

	"github.com/Spok95/lms-points/internal/models"
)

// приватные ключи, чтобы исключить коллизии
type key int

const (
	keyUserID key = iota
	keyRole
)

// WithUserID /UserID: id пользователя из проверенного токена
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, keyUserID, userID)
}

func UserID(ctx context.Context) (int64, bool) {
	v := ctx.Value(keyUserID)
	if v == nil {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// WithRole /Role: роль из того же токена
func WithRole(ctx context.Context, role models.Role) context.Context {
	return context.WithValue(ctx, keyRole, role)
}

func Role(ctx context.Context) (models.Role, bool) {
	v := ctx.Value(keyRole)
	if v == nil {
		return "", false
	}
	r, ok := v.(models.Role)
	return r, ok
}

// CanAccessUser: свой профиль или роль с правами управления.
func CanAccessUser(ctx context.Context, userID int64) bool {
	if id, ok := UserID(ctx); ok && id == userID {
		return true
	}
	r, ok := Role(ctx)
	return ok && r.CanManage()
}

var (
	DefaultDBTimeout = 5 * time.Second
)

// WithDBTimeout: стандартный таймаут для БД.
func WithDBTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if dl, ok := parent.Deadline(); ok {
		// если у родителя осталось меньше DefaultDBTimeout: берем остаток
		remain := time.Until(dl)
		if remain < DefaultDBTimeout {
			return context.WithTimeout(parent, remain)
		}
	}
	return context.WithTimeout(parent, DefaultDBTimeout)
}
