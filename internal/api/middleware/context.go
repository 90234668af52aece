package middleware

import (
	"context"
	"net/http"

	"github.com/kiranshivaraju/rpohub/pkg/models"
)

type contextKey string

const (
	callerKey    contextKey = "caller"
	keyPrefixKey contextKey = "key_prefix"
)

func SetCaller(ctx context.Context, caller models.Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// GetCaller returns the authenticated caller. Handlers behind Authenticate
// can rely on it being present.
func GetCaller(r *http.Request) (models.Caller, bool) {
	caller, ok := r.Context().Value(callerKey).(models.Caller)
	return caller, ok
}

func setKeyPrefix(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, keyPrefixKey, prefix)
}

func getKeyPrefix(r *http.Request) (string, bool) {
	prefix, ok := r.Context().Value(keyPrefixKey).(string)
	return prefix, ok
}
