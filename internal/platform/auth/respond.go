package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/commerce-blocks/guest-orders/internal/platform/httpx"
)

// Logger captures the minimal logging contract used by the auth package.
type Logger interface {
	Printf(format string, args ...any)
}

// denial is a rejected verification attempt, carried from the validators to
// the middleware layer that writes the response.
type denial struct {
	status  int
	code    string
	message string
	reason  string
}

func deny(status int, code, message, reason string) *denial {
	return &denial{status: status, code: code, message: message, reason: reason}
}

func writeAuthError(ctx context.Context, w http.ResponseWriter, d *denial) {
	if d == nil {
		return
	}
	httpx.WriteError(ctx, w, httpx.NewError(d.code, d.message, d.status))
}

func extractBearerToken(header string) (string, bool) {
	const prefix = "bearer "
	header = strings.TrimSpace(header)
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
