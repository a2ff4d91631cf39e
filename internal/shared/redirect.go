package shared

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gatehouse-console/gatehouse/internal/backend"
)

// HandleBackendError translates the two non-terminal backend failures into the
// console-wide redirect policy and reports whether it consumed the error. An
// expired or revoked token destroys the operator session before the redirect
// so the cookie cannot be replayed; an unreachable backend parks the operator
// on the offline screen with the original path preserved for the retry loop.
func HandleBackendError(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		if sess := SessionFromContext(r.Context()); sess != nil {
			sess.Destroy()
		}
		http.Redirect(w, r, "/login?code=session_expired&next="+url.QueryEscape(requestPath(r)), http.StatusSeeOther)
		return true
	case errors.Is(err, backend.ErrUnreachable):
		http.Redirect(w, r, "/server-offline?next="+url.QueryEscape(requestPath(r)), http.StatusSeeOther)
		return true
	}
	return false
}

// requestPath keeps the query string so pagination and filters survive a
// relogin round-trip, but never crosses origins.
func requestPath(r *http.Request) string {
	p := r.URL.Path
	if p == "" || p[0] != '/' {
		p = "/"
	}
	if r.URL.RawQuery != "" {
		p += "?" + r.URL.RawQuery
	}
	return p
}

// SafeNext validates an operator-supplied post-login destination. Anything
// that is not a local absolute path falls back to the dashboard.
func SafeNext(next string) string {
	if next == "" || next[0] != '/' {
		return "/home"
	}
	if len(next) > 1 && next[1] == '/' {
		// Protocol-relative URLs escape the origin.
		return "/home"
	}
	return next
}
