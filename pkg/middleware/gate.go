package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"purrform/pkg/role"
	"purrform/pkg/session"
)

var publicRoutes = map[string]struct{}{
	role.LoginPath:              {},
	role.HomePath:               {},
	role.BreederCertificatePath: {},
}

var (
	assetPrefixes = []string{"/api", "/_next/static", "/_next/image"}
	assetSuffixes = []string{".png"}
)

// Decision is the gate verdict for one request. An empty Redirect means pass.
type Decision struct {
	Redirect string
}

func (d Decision) Pass() bool {
	return d.Redirect == ""
}

func pass() Decision { return Decision{} }

func redirect(target string) Decision { return Decision{Redirect: target} }

func IsPublic(path string) bool {
	_, ok := publicRoutes[path]
	return ok
}

// IsAsset reports paths the gate never evaluates.
func IsAsset(path string) bool {
	for _, p := range assetPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	for _, s := range assetSuffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}

// Decide maps a request path and the session role (hasRole false when there
// is no valid session) to pass or a redirect. Rules run in order and the
// first redirect wins.
func Decide(path string, rl role.Role, hasRole bool) Decision {
	if !IsPublic(path) {
		if !hasRole {
			return redirect(role.LoginPath)
		}
		if !rl.Permits(path) {
			return redirect(rl.Landing())
		}
		return pass()
	}

	// Signed-in users are kept off the login and home pages. This also
	// covers the home page on its own, as "/" contains neither segment.
	if hasRole &&
		!strings.Contains(path, role.DashboardPath) &&
		!strings.Contains(path, role.BreederCertificatePath) {
		return redirect(rl.Landing())
	}

	return pass()
}

// Gate enforces Decide on every non-asset request. It wraps the whole
// router so unmatched paths are gated too.
func Gate(sessions *session.Manager, logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if IsAsset(path) {
				next.ServeHTTP(w, r)
				return
			}

			rl, ok := sessions.Bind(w, r).Role()
			d := Decide(path, rl, ok)
			if !d.Pass() {
				logger.Debug("gate redirect", "path", path, "role", rl, "target", d.Redirect)
				http.Redirect(w, r, d.Redirect, http.StatusTemporaryRedirect)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
