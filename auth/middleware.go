package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jonwraymond/focusops/observe"
)

// Middleware authenticates every request with a. A nil authenticator
// disables auth and attaches AnonymousIdentity. Failures get 401 with a
// JSON body; internal authenticator errors get 500.
func Middleware(a Authenticator, log observe.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = observe.NopLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if a == nil {
				next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, AnonymousIdentity())))
				return
			}

			res, err := a.Authenticate(ctx, NewRequest(r))
			if err != nil {
				log.Error(ctx, "authentication error", observe.Err(err), observe.String("path", r.URL.Path))
				writeError(w, http.StatusInternalServerError, "internal_error", "authentication unavailable")
				return
			}
			if res.Authenticated && res.Identity.IsExpired(time.Now()) {
				res = Failure(ErrTokenExpired, res.Method)
			}
			if !res.Authenticated {
				log.Warn(ctx, "authentication failed",
					observe.String("path", r.URL.Path),
					observe.String("method", string(res.Method)),
					observe.String("remote", r.RemoteAddr),
					observe.Err(res.Err))
				w.Header().Set("WWW-Authenticate", `Bearer realm="focusops"`)
				writeError(w, http.StatusUnauthorized, "unauthorized", errMessage(res.Err))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, res.Identity)))
		})
	}
}

func errMessage(err error) string {
	if err == nil {
		return ErrMissingCredentials.Error()
	}
	return err.Error()
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": msg})
}
