package route

import (
	"context"
	"lifetrack/src-server/model"
	"lifetrack/src-server/utils"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type SessionCtxKeyType string

const (
	SessionCtxKey           SessionCtxKeyType = "session"
	SessionSecretCookieName string            = "session-secret"
)

func AuthMiddleware(as *utils.AppState, next func(http.ResponseWriter, *http.Request)) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		// extract session secret from cookies, falling back to a bearer token
		sessionSecret := func() string {
			sessionCookie, err := r.Cookie(SessionSecretCookieName)
			if err == nil {
				return strings.TrimSpace(sessionCookie.Value)
			}
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			}
			return ""
		}()
		if sessionSecret == "" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Session secret not provided"))
			return
		}

		startTimer := time.Now()
		sessionModel := new(model.Session)
		if err := as.BunDB.
			NewSelect().
			Model(sessionModel).
			Where("secret = ?", sessionSecret).
			Scan(r.Context()); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Session secret not found"))
			return
		}
		as.MetricChans.DatabaseReadForAuthMiddleware <- float64(time.Since(startTimer).Microseconds())

		if time.Unix(sessionModel.CreatedAtUnixUTC, 0).UTC().
			Add(as.Config.GetSessionExpire()).Before(time.Now()) {
			if _, err := as.BunDB.
				NewDelete().
				Model((*model.Session)(nil)).
				Where("secret = ?", sessionSecret).
				Exec(r.Context()); err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Can't delete session model in DB"))
				slog.Error("can't delete session model in DB", "error", err)
				return
			}

			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Session expired"))
			return
		}

		ctx := context.WithValue(r.Context(), SessionCtxKey, sessionModel)
		next(w, r.WithContext(ctx))
	}
}
