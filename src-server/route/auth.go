package route

import (
	"database/sql"
	"encoding/json"
	"errors"
	"lifetrack/src-server/model"
	"lifetrack/src-server/utils"
	"net/http"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func Auth(muxer *http.ServeMux, as *utils.AppState) {
	type RegisterReqBody struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}

	muxer.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		var reqBody RegisterReqBody
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid request body"))
			return
		}
		if _, err := mail.ParseAddress(reqBody.Email); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Please provide a valid email address"))
			return
		}
		if len(reqBody.Password) < 8 {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Password must be at least 8 characters"))
			return
		}

		startTimer := time.Now()
		exists, err := as.BunDB.NewSelect().
			Model((*model.User)(nil)).
			Where("email = ?", reqBody.Email).
			Exists(r.Context())
		if err != nil {
			writeServiceErr(w, as, err)
			return
		}
		as.MetricChans.DatabaseRead <- float64(time.Since(startTimer).Microseconds())
		if exists {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte("An account with this email already exists"))
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(reqBody.Password), bcrypt.DefaultCost)
		if err != nil {
			writeServiceErr(w, as, err)
			return
		}
		userModel := model.User{
			ID:           uuid.NewString(),
			Email:        reqBody.Email,
			Name:         reqBody.Name,
			PasswordHash: hash,
			CreatedAt:    time.Now().Unix(),
		}
		startTimer = time.Now()
		if err := userModel.Upsert(r.Context(), as.BunDB); err != nil {
			writeServiceErr(w, as, err)
			return
		}
		as.MetricChans.DatabaseWrite <- float64(time.Since(startTimer).Microseconds())

		issueSession(w, r, as, userModel.ID)
	})

	type LoginReqBody struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	muxer.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var reqBody LoginReqBody
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid request body"))
			return
		}

		userModel := new(model.User)
		startTimer := time.Now()
		switch err := as.BunDB.NewSelect().
			Model(userModel).
			Where("email = ?", reqBody.Email).
			Scan(r.Context()); {
		case errors.Is(err, sql.ErrNoRows):
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Wrong email or password"))
			return
		case err != nil:
			writeServiceErr(w, as, err)
			return
		}
		as.MetricChans.DatabaseRead <- float64(time.Since(startTimer).Microseconds())

		if bcrypt.CompareHashAndPassword(userModel.PasswordHash, []byte(reqBody.Password)) != nil {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Wrong email or password"))
			return
		}

		issueSession(w, r, as, userModel.ID)
	})

	muxer.HandleFunc("POST /auth/logout", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			sessionModel, ok := sessionFromCtx(w, r)
			if !ok {
				return
			}
			if _, err := as.BunDB.NewDelete().
				Model((*model.Session)(nil)).
				Where("secret = ?", sessionModel.Secret).
				Exec(r.Context()); err != nil {
				writeServiceErr(w, as, err)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     SessionSecretCookieName,
				Value:    "",
				Path:     "/",
				MaxAge:   -1,
				HttpOnly: true,
			})
			w.WriteHeader(http.StatusOK)
		}))
}

// issueSession creates a session row and sets the session-secret cookie. The
// secret is also echoed in the body for non-browser clients, which send it
// back as a bearer token.
func issueSession(w http.ResponseWriter, r *http.Request, as *utils.AppState, userID string) {
	sessionModel := model.Session{
		Secret:           uuid.NewString(),
		UserID:           userID,
		CreatedAtUnixUTC: time.Now().UTC().Unix(),
	}
	startTimer := time.Now()
	if err := sessionModel.Upsert(r.Context(), as.BunDB); err != nil {
		writeServiceErr(w, as, err)
		return
	}
	as.MetricChans.DatabaseWrite <- float64(time.Since(startTimer).Microseconds())

	http.SetCookie(w, &http.Cookie{
		Name:     SessionSecretCookieName,
		Value:    sessionModel.Secret,
		Path:     "/",
		MaxAge:   int(as.Config.GetSessionExpire().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(sessionModel.Secret))
}
