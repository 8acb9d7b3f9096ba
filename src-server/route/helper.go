package route

import (
	"encoding/json"
	"errors"
	"lifetrack/src-server/model"
	"lifetrack/src-server/schedule"
	"lifetrack/src-server/utils"
	"log/slog"
	"net/http"
)

// sessionFromCtx pulls the session the auth middleware injected.
func sessionFromCtx(w http.ResponseWriter, r *http.Request) (*model.Session, bool) {
	sessionModel, ok := r.Context().Value(SessionCtxKey).(*model.Session)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Can't get session from middleware"))
		return nil, false
	}
	return sessionModel, true
}

// writeServiceErr maps the schedule error taxonomy onto status codes;
// anything unclassified is a 500 with detail suppressed outside dev mode.
func writeServiceErr(w http.ResponseWriter, as *utils.AppState, err error) {
	var validationErr *schedule.ValidationError
	var notFoundErr *schedule.NotFoundError
	switch {
	case errors.As(err, &validationErr):
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(validationErr.Msg))
	case errors.As(err, &notFoundErr):
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(notFoundErr.Msg))
	default:
		slog.Error("request failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		if as.Config.GetDevMode() {
			w.Write([]byte(err.Error()))
			return
		}
		w.Write([]byte("Internal Server Error"))
	}
}

func writeJSON(w http.ResponseWriter, body interface{}) {
	raw, err := json.Marshal(body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Can't marshal response body"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}
