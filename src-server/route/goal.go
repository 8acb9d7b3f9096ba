package route

import (
	"database/sql"
	"encoding/json"
	"errors"
	"lifetrack/src-server/model"
	"lifetrack/src-server/utils"
	"net/http"
	"time"

	"github.com/google/uuid"
)

func Goal(muxer *http.ServeMux, as *utils.AppState) {
	type OneGoalRespBody struct {
		ID          string              `json:"id"`
		Title       string              `json:"title"`
		Description string              `json:"description,omitempty"`
		Category    model.BlockCategory `json:"category"`

		TargetValue  float64 `json:"targetValue,omitempty"`
		CurrentValue float64 `json:"currentValue"`
		Unit         string  `json:"unit,omitempty"`
		Completed    bool    `json:"completed"`

		Streak           int    `json:"streak"`
		LastProgressDate string `json:"lastProgressDate,omitempty"`
	}

	goalToRespBody := func(g model.Goal) OneGoalRespBody {
		return OneGoalRespBody{
			ID:               g.ID,
			Title:            g.Title,
			Description:      g.Description,
			Category:         g.Category,
			TargetValue:      g.TargetValue,
			CurrentValue:     g.CurrentValue,
			Unit:             g.Unit,
			Completed:        g.Completed,
			Streak:           g.Streak,
			LastProgressDate: g.LastProgressDate,
		}
	}

	muxer.HandleFunc("GET /goals", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			sessionModel, ok := sessionFromCtx(w, r)
			if !ok {
				return
			}
			w.Header().Set("Content-Type", "application/json")

			var goals []model.Goal
			startTimer := time.Now()
			if err := as.BunDB.NewSelect().
				Model(&goals).
				Where("user_id = ?", sessionModel.UserID).
				Order("created_at ASC").
				Scan(r.Context()); err != nil {
				writeServiceErr(w, as, err)
				return
			}
			as.MetricChans.DatabaseRead <- float64(time.Since(startTimer).Microseconds())

			respBody := make([]OneGoalRespBody, 0, len(goals))
			for _, g := range goals {
				respBody = append(respBody, goalToRespBody(g))
			}
			writeJSON(w, respBody)
		}))

	type CreateGoalReqBody struct {
		Title       string              `json:"title"`
		Description string              `json:"description"`
		Category    model.BlockCategory `json:"category"`
		TargetValue float64             `json:"targetValue"`
		Unit        string              `json:"unit"`
	}

	muxer.HandleFunc("POST /goals", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			sessionModel, ok := sessionFromCtx(w, r)
			if !ok {
				return
			}
			w.Header().Set("Content-Type", "application/json")

			var reqBody CreateGoalReqBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}

			goalModel := model.Goal{
				ID:          uuid.NewString(),
				UserID:      sessionModel.UserID,
				Title:       utils.CleanupString(reqBody.Title),
				Description: reqBody.Description,
				Category:    reqBody.Category,
				TargetValue: reqBody.TargetValue,
				Unit:        reqBody.Unit,
				CreatedAt:   time.Now().Unix(),
				UpdatedAt:   time.Now().Unix(),
			}
			startTimer := time.Now()
			if err := goalModel.Upsert(r.Context(), as.BunDB); err != nil {
				writeServiceErr(w, as, err)
				return
			}
			as.MetricChans.DatabaseWrite <- float64(time.Since(startTimer).Microseconds())

			writeJSON(w, goalToRespBody(goalModel))
		}))

	type ProgressReqBody struct {
		Value float64 `json:"value"`
		Date  string  `json:"date"`
	}

	// record a progress reading; the streak only moves when readings land on
	// consecutive days
	muxer.HandleFunc("PUT /goals/{id}/progress", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			sessionModel, ok := sessionFromCtx(w, r)
			if !ok {
				return
			}
			w.Header().Set("Content-Type", "application/json")

			var reqBody ProgressReqBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}
			if reqBody.Date == "" {
				reqBody.Date = time.Now().In(as.Config.GetLocation()).Format("2006-01-02")
			}

			goalModel := new(model.Goal)
			startTimer := time.Now()
			switch err := as.BunDB.NewSelect().
				Model(goalModel).
				Where("id = ?", r.PathValue("id")).
				Where("user_id = ?", sessionModel.UserID).
				Scan(r.Context()); {
			case errors.Is(err, sql.ErrNoRows):
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte("Goal not found"))
				return
			case err != nil:
				writeServiceErr(w, as, err)
				return
			}
			as.MetricChans.DatabaseRead <- float64(time.Since(startTimer).Microseconds())

			if err := goalModel.ApplyProgress(reqBody.Value, reqBody.Date); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(err.Error()))
				return
			}
			startTimer = time.Now()
			if err := goalModel.Upsert(r.Context(), as.BunDB); err != nil {
				writeServiceErr(w, as, err)
				return
			}
			as.MetricChans.DatabaseWrite <- float64(time.Since(startTimer).Microseconds())

			writeJSON(w, goalToRespBody(*goalModel))
		}))

	muxer.HandleFunc("DELETE /goals/{id}", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			sessionModel, ok := sessionFromCtx(w, r)
			if !ok {
				return
			}

			startTimer := time.Now()
			result, err := as.BunDB.NewDelete().
				Model((*model.Goal)(nil)).
				Where("id = ?", r.PathValue("id")).
				Where("user_id = ?", sessionModel.UserID).
				Exec(r.Context())
			if err != nil {
				writeServiceErr(w, as, err)
				return
			}
			as.MetricChans.DatabaseWrite <- float64(time.Since(startTimer).Microseconds())

			if affected, err := result.RowsAffected(); err == nil && affected == 0 {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte("Goal not found"))
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
}
