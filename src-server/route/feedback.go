package route

import (
	"encoding/json"
	"lifetrack/src-server/model"
	"lifetrack/src-server/utils"
	"net/http"
	"time"

	"github.com/google/uuid"
)

func Feedback(muxer *http.ServeMux, as *utils.AppState) {
	type CreateFeedbackReqBody struct {
		Message string `json:"message"`
		Rating  int    `json:"rating"`
	}

	muxer.HandleFunc("POST /feedback", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			sessionModel, ok := sessionFromCtx(w, r)
			if !ok {
				return
			}

			var reqBody CreateFeedbackReqBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}

			feedbackModel := model.Feedback{
				ID:        uuid.NewString(),
				UserID:    sessionModel.UserID,
				Message:   reqBody.Message,
				Rating:    reqBody.Rating,
				CreatedAt: time.Now().Unix(),
			}
			startTimer := time.Now()
			if err := feedbackModel.Insert(r.Context(), as.BunDB); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(err.Error()))
				return
			}
			as.MetricChans.DatabaseWrite <- float64(time.Since(startTimer).Microseconds())

			w.WriteHeader(http.StatusOK)
			w.Write([]byte(feedbackModel.ID))
		}))

	type OneFeedbackRespBody struct {
		ID        string `json:"id"`
		Message   string `json:"message"`
		Rating    int    `json:"rating"`
		CreatedAt int64  `json:"createdAt"`
	}

	muxer.HandleFunc("GET /feedback", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			sessionModel, ok := sessionFromCtx(w, r)
			if !ok {
				return
			}
			w.Header().Set("Content-Type", "application/json")

			var feedbacks []model.Feedback
			startTimer := time.Now()
			if err := as.BunDB.NewSelect().
				Model(&feedbacks).
				Where("user_id = ?", sessionModel.UserID).
				Order("created_at DESC").
				Scan(r.Context()); err != nil {
				writeServiceErr(w, as, err)
				return
			}
			as.MetricChans.DatabaseRead <- float64(time.Since(startTimer).Microseconds())

			respBody := make([]OneFeedbackRespBody, 0, len(feedbacks))
			for _, f := range feedbacks {
				respBody = append(respBody, OneFeedbackRespBody{
					ID:        f.ID,
					Message:   f.Message,
					Rating:    f.Rating,
					CreatedAt: f.CreatedAt,
				})
			}
			writeJSON(w, respBody)
		}))
}
