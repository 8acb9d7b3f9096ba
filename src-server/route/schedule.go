package route

import (
	"database/sql"
	"encoding/json"
	"errors"
	"lifetrack/src-server/model"
	"lifetrack/src-server/recurrence"
	"lifetrack/src-server/schedule"
	"lifetrack/src-server/utils"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

func Schedule(muxer *http.ServeMux, as *utils.AppState) {
	type OneScheduleRespBody struct {
		ID     string          `json:"id,omitempty"`
		UserID string          `json:"userId"`
		Date   string          `json:"date"`
		Blocks model.BlockList `json:"blocks"`
	}

	// get one day's schedule, persisted blocks merged with lazily computed
	// recurring occurrences
	muxer.HandleFunc("GET /schedule/{date}", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			sessionModel, ok := sessionFromCtx(w, r)
			if !ok {
				return
			}
			w.Header().Set("Content-Type", "application/json")

			startTimer := time.Now()
			result, err := schedule.GetForDate(r.Context(), as.BunDB, sessionModel.UserID, r.PathValue("date"))
			if err != nil {
				writeServiceErr(w, as, err)
				return
			}
			as.MetricChans.DatabaseRead <- float64(time.Since(startTimer).Microseconds())

			writeJSON(w, OneScheduleRespBody{
				ID:     result.ID,
				UserID: result.UserID,
				Date:   result.Date,
				Blocks: result.Blocks,
			})
		}))

	type UpsertScheduleReqBody struct {
		Date   string          `json:"date"`
		Blocks model.BlockList `json:"blocks"`
	}

	// upsert one day's document wholesale, the success response is the
	// document ID
	muxer.HandleFunc("POST /schedule", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			sessionModel, ok := sessionFromCtx(w, r)
			if !ok {
				return
			}

			var reqBody UpsertScheduleReqBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}
			if !recurrence.ValidDate(reqBody.Date) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Please provide a date in YYYY-MM-DD format"))
				return
			}

			// keep the existing document id when the date already has one
			docID := uuid.NewString()
			existing := new(model.Schedule)
			startTimer := time.Now()
			switch err := as.BunDB.NewSelect().
				Model(existing).
				Where("user_id = ?", sessionModel.UserID).
				Where("date = ?", reqBody.Date).
				Scan(r.Context()); {
			case err == nil:
				docID = existing.ID
			case !errors.Is(err, sql.ErrNoRows):
				writeServiceErr(w, as, err)
				return
			}
			as.MetricChans.DatabaseRead <- float64(time.Since(startTimer).Microseconds())

			doc := model.Schedule{
				ID:        docID,
				UserID:    sessionModel.UserID,
				Date:      reqBody.Date,
				Blocks:    reqBody.Blocks,
				CreatedAt: time.Now().Unix(),
				UpdatedAt: time.Now().Unix(),
			}
			startTimer = time.Now()
			if err := doc.Upsert(r.Context(), as.BunDB); err != nil {
				writeServiceErr(w, as, err)
				return
			}
			as.MetricChans.DatabaseWrite <- float64(time.Since(startTimer).Microseconds())

			w.WriteHeader(http.StatusOK)
			w.Write([]byte(docID))
		}))

	type UpdateBlockReqBody struct {
		ScheduleID   string               `json:"scheduleId"`
		BlockID      string               `json:"blockId"`
		Updates      schedule.BlockUpdate `json:"updates"`
		UpdateSeries bool                 `json:"updateSeries"`
	}

	type ModifiedRespBody struct {
		Modified int `json:"modified"`
	}

	// update one block, or fan the update out across its whole series;
	// completed and past instances are never rewritten
	muxer.HandleFunc("PUT /schedule", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			sessionModel, ok := sessionFromCtx(w, r)
			if !ok {
				return
			}
			w.Header().Set("Content-Type", "application/json")

			var reqBody UpdateBlockReqBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}
			if reqBody.ScheduleID == "" || reqBody.BlockID == "" {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Please provide a scheduleId and blockId"))
				return
			}

			executor := schedule.Executor{DB: as.BunDB}
			startTimer := time.Now()
			modified, err := executor.UpdateBlock(
				r.Context(),
				sessionModel.UserID,
				reqBody.ScheduleID,
				reqBody.BlockID,
				reqBody.Updates,
				reqBody.UpdateSeries,
				time.Now().In(as.Config.GetLocation()),
			)
			if err != nil {
				writeServiceErr(w, as, err)
				return
			}
			as.MetricChans.DatabaseWrite <- float64(time.Since(startTimer).Microseconds())

			writeJSON(w, ModifiedRespBody{Modified: modified})
		}))

	type DeleteBlockReqBody struct {
		ScheduleID   string `json:"scheduleId"`
		BlockID      string `json:"blockId"`
		DeleteSeries bool   `json:"deleteSeries"`
	}

	// delete one block, or every instance of its series from the anchor
	// document's date onward
	muxer.HandleFunc("DELETE /schedule", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			sessionModel, ok := sessionFromCtx(w, r)
			if !ok {
				return
			}
			w.Header().Set("Content-Type", "application/json")

			var reqBody DeleteBlockReqBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}
			if reqBody.ScheduleID == "" || reqBody.BlockID == "" {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Please provide a scheduleId and blockId"))
				return
			}

			executor := schedule.Executor{DB: as.BunDB}
			startTimer := time.Now()
			modified, err := executor.DeleteBlock(
				r.Context(),
				sessionModel.UserID,
				reqBody.ScheduleID,
				reqBody.BlockID,
				reqBody.DeleteSeries,
			)
			if err != nil {
				writeServiceErr(w, as, err)
				return
			}
			as.MetricChans.DatabaseWrite <- float64(time.Since(startTimer).Microseconds())

			writeJSON(w, ModifiedRespBody{Modified: modified})
		}))

	type CreateRecurringReqBody struct {
		Block     model.Block `json:"block"`
		StartDate string      `json:"startDate"`
		DaysAhead int         `json:"daysAhead"`
	}

	type CreateRecurringRespBody struct {
		RecurrenceID string         `json:"recurrenceId"`
		Created      map[string]int `json:"created"`
	}

	// materialize a recurring series ahead of time, one document per
	// occurrence date
	muxer.HandleFunc("POST /schedule/recurring", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			sessionModel, ok := sessionFromCtx(w, r)
			if !ok {
				return
			}
			w.Header().Set("Content-Type", "application/json")

			var reqBody CreateRecurringReqBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}

			if reqBody.Block.ID == "" {
				reqBody.Block.ID = uuid.NewString()
			}
			if reqBody.Block.RecurrenceID == "" {
				reqBody.Block.RecurrenceID = uuid.NewString()
			}

			executor := schedule.Executor{DB: as.BunDB}
			startTimer := time.Now()
			report, err := executor.CreateSeries(
				r.Context(),
				sessionModel.UserID,
				reqBody.Block,
				reqBody.StartDate,
				reqBody.DaysAhead,
			)
			if err != nil {
				writeServiceErr(w, as, err)
				return
			}
			as.MetricChans.DatabaseWrite <- float64(time.Since(startTimer).Microseconds())

			writeJSON(w, CreateRecurringRespBody{
				RecurrenceID: reqBody.Block.RecurrenceID,
				Created:      report,
			})
		}))

	type GenerateGoal struct {
		ID       string              `json:"id"`
		Title    string              `json:"title"`
		Category model.BlockCategory `json:"category"`
	}

	type GenerateReqBody struct {
		Date  string         `json:"date"`
		Goals []GenerateGoal `json:"goals"`
	}

	// synthesize a non-recurring day plan from goal categories; one slot per
	// category, first goal in a category wins
	muxer.HandleFunc("POST /schedule/generate", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			sessionModel, ok := sessionFromCtx(w, r)
			if !ok {
				return
			}
			w.Header().Set("Content-Type", "application/json")

			var reqBody GenerateReqBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}
			if !recurrence.ValidDate(reqBody.Date) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Please provide a date in YYYY-MM-DD format"))
				return
			}
			if len(reqBody.Goals) == 0 {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Please provide at least one goal"))
				return
			}

			blocks := make(model.BlockList, 0, len(reqBody.Goals))
			seenCategory := make(map[model.BlockCategory]struct{})
			for _, goal := range reqBody.Goals {
				slot, ok := generateSlots[goal.Category]
				if !ok {
					w.WriteHeader(http.StatusBadRequest)
					w.Write([]byte("Unknown goal category: " + string(goal.Category)))
					return
				}
				if _, ok := seenCategory[goal.Category]; ok {
					continue
				}
				seenCategory[goal.Category] = struct{}{}

				title := slot.activity
				if goal.Title != "" {
					title = utils.CleanupString(goal.Title)
				}
				blocks = append(blocks, model.Block{
					ID:        uuid.NewString(),
					Title:     title,
					Category:  goal.Category,
					StartTime: slot.start,
					EndTime:   slot.end,
					GoalID:    goal.ID,
				})
			}
			schedule.SortBlocks(blocks)

			doc := model.Schedule{
				ID:        uuid.NewString(),
				UserID:    sessionModel.UserID,
				Date:      reqBody.Date,
				Blocks:    blocks,
				CreatedAt: time.Now().Unix(),
				UpdatedAt: time.Now().Unix(),
			}
			startTimer := time.Now()
			if err := doc.Upsert(r.Context(), as.BunDB); err != nil {
				writeServiceErr(w, as, err)
				return
			}
			as.MetricChans.DatabaseWrite <- float64(time.Since(startTimer).Microseconds())

			writeJSON(w, OneScheduleRespBody{
				ID:     doc.ID,
				UserID: doc.UserID,
				Date:   doc.Date,
				Blocks: doc.Blocks,
			})
		}))

	type QuickAddReqBody struct {
		Text string `json:"text"`
	}

	// parse a phrase like "gym tomorrow at 7am" and drop a one-hour block on
	// the matched date
	muxer.HandleFunc("POST /schedule/quickadd", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			sessionModel, ok := sessionFromCtx(w, r)
			if !ok {
				return
			}
			w.Header().Set("Content-Type", "application/json")

			var reqBody QuickAddReqBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}
			if strings.TrimSpace(reqBody.Text) == "" {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Please provide a text to parse"))
				return
			}

			now := time.Now().In(as.Config.GetLocation())
			parsed, err := as.When.Parse(reqBody.Text, now)
			if err != nil || parsed == nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Can't find a date or time in the text"))
				return
			}

			title := utils.CleanupString(strings.Replace(reqBody.Text, parsed.Text, "", 1))
			if title == "" {
				title = "Untitled"
			}
			date := parsed.Time.Format(recurrence.DateLayout)
			block := model.Block{
				ID:        uuid.NewString(),
				Title:     title,
				Category:  model.BLOCK_CATEGORY_PERSONAL,
				StartTime: parsed.Time.Format("15:04"),
				EndTime:   parsed.Time.Add(time.Hour).Format("15:04"),
			}

			// append to the existing document, or start a new one
			docID := uuid.NewString()
			blocks := model.BlockList{}
			existing := new(model.Schedule)
			startTimer := time.Now()
			switch err := as.BunDB.NewSelect().
				Model(existing).
				Where("user_id = ?", sessionModel.UserID).
				Where("date = ?", date).
				Scan(r.Context()); {
			case err == nil:
				docID = existing.ID
				blocks = existing.Blocks
			case !errors.Is(err, sql.ErrNoRows):
				writeServiceErr(w, as, err)
				return
			}
			as.MetricChans.DatabaseRead <- float64(time.Since(startTimer).Microseconds())

			blocks = append(blocks, block)
			schedule.SortBlocks(blocks)
			doc := model.Schedule{
				ID:        docID,
				UserID:    sessionModel.UserID,
				Date:      date,
				Blocks:    blocks,
				CreatedAt: time.Now().Unix(),
				UpdatedAt: time.Now().Unix(),
			}
			startTimer = time.Now()
			if err := doc.Upsert(r.Context(), as.BunDB); err != nil {
				writeServiceErr(w, as, err)
				return
			}
			as.MetricChans.DatabaseWrite <- float64(time.Since(startTimer).Microseconds())

			writeJSON(w, OneScheduleRespBody{
				ID:     doc.ID,
				UserID: doc.UserID,
				Date:   date,
				Blocks: doc.Blocks,
			})
		}))
}

type generateSlot struct {
	start    string
	end      string
	activity string
}

var generateSlots = map[model.BlockCategory]generateSlot{
	model.BLOCK_CATEGORY_PHYSICAL:  {start: "07:00", end: "08:00", activity: "Morning Workout"},
	model.BLOCK_CATEGORY_MENTAL:    {start: "09:00", end: "10:00", activity: "Focused Study"},
	model.BLOCK_CATEGORY_FINANCIAL: {start: "18:00", end: "18:30", activity: "Budget Review"},
	model.BLOCK_CATEGORY_SOCIAL:    {start: "19:00", end: "20:00", activity: "Catch Up With A Friend"},
	model.BLOCK_CATEGORY_PERSONAL:  {start: "20:30", end: "21:30", activity: "Personal Time"},
}
