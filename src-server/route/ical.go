package route

import (
	"lifetrack/src-server/model"
	"lifetrack/src-server/recurrence"
	"lifetrack/src-server/utils"
	"log/slog"
	"net/http"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xyedo/rrule"
)

func Ical(muxer *http.ServeMux, as *utils.AppState) {
	// per-user feed for calendar clients; recurring blocks come out as one
	// VEVENT with an RRULE instead of one VEVENT per materialized instance
	muxer.HandleFunc("GET /ical/{user_id}", func(w http.ResponseWriter, r *http.Request) {
		userID := r.PathValue("user_id")

		docs := make([]model.Schedule, 0)
		startTimer := time.Now()
		if err := as.BunDB.NewSelect().
			Model(&docs).
			Where("user_id = ?", userID).
			Order("date ASC").
			Scan(r.Context()); err != nil {
			writeServiceErr(w, as, err)
			return
		}
		as.MetricChans.DatabaseRead <- float64(time.Since(startTimer).Microseconds())

		loc := as.Config.GetLocation()
		cal := ics.NewCalendar()
		cal.SetMethod(ics.MethodPublish)
		cal.SetProductId("-//lifetrack//schedule feed//EN")

		for _, doc := range docs {
			for _, block := range doc.Blocks {
				if block.RecurrenceID != "" && block.RecurrenceRule == nil {
					// instance of a series, the origin's RRULE covers it
					continue
				}

				start, err := time.ParseInLocation("2006-01-02 15:04", doc.Date+" "+block.StartTime, loc)
				if err != nil {
					slog.Warn("block has an unparsable start time",
						"block", block.ID, "date", doc.Date, "startTime", block.StartTime)
					continue
				}
				end, err := time.ParseInLocation("2006-01-02 15:04", doc.Date+" "+block.EndTime, loc)
				if err != nil {
					slog.Warn("block has an unparsable end time",
						"block", block.ID, "date", doc.Date, "endTime", block.EndTime)
					continue
				}
				if !end.After(start) {
					// block runs past midnight
					end = end.AddDate(0, 0, 1)
				}

				event := cal.AddEvent(block.ID + "@lifetrack")
				event.SetSummary(block.Title)
				event.SetDescription("Category: " + string(block.Category))
				event.SetStartAt(start)
				event.SetEndAt(end)
				event.SetDtStampTime(time.Unix(doc.UpdatedAt, 0).UTC())

				if block.Recurring && block.RecurrenceRule != nil {
					ruleStr, err := rruleString(*block.RecurrenceRule, start)
					if err != nil {
						slog.Warn("can't render recurrence rule",
							"block", block.ID, "type", block.RecurrenceRule.Type, "error", err)
					} else {
						event.AddRrule(ruleStr)
					}
					for _, exception := range block.RecurrenceRule.Exceptions {
						day, err := recurrence.ParseDate(exception)
						if err != nil {
							continue
						}
						exDate := time.Date(day.Year(), day.Month(), day.Day(),
							start.Hour(), start.Minute(), 0, 0, loc)
						event.AddExdate(exDate.UTC().Format("20060102T150405Z"))
					}
				}
			}
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if err := cal.SerializeTo(w); err != nil {
			slog.Warn("can't write calendar to response", "error", err)
		}
	})
}

var icalWeekdays = []rrule.Weekday{
	rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA,
}

// rruleString renders a recurrence rule as an RFC 5545 RRULE value.
func rruleString(r recurrence.Rule, dtstart time.Time) (string, error) {
	opt := rrule.ROption{Dtstart: dtstart, Interval: r.Interval}
	switch r.Type {
	case recurrence.FreqDaily:
		opt.Freq = rrule.DAILY
	case recurrence.FreqWeekly:
		opt.Freq = rrule.WEEKLY
		for _, day := range r.DaysOfWeek {
			if day >= 0 && day < len(icalWeekdays) {
				opt.Byweekday = append(opt.Byweekday, icalWeekdays[day])
			}
		}
	case recurrence.FreqMonthly:
		opt.Freq = rrule.MONTHLY
	default:
		return "", recurrence.ErrUnsupportedRule
	}
	if r.EndDate != "" {
		until, err := recurrence.ParseDate(r.EndDate)
		if err != nil {
			return "", err
		}
		opt.Until = until
	}
	if r.EndOccurrences > 0 {
		opt.Count = r.EndOccurrences
	}

	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return "", err
	}
	return rule.String(), nil
}
