package httpapi

import (
	"time"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
)

type itemView struct {
	Key              string     `json:"key"`
	TrackID          int64      `json:"track_id"`
	Country          string     `json:"country"`
	Name             string     `json:"name"`
	Version          string     `json:"version,omitempty"`
	IconURL          string     `json:"icon_url,omitempty"`
	SellerName       string     `json:"seller_name,omitempty"`
	Genre            string     `json:"genre,omitempty"`
	Status           string     `json:"status"`
	Ownership        string     `json:"ownership"`
	DateAdded        time.Time  `json:"date_added"`
	LastReleaseDate  *time.Time `json:"last_release_date,omitempty"`
	FirstReleaseDate *time.Time `json:"first_release_date,omitempty"`
	LastCheckedAt    *time.Time `json:"last_checked_at,omitempty"`
	BanDate          *time.Time `json:"ban_date,omitempty"`
}

func newItemView(item *domain.TrackedItem) itemView {
	v := itemView{
		Key:              item.Key.String(),
		TrackID:          item.Key.TrackID,
		Country:          item.Key.Country,
		Name:             item.Name,
		Version:          item.Version,
		IconURL:          item.IconURL,
		SellerName:       item.SellerName,
		Genre:            item.Genre,
		Status:           string(item.Status),
		Ownership:        string(item.Ownership),
		DateAdded:        item.DateAdded,
		FirstReleaseDate: item.FirstReleaseDate,
		LastCheckedAt:    item.LastCheckedAt,
		BanDate:          item.BanDate,
	}
	if !item.LastReleaseDate.IsZero() {
		t := item.LastReleaseDate
		v.LastReleaseDate = &t
	}
	return v
}

type transitionView struct {
	ID       string    `json:"id"`
	At       time.Time `json:"at"`
	Kind     string    `json:"kind"`
	OldValue string    `json:"old_value"`
	NewValue string    `json:"new_value"`
}

func newTransitionView(r domain.TransitionRecord) transitionView {
	return transitionView{
		ID:       r.ID,
		At:       r.At,
		Kind:     string(r.Kind),
		OldValue: r.OldValue,
		NewValue: r.NewValue,
	}
}

type resultView struct {
	Key     string `json:"key"`
	Name    string `json:"name,omitempty"`
	Result  string `json:"result"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	Outcome string `json:"outcome,omitempty"`
	Error   string `json:"error,omitempty"`
}

func newResultView(r domain.CheckResult) resultView {
	v := resultView{
		Key:     r.Key.String(),
		Name:    r.ItemName,
		Result:  string(r.Kind),
		From:    string(r.From),
		To:      string(r.To),
		Outcome: string(r.Outcome),
	}
	if r.Err != nil {
		v.Error = r.Err.Error()
	}
	return v
}

type summaryView struct {
	RunID       string    `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Total       int       `json:"total"`
	Checked     int       `json:"checked"`
	Updated     int       `json:"updated"`
	Removed     int       `json:"removed"`
	Restored    int       `json:"restored"`
	Errors      int       `json:"errors"`
	Unavailable int       `json:"unavailable"`
	Cancelled   int       `json:"cancelled"`
}

func newSummaryView(s domain.CycleSummary) *summaryView {
	return &summaryView{
		RunID:       s.RunID,
		StartedAt:   s.StartedAt,
		FinishedAt:  s.FinishedAt,
		Total:       s.Total,
		Checked:     s.Checked,
		Updated:     s.Updated,
		Removed:     s.Removed,
		Restored:    s.Restored,
		Errors:      s.Errors,
		Unavailable: s.Unavailable,
		Cancelled:   s.Cancelled,
	}
}

type progressView struct {
	RunID       string       `json:"run_id,omitempty"`
	Running     bool         `json:"running"`
	Checked     int          `json:"checked"`
	Total       int          `json:"total"`
	Fraction    float64      `json:"fraction"`
	LastSummary *summaryView `json:"last_summary,omitempty"`
}

func newProgressView(p domain.RefreshProgress, last *domain.CycleSummary) progressView {
	v := progressView{
		RunID:    p.RunID,
		Running:  p.Running,
		Checked:  p.Checked,
		Total:    p.Total,
		Fraction: p.Fraction,
	}
	if last != nil {
		v.LastSummary = newSummaryView(*last)
	}
	return v
}

type taskView struct {
	Name        string     `json:"name"`
	Enabled     bool       `json:"enabled"`
	Interval    string     `json:"interval"`
	LastRun     *time.Time `json:"last_run,omitempty"`
	LastSuccess *time.Time `json:"last_success,omitempty"`
	NextRun     *time.Time `json:"next_run,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

type runView struct {
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Checked   int       `json:"checked"`
}

type backgroundView struct {
	Task    *taskView `json:"task"`
	History []runView `json:"history"`
}

func newBackgroundView(task *domain.ScheduledTask, history []domain.TaskResult) backgroundView {
	v := backgroundView{History: make([]runView, 0, len(history))}
	if task != nil {
		v.Task = &taskView{
			Name:        task.Name,
			Enabled:     task.Enabled,
			Interval:    task.Interval.String(),
			LastRun:     optionalTime(task.LastRun),
			LastSuccess: optionalTime(task.LastSuccess),
			NextRun:     optionalTime(task.NextRun),
			LastError:   task.LastError,
		}
	}
	for _, r := range history {
		v.History = append(v.History, runView{
			StartedAt: r.StartedAt,
			EndedAt:   r.EndedAt,
			Success:   r.Success,
			Error:     r.Error,
			Checked:   r.ItemsProcessed,
		})
	}
	return v
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
