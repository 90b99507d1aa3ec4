package models

import "time"

const DateLayout = "2006-01-02"

const (
	SourceRecorded  = "recorded"
	SourceSimulated = "simulated"
)

type FollowerSnapshot struct {
	AccountID     string    `json:"account_id"`
	Date          time.Time `json:"date"`
	FollowerCount int64     `json:"follower_count"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// Day truncates t to its calendar day in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

type GrowthMetrics struct {
	NewFollowersToday int64   `json:"new_followers_today"`
	NewFollowersWeek  int64   `json:"new_followers_week"`
	NewFollowersMonth int64   `json:"new_followers_month"`
	UnfollowsToday    int64   `json:"unfollows_today"`
	GrowthRatePercent float64 `json:"growth_rate"`
}

type FollowersSummary struct {
	TotalFollowers int64  `json:"total_followers"`
	LastUpdated    string `json:"last_updated"`
	GrowthMetrics
}

type GrowthPoint struct {
	Date      string `json:"date"`
	Followers int64  `json:"followers"`
	Growth    int64  `json:"growth"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type Coverage struct {
	DaysRecorded int      `json:"days_recorded"`
	MissingDates []string `json:"missing_dates"`
}

type GrowthSeries struct {
	GrowthData    []GrowthPoint `json:"growth_data"`
	DaysRequested int           `json:"days_requested"`
	RecordsFound  int           `json:"records_found"`
	DateRange     DateRange     `json:"date_range"`
	Simulated     bool          `json:"simulated"`
	Coverage      Coverage      `json:"coverage"`
}
