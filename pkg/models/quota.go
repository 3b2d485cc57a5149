package models

import "time"

// DailyWindow tracks visualization counts for one UTC calendar day.
type DailyWindow struct {
	Date      string    `json:"date"` // YYYY-MM-DD, UTC
	Count     int       `json:"count"`
	LastReset time.Time `json:"last_reset"`
}

// HourlyWindow tracks visualization counts within the current UTC hour.
type HourlyWindow struct {
	Window   time.Time   `json:"window"` // start of the UTC hour
	Count    int         `json:"count"`
	Requests []time.Time `json:"requests"`
}

// RateLimitState is the full persisted quota state for one device.
type RateLimitState struct {
	Daily         DailyWindow  `json:"daily"`
	Hourly        HourlyWindow `json:"hourly"`
	LastRequest   time.Time    `json:"last_request"`
	Images        []string     `json:"images"` // unique image hashes seen today
	CooldownUntil time.Time    `json:"cooldown_until"`
}

// HasImage reports whether an image hash already counted against today's
// unique-image quota.
func (s *RateLimitState) HasImage(hash string) bool {
	for _, h := range s.Images {
		if h == hash {
			return true
		}
	}
	return false
}

// Empty reports whether the state has never recorded anything. Used to
// decide whether the secondary store should repopulate the primary.
func (s *RateLimitState) Empty() bool {
	return s == nil || (s.Daily.Count == 0 && s.Hourly.Count == 0 &&
		len(s.Images) == 0 && s.LastRequest.IsZero())
}

// Decision is the result of an admission check.
type Decision struct {
	Allowed             bool          `json:"allowed"`
	Reason              string        `json:"reason,omitempty"`
	WaitTime            time.Duration `json:"wait_time,omitempty"`
	DailyRemaining      int           `json:"daily_remaining"`
	HourlyRemaining     int           `json:"hourly_remaining"`
	TimeUntilDailyReset time.Duration `json:"time_until_daily_reset,omitempty"`
}

// QuotaStatus is a polling-friendly snapshot for live countdown UI.
type QuotaStatus struct {
	DailyRemaining      int           `json:"daily_remaining"`
	HourlyRemaining     int           `json:"hourly_remaining"`
	CooldownUntil       time.Time     `json:"cooldown_until"`
	TimeUntilDailyReset time.Duration `json:"time_until_daily_reset"`
}
