package models

import "time"

type CoachAvailability struct {
	ID        int64          `json:"id"`
	CoachID   int64          `json:"coach_id"`
	Days      []time.Weekday `json:"days"`
	StartTime string         `json:"start_time"`
	EndTime   string         `json:"end_time"`
	Timezone  string         `json:"timezone"`
	Active    bool           `json:"active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (a *CoachAvailability) HasDay(day time.Weekday) bool {
	for _, d := range a.Days {
		if d == day {
			return true
		}
	}
	return false
}

type CoachRate struct {
	CoachID    int64     `json:"coach_id"`
	SessionFee float64   `json:"session_fee"`
	Currency   string    `json:"currency"`
	UpdatedAt  time.Time `json:"updated_at"`
}
