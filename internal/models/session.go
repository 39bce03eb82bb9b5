package models

import "time"

type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusOngoing   SessionStatus = "ongoing"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
	SessionStatusNoShow    SessionStatus = "no-show"
)

type SessionInstance struct {
	ID               int64         `json:"id"`
	CoachID          int64         `json:"coach_id"`
	Date             time.Time     `json:"date"`
	StartTime        string        `json:"start_time"`
	EndTime          string        `json:"end_time"`
	Timezone         string        `json:"timezone"`
	Members          []int64       `json:"members"`
	Status           SessionStatus `json:"status"`
	MeetingLink      string        `json:"meeting_link"`
	MeetingID        string        `json:"meeting_id"`
	FeeSnapshot      float64       `json:"fee_snapshot"`
	CurrencySnapshot string        `json:"currency_snapshot"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

func (s *SessionInstance) HasMember(clientID int64) bool {
	for _, id := range s.Members {
		if id == clientID {
			return true
		}
	}
	return false
}
