package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MeetingProvider issues a join URL and meeting id for a new session. The
// real conferencing backend sits behind this interface.
type MeetingProvider interface {
	IssueMeeting(ctx context.Context, coachID int64, date time.Time) (joinURL string, meetingID string, err error)
}

// LinkMeetingProvider builds join URLs under a fixed base from freshly
// generated meeting ids.
type LinkMeetingProvider struct {
	baseURL string
}

func NewLinkMeetingProvider(baseURL string) *LinkMeetingProvider {
	return &LinkMeetingProvider{baseURL: baseURL}
}

func (p *LinkMeetingProvider) IssueMeeting(
	_ context.Context,
	_ int64,
	_ time.Time,
) (string, string, error) {
	meetingID := uuid.NewString()
	return fmt.Sprintf("%s/%s", p.baseURL, meetingID), meetingID, nil
}
