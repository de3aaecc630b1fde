package calcom

import (
	"strconv"
	"strings"
)

type Permissions string

const (
	PermissionViewOnly    Permissions = "view_only"
	PermissionViewAndBook Permissions = "view_and_book"
)

type ConfirmationType string

const (
	ConfirmationSMS   ConfirmationType = "sms"
	ConfirmationEmail ConfirmationType = "email"
)

// Settings is an assistant's Cal.com tool configuration, stored under tools_config.calcom.
type Settings struct {
	APIKey           string           `json:"apiKey"`
	EventID          string           `json:"eventId"`
	CalendarName     string           `json:"calendarName"`
	Permissions      Permissions      `json:"permissions" validate:"omitempty,oneof=view_only view_and_book"`
	ConfirmationType ConfirmationType `json:"confirmationType" validate:"omitempty,oneof=sms email"`
	Enabled          bool             `json:"enabled"`
}

func (s Settings) CanView() bool {
	return s.Enabled && strings.TrimSpace(s.APIKey) != ""
}

func (s Settings) CanBook() bool {
	return s.CanView() && s.Permissions == PermissionViewAndBook
}

// EventTypeID parses the configured event id. ok is false when missing or non-numeric.
func (s Settings) EventTypeID() (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s.EventID), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
