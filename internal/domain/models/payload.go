package models

import (
	"encoding/json"
	"time"
)

// TimestampLayout is ISO-8601 UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Outbound payloads. Each carries the server receipt time.
type (
	LocationBroadcast struct {
		BookingID ID       `json:"bookingId"`
		DriverID  ID       `json:"driverId"`
		Location  Location `json:"location"`
		Speed     float64  `json:"speed"`
		Heading   float64  `json:"heading"`
		Timestamp string   `json:"timestamp"`
	}

	StatusBroadcast struct {
		BookingID ID     `json:"bookingId"`
		Status    string `json:"status"`
		Message   string `json:"message"`
		Timestamp string `json:"timestamp"`
	}

	ChatBroadcast struct {
		BookingID  ID     `json:"bookingId"`
		SenderID   ID     `json:"senderId"`
		SenderRole string `json:"senderRole"`
		Message    string `json:"message"`
		Timestamp  string `json:"timestamp"`
	}

	EtaBroadcast struct {
		BookingID ID              `json:"bookingId"`
		Eta       json.RawMessage `json:"eta"`
		Distance  json.RawMessage `json:"distance"`
		Timestamp string          `json:"timestamp"`
	}
)
