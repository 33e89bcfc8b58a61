package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Temutjin2k/tracking-relay/internal/domain/types"
	"github.com/Temutjin2k/tracking-relay/pkg/validator"
)

// Event is the closed set of inbound tracking events. Only the types in this
// file implement it; consumers switch over them exhaustively.
type Event interface {
	Name() types.EventName
	isEvent()
}

type (
	DriverJoin struct {
		UserID    ID
		BookingID ID
	}

	CustomerJoin struct {
		UserID    ID
		BookingID ID
	}

	LocationUpdate struct {
		UserID    ID
		BookingID ID
		Location  Location
		Speed     float64
		Heading   float64
	}

	StatusUpdate struct {
		BookingID ID
		Status    string
		Message   string
	}

	ChatMessage struct {
		BookingID  ID
		SenderID   ID
		SenderRole string
		Message    string
	}

	// EtaUpdate passes eta and distance through untouched; clients send either
	// numbers or preformatted strings.
	EtaUpdate struct {
		BookingID ID
		Eta       json.RawMessage
		Distance  json.RawMessage
	}

	// Disconnect is raised by the connection lifecycle, never decoded from the wire.
	Disconnect struct{}
)

func (DriverJoin) Name() types.EventName     { return types.EventDriverJoin }
func (CustomerJoin) Name() types.EventName   { return types.EventCustomerJoin }
func (LocationUpdate) Name() types.EventName { return types.EventLocationUpdate }
func (StatusUpdate) Name() types.EventName   { return types.EventStatusUpdate }
func (ChatMessage) Name() types.EventName    { return types.EventChatMessage }
func (EtaUpdate) Name() types.EventName      { return types.EventEtaUpdate }
func (Disconnect) Name() types.EventName     { return types.EventDisconnect }

func (DriverJoin) isEvent()     {}
func (CustomerJoin) isEvent()   {}
func (LocationUpdate) isEvent() {}
func (StatusUpdate) isEvent()   {}
func (ChatMessage) isEvent()    {}
func (EtaUpdate) isEvent()      {}
func (Disconnect) isEvent()     {}

// wire shapes: pointer fields distinguish "absent" from zero values
type (
	joinReq struct {
		UserID    *ID `json:"userId"`
		BookingID *ID `json:"bookingId"`
	}

	locationReq struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}

	locationUpdateReq struct {
		UserID    *ID          `json:"userId"`
		BookingID *ID          `json:"bookingId"`
		Location  *locationReq `json:"location"`
		Speed     *float64     `json:"speed"`
		Heading   *float64     `json:"heading"`
	}

	statusUpdateReq struct {
		BookingID *ID     `json:"bookingId"`
		Status    *string `json:"status"`
		Message   *string `json:"message"`
	}

	chatMessageReq struct {
		BookingID  *ID     `json:"bookingId"`
		SenderID   *ID     `json:"senderId"`
		SenderRole *string `json:"senderRole"`
		Message    *string `json:"message"`
	}

	etaUpdateReq struct {
		BookingID *ID             `json:"bookingId"`
		Eta       json.RawMessage `json:"eta"`
		Distance  json.RawMessage `json:"distance"`
	}
)

func (r *joinReq) Validate(v *validator.Validator) {
	validator.Present(v, r.UserID, "userId")
	validator.Present(v, r.BookingID, "bookingId")
}

func (r *locationReq) Validate(v *validator.Validator) {
	validator.Present(v, r.Lat, "location.lat")
	validator.Present(v, r.Lng, "location.lng")
}

func (r *locationUpdateReq) Validate(v *validator.Validator) {
	validator.Present(v, r.UserID, "userId")
	validator.Present(v, r.BookingID, "bookingId")
	validator.Present(v, r.Location, "location")
	if r.Location != nil {
		r.Location.Validate(v)
	}
	validator.Present(v, r.Speed, "speed")
	validator.Present(v, r.Heading, "heading")
}

func (r *statusUpdateReq) Validate(v *validator.Validator) {
	validator.Present(v, r.BookingID, "bookingId")
	validator.Present(v, r.Status, "status")
	validator.Present(v, r.Message, "message")
}

func (r *chatMessageReq) Validate(v *validator.Validator) {
	validator.Present(v, r.BookingID, "bookingId")
	validator.Present(v, r.SenderID, "senderId")
	validator.Present(v, r.SenderRole, "senderRole")
	validator.Present(v, r.Message, "message")
}

func (r *etaUpdateReq) Validate(v *validator.Validator) {
	validator.Present(v, r.BookingID, "bookingId")
	v.Check(presentRaw(r.Eta), "eta", "must be provided")
	v.Check(presentRaw(r.Distance), "distance", "must be provided")
}

func presentRaw(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

type validatable interface {
	Validate(v *validator.Validator)
}

// DecodeEvent turns a named wire payload into an Event. Errors wrap
// types.ErrUnknownEvent, types.ErrMalformedEvent or types.ErrMissingField.
func DecodeEvent(name string, data json.RawMessage) (Event, error) {
	switch types.EventName(name) {
	case types.EventDriverJoin:
		var req joinReq
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return DriverJoin{UserID: *req.UserID, BookingID: *req.BookingID}, nil

	case types.EventCustomerJoin:
		var req joinReq
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return CustomerJoin{UserID: *req.UserID, BookingID: *req.BookingID}, nil

	case types.EventLocationUpdate:
		var req locationUpdateReq
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return LocationUpdate{
			UserID:    *req.UserID,
			BookingID: *req.BookingID,
			Location:  Location{Lat: *req.Location.Lat, Lng: *req.Location.Lng},
			Speed:     *req.Speed,
			Heading:   *req.Heading,
		}, nil

	case types.EventStatusUpdate:
		var req statusUpdateReq
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return StatusUpdate{BookingID: *req.BookingID, Status: *req.Status, Message: *req.Message}, nil

	case types.EventChatMessage:
		var req chatMessageReq
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return ChatMessage{
			BookingID:  *req.BookingID,
			SenderID:   *req.SenderID,
			SenderRole: *req.SenderRole,
			Message:    *req.Message,
		}, nil

	case types.EventEtaUpdate:
		var req etaUpdateReq
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return EtaUpdate{BookingID: *req.BookingID, Eta: req.Eta, Distance: req.Distance}, nil

	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownEvent, name)
	}
}

func decode(data json.RawMessage, dst validatable) error {
	if !presentRaw(data) {
		return fmt.Errorf("%w: empty payload", types.ErrMalformedEvent)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %w", types.ErrMalformedEvent, err)
	}

	v := validator.New()
	dst.Validate(v)
	if !v.Valid() {
		fields := make([]string, 0, len(v.Errors))
		for field := range v.Errors {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		return fmt.Errorf("%w: %s", types.ErrMissingField, strings.Join(fields, ", "))
	}
	return nil
}
