package types

// EventName is the wire name of a tracking event, identical inbound and outbound.
type EventName string

func (e EventName) String() string {
	return string(e)
}

const (
	EventDriverJoin     EventName = "driver-join"
	EventCustomerJoin   EventName = "customer-join"
	EventLocationUpdate EventName = "location-update"
	EventStatusUpdate   EventName = "status-update"
	EventChatMessage    EventName = "chat-message"
	EventEtaUpdate      EventName = "eta-update"

	// EventDisconnect never arrives on the wire; the lifecycle manager raises it on close.
	EventDisconnect EventName = "disconnect"
)
