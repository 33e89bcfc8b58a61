package types

// TopicKind selects one of the three topic name patterns clients rely on.
type TopicKind string

const (
	TopicDriver   TopicKind = "driver"
	TopicCustomer TopicKind = "customer"
	TopicBooking  TopicKind = "booking"
)

// Topic builds a topic name: driver-{userId}, customer-{userId}, booking-{bookingId}.
func Topic(kind TopicKind, id string) string {
	return string(kind) + "-" + id
}

// PersonalTopic is the topic a participant joins under its own identity.
func PersonalTopic(role Role, userID string) string {
	if role == RoleDriver {
		return Topic(TopicDriver, userID)
	}
	return Topic(TopicCustomer, userID)
}

func BookingTopic(bookingID string) string {
	return Topic(TopicBooking, bookingID)
}
