package models

import "github.com/Temutjin2k/tracking-relay/internal/domain/types"

// DriverSession is the presence entry of a driver bound to one live connection.
type DriverSession struct {
	DriverID     ID
	ConnID       string
	BookingID    ID
	LastLocation *Location
}

// CustomerSession is the presence entry of a customer bound to one live connection.
type CustomerSession struct {
	CustomerID ID
	ConnID     string
	BookingID  ID
}

// DriverPosition is a snapshot of a driver session that has a known location.
type DriverPosition struct {
	DriverID  ID
	BookingID ID
	Location  Location
}

// Identity names a participant removed from presence.
type Identity struct {
	Role      types.Role
	UserID    ID
	BookingID ID
}
