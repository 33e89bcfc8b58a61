package types

// Role of a participant inside a booking
type Role string

func (r Role) String() string {
	return string(r)
}

const (
	RoleDriver   Role = "driver"
	RoleCustomer Role = "customer"
)
