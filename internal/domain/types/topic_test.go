package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicNames(t *testing.T) {
	assert.Equal(t, "driver-42", Topic(TopicDriver, "42"))
	assert.Equal(t, "customer-c1", PersonalTopic(RoleCustomer, "c1"))
	assert.Equal(t, "driver-d1", PersonalTopic(RoleDriver, "d1"))
	assert.Equal(t, "booking-B1", BookingTopic("B1"))
}
