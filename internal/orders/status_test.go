package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusPaymentFailed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusRefunded, false},

		{StatusPaymentFailed, StatusPending, true},
		{StatusPaymentFailed, StatusCancelled, true},
		{StatusPaymentFailed, StatusPaid, false},
		{StatusPaymentFailed, StatusRefunded, false},

		{StatusPaid, StatusRefunded, true},
		{StatusPaid, StatusCancelled, false},
		{StatusPaid, StatusPending, false},

		// unknown statuses never transition anywhere
		{Status("SHIPPED"), StatusPaid, false},
		{StatusPending, Status("SHIPPED"), false},
	}
	for _, c := range cases {
		assert.Equalf(t, c.want, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	all := []Status{StatusPending, StatusPaid, StatusPaymentFailed, StatusCancelled, StatusRefunded}
	for _, from := range []Status{StatusCancelled, StatusRefunded} {
		assert.True(t, from.Terminal())
		for _, to := range all {
			assert.Falsef(t, CanTransition(from, to), "%s -> %s must be rejected", from, to)
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusPaid, StatusPaymentFailed, StatusCancelled, StatusRefunded} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Status("SHIPPED").Valid())
	assert.False(t, Status("").Valid())
}
