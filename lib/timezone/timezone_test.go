package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTrailingWindow(t *testing.T) {
	cases := []struct {
		now         time.Time
		days        int
		expectStart time.Time
		expectStop  time.Time
	}{
		{
			now:         time.Date(2025, time.June, 15, 13, 45, 0, 0, Location),
			days:        30,
			expectStart: time.Date(2025, time.May, 16, 0, 0, 0, 0, Location),
			expectStop:  time.Date(2025, time.June, 15, 0, 0, 0, 0, Location),
		},
		{
			now:         time.Date(2025, time.January, 5, 0, 0, 0, 0, Location),
			days:        180,
			expectStart: time.Date(2024, time.July, 9, 0, 0, 0, 0, Location),
			expectStop:  time.Date(2025, time.January, 5, 0, 0, 0, 0, Location),
		},
		{
			// UTC input still yields Colombo calendar dates
			now:         time.Date(2025, time.March, 31, 20, 0, 0, 0, time.UTC),
			days:        1,
			expectStart: time.Date(2025, time.March, 31, 0, 0, 0, 0, Location),
			expectStop:  time.Date(2025, time.April, 1, 0, 0, 0, 0, Location),
		},
	}

	for _, test := range cases {
		start, stop := TrailingWindow(test.now, test.days)
		require.Equal(t, test.expectStart, start)
		require.Equal(t, test.expectStop, stop)
	}
}
