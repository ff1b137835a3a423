package timeseries

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeline(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		minutes float64
		size    int
		wantErr bool
	}{
		{"default day", DefaultStart, DefaultEnd, 10, 144, false},
		{"rfc3339", "2021-01-01T00:00:00Z", "2021-01-01T01:00:00Z", 15, 4, false},
		{"fractional step floors", "2021-01-01 00:00:00", "2021-01-01 00:10:00", 3, 3, false},
		{"inverted", DefaultEnd, DefaultStart, 10, 0, true},
		{"zero step", DefaultStart, DefaultEnd, 0, 0, true},
		{"step longer than timeline", "2021-01-01 00:00:00", "2021-01-01 00:05:00", 10, 0, true},
		{"garbage", "yesterday", DefaultEnd, 10, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl, err := ParseTimeline(tt.start, tt.end, tt.minutes)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, stderrors.Is(err, ErrInvalidTimeline))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.size, tl.Size())
			assert.Len(t, tl.Times(), tt.size)
		})
	}
}

func TestTimelineTimes(t *testing.T) {
	tl := DefaultTimeline()
	times := tl.Times()
	require.Len(t, times, 144)
	assert.Equal(t, tl.Start, times[0])
	assert.Equal(t, tl.Start.Add(10*time.Minute), times[1])
	assert.True(t, times[len(times)-1].Before(tl.End))
}

func TestTimelineMidpoint(t *testing.T) {
	tl := DefaultTimeline()
	assert.Equal(t, time.Date(2021, 1, 1, 12, 0, 0, 0, time.UTC), tl.Midpoint())
	assert.Equal(t, 72, tl.IndexAt(tl.Midpoint()))
}
