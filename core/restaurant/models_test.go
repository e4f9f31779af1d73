package restaurant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOpenAt(t *testing.T) {
	at := func(hhmm string) time.Time {
		tm, err := time.Parse("15:04", hhmm)
		if err != nil {
			t.Fatalf("time.Parse(): %v", err)
		}
		return tm
	}

	tests := []struct {
		name     string
		opens    string
		closes   string
		now      string
		wantOpen bool
	}{
		{name: "no hours", now: "03:00", wantOpen: true},
		{name: "invalid hours", opens: "lol", closes: "22:00", now: "03:00", wantOpen: true},
		{name: "same day: before", opens: "09:00", closes: "22:00", now: "08:59", wantOpen: false},
		{name: "same day: opening", opens: "09:00", closes: "22:00", now: "09:00", wantOpen: true},
		{name: "same day: inside", opens: "09:00", closes: "22:00", now: "13:30", wantOpen: true},
		{name: "same day: closing", opens: "09:00", closes: "22:00", now: "22:00", wantOpen: false},
		{name: "overnight: evening", opens: "18:00", closes: "02:00", now: "23:15", wantOpen: true},
		{name: "overnight: after midnight", opens: "18:00", closes: "02:00", now: "01:59", wantOpen: true},
		{name: "overnight: closed", opens: "18:00", closes: "02:00", now: "12:00", wantOpen: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantOpen, openAt(tt.opens, tt.closes, at(tt.now)))
		})
	}
}
