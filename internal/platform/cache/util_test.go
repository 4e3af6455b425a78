package cache

import (
	"testing"
	"time"
)

func TestTimeUntilNextRefresh(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		now  time.Time
		want time.Duration
	}{
		{"morning", time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), 14 * time.Hour},
		{"exactly at refresh", time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC), 24 * time.Hour},
		{"after refresh", time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC), 22*time.Hour + 30*time.Minute},
		{"non-UTC input", time.Date(2024, 3, 1, 9, 0, 0, 0, time.FixedZone("JST", 9*3600)), 22 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := TimeUntilNextRefresh(tt.now); got != tt.want {
				t.Errorf("TimeUntilNextRefresh(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestTimeUntilNextRefresh_AlwaysPositive(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for h := 0; h < 48; h++ {
		d := TimeUntilNextRefresh(base.Add(time.Duration(h) * 30 * time.Minute))
		if d <= 0 || d > 24*time.Hour {
			t.Errorf("offset %d: expected duration in (0, 24h], got %v", h, d)
		}
	}
}
