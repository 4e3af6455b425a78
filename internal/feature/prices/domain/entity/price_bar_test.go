package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTickers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"trims and upper-cases", []string{"AAA", "bbb "}, []string{"AAA", "BBB"}},
		{"drops empties", []string{" ", "", "ry.to"}, []string{"RY.TO"}},
		{"keeps first-seen order without duplicates", []string{"td.to", "RY.TO", " TD.TO"}, []string{"TD.TO", "RY.TO"}},
		{"empty input", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NormalizeTickers(tt.input))
		})
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	d, err := ParseDate(" 2024-03-05 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("05/03/2024")
	assert.Error(t, err)
}

func TestTruncateDay(t *testing.T) {
	t.Parallel()

	in := time.Date(2024, 3, 5, 15, 4, 5, 6, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), TruncateDay(in))
}
