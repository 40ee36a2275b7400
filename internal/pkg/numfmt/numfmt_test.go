package numfmt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{12345, "12,345"},
		{1000.5, "1,000.50"},
		{-2500, "-2,500"},
		{math.NaN(), "0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.in))
	}
}
