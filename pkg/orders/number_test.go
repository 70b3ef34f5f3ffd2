package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedGenerator(ms int64, draws ...int) *NumberGenerator {
	i := 0
	return &NumberGenerator{
		now: func() time.Time { return time.UnixMilli(ms) },
		intn: func(int) int {
			v := draws[i%len(draws)]
			i++
			return v
		},
	}
}

func TestNumberGenerator_Next(t *testing.T) {
	g := fixedGenerator(1700000000123, 7)

	n := g.Next()
	assert.Equal(t, "ORD-1700000000123-007", n)
	assert.True(t, IsOrderNumber(n))
}

func TestNumberGenerator_NextTest(t *testing.T) {
	g := fixedGenerator(1700000000123, 999)

	n := g.NextTest()
	assert.Equal(t, "TEST-1700000000123-999", n)
	assert.True(t, IsOrderNumber(n))
}

func TestNumberGenerator_Default(t *testing.T) {
	g := NewNumberGenerator()
	for i := 0; i < 50; i++ {
		assert.True(t, IsOrderNumber(g.Next()))
	}
}

func TestIsOrderNumber(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"ORD-1-000", true},
		{"TEST-1700000000000-123", true},
		{"ORD-1700000000000-12", false},
		{"ORD-abc-123", false},
		{"ord-1-123", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsOrderNumber(tt.in))
		})
	}
}
