package orders

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"time"
)

const (
	OrderNumberPrefix = "ORD"
	TestNumberPrefix  = "TEST"
)

var orderNumberPattern = regexp.MustCompile(`^(ORD|TEST)-\d+-\d{3}$`)

// NumberGenerator produces human readable order numbers of the form
// PREFIX-<unix millis>-<three digit random>. Two numbers drawn in the same
// millisecond collide with probability 1/1000; uniqueness is left to the
// repository index.
type NumberGenerator struct {
	now  func() time.Time
	intn func(n int) int
}

func NewNumberGenerator() *NumberGenerator {
	return &NumberGenerator{now: time.Now, intn: rand.IntN}
}

func (g *NumberGenerator) Next() string {
	return g.format(OrderNumberPrefix)
}

// NextTest is used by the diagnostic endpoints so their orders are easy to
// tell apart.
func (g *NumberGenerator) NextTest() string {
	return g.format(TestNumberPrefix)
}

func (g *NumberGenerator) format(prefix string) string {
	return fmt.Sprintf("%s-%d-%03d", prefix, g.now().UnixMilli(), g.intn(1000))
}

func IsOrderNumber(s string) bool {
	return orderNumberPattern.MatchString(s)
}
