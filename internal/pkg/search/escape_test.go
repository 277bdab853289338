package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeILIKE(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"flood", "%flood%"},
		{"50% off", `%50\% off%`},
		{"a_b", `%a\_b%`},
		{`back\slash`, `%back\\slash%`},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, EscapeILIKE(c.in))
	}
}
