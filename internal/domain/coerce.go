package domain

import (
	"math"
	"strings"
)

// ParseLeadingInt reads the longest integer prefix of s, ignoring leading
// whitespace. A string with no such prefix is 0. Single underscores between
// digits are accepted ("1_500" is 1500). Values outside the int range clamp
// to its bounds.
func ParseLeadingInt(s string) int {
	s = strings.TrimLeft(s, " \t\n\v\f\r")

	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	limit := uint64(math.MaxInt)
	if neg {
		limit++
	}

	var n uint64
	clamped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' && i > 0 && i+1 < len(s) && isDigit(s[i+1]) {
			continue
		}
		if !isDigit(c) {
			break
		}
		if clamped {
			continue
		}
		d := uint64(c - '0')
		if n > (limit-d)/10 {
			n = limit
			clamped = true
			continue
		}
		n = n*10 + d
	}

	if neg {
		if n == uint64(math.MaxInt)+1 {
			return math.MinInt
		}
		return -int(n)
	}
	return int(n)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
