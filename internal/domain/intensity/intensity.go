// Package intensity implements the canonical seismic intensity scale: ten
// totally ordered levels from 0 to 7, with 5 and 6 each split into a weak
// and a strong half.
package intensity

import (
	"errors"
	"strings"
)

type Level int

const (
	Level0 Level = iota
	Level1
	Level2
	Level3
	Level4
	Level5Lower
	Level5Upper
	Level6Lower
	Level6Upper
	Level7
)

var ErrInvalidIntensity = errors.New("invalid intensity label")

var canonical = [...]string{"0", "1", "2", "3", "4", "5-", "5+", "6-", "6+", "7"}

// aliases maps every accepted textual form to its level. Feed payloads mix
// ASCII shorthand ("5-") and the Japanese forms ("5弱").
var aliases = map[string]Level{
	"0":  Level0,
	"1":  Level1,
	"2":  Level2,
	"3":  Level3,
	"4":  Level4,
	"5-": Level5Lower,
	"5弱": Level5Lower,
	"5+": Level5Upper,
	"5強": Level5Upper,
	"6-": Level6Lower,
	"6弱": Level6Lower,
	"6+": Level6Upper,
	"6強": Level6Upper,
	"7":  Level7,
}

func (l Level) String() string {
	if l < Level0 || l > Level7 {
		return "?"
	}
	return canonical[l]
}

func (l Level) Valid() bool { return l >= Level0 && l <= Level7 }

// Normalize maps a textual intensity label to its canonical level.
// Unrecognized input yields ErrInvalidIntensity; callers treat that as
// "condition not met", never as a fatal error.
func Normalize(label string) (Level, error) {
	s := strings.TrimSpace(label)
	s = strings.TrimPrefix(s, "震度")
	if l, ok := aliases[s]; ok {
		return l, nil
	}
	return Level(-1), ErrInvalidIntensity
}

// Compare returns -1, 0 or +1 as a orders before, equal to or after b.
func Compare(a, b Level) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether label satisfies the min threshold. An invalid
// label never satisfies anything.
func AtLeast(label, min Level) bool {
	return label.Valid() && min.Valid() && Compare(label, min) >= 0
}
