package intensity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want Level
	}{
		{"0", Level0},
		{"3", Level3},
		{"4", Level4},
		{"5-", Level5Lower},
		{"5弱", Level5Lower},
		{"5+", Level5Upper},
		{"5強", Level5Upper},
		{"6-", Level6Lower},
		{"6弱", Level6Lower},
		{"6+", Level6Upper},
		{"6強", Level6Upper},
		{"7", Level7},
		{" 5- ", Level5Lower},
		{"震度5弱", Level5Lower},
		{"震度7", Level7},
	}
	for _, tc := range cases {
		got, err := Normalize(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		require.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, label := range []string{"0", "1", "2", "3", "4", "5-", "5+", "6-", "6+", "7"} {
		lvl, err := Normalize(label)
		require.NoError(t, err)
		again, err := Normalize(lvl.String())
		require.NoError(t, err)
		require.Equal(t, lvl, again)
	}
}

func TestNormalizeInvalid(t *testing.T) {
	for _, in := range []string{"", "8", "5", "weak", "5--", "強5"} {
		_, err := Normalize(in)
		require.ErrorIs(t, err, ErrInvalidIntensity, "input %q", in)
	}
}

func TestTotalOrder(t *testing.T) {
	ordered := []Level{Level0, Level1, Level2, Level3, Level4, Level5Lower, Level5Upper, Level6Lower, Level6Upper, Level7}
	for i := 1; i < len(ordered); i++ {
		require.Equal(t, -1, Compare(ordered[i-1], ordered[i]))
		require.Equal(t, 1, Compare(ordered[i], ordered[i-1]))
		require.Equal(t, 0, Compare(ordered[i], ordered[i]))
	}
}

func TestAtLeast(t *testing.T) {
	require.True(t, AtLeast(Level5Upper, Level5Lower))
	require.True(t, AtLeast(Level5Lower, Level5Lower))
	require.False(t, AtLeast(Level4, Level5Lower))

	invalid := Level(-1)
	require.False(t, AtLeast(invalid, Level0))
	require.False(t, AtLeast(Level7, invalid))
}

func TestString(t *testing.T) {
	require.Equal(t, "5-", Level5Lower.String())
	require.Equal(t, "6+", Level6Upper.String())
	require.Equal(t, "?", Level(-1).String())
	require.Equal(t, "?", Level(10).String())
}
