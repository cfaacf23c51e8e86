package correlator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seisline/seisline/internal/domain/intensity"
	"github.com/seisline/seisline/internal/domain/quake"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

var base = time.Date(2026, 3, 14, 9, 26, 0, 0, time.UTC)

func quickBulletin(t *testing.T, id string, authoredAt time.Time, maxIntensity string, drill bool) quake.RawBulletin {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"occurrence_time": authoredAt.Add(-30 * time.Second),
		"max_intensity":   maxIntensity,
		"observations": []map[string]string{
			{"prefecture": "Miyagi", "intensity": maxIntensity},
			{"prefecture": "Fukushima", "intensity": "3"},
		},
		"drill": drill,
	})
	require.NoError(t, err)
	return quake.RawBulletin{ID: id, Classification: quake.ClassQuick, AuthoredAt: authoredAt, Body: body}
}

func detailedBulletin(t *testing.T, id string, authoredAt time.Time) quake.RawBulletin {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"occurrence_time": authoredAt.Add(-2 * time.Minute),
		"epicenter":       "Off the coast of Miyagi",
		"magnitude":       6.2,
		"depth_km":        40,
		"observations": []map[string]string{
			{"prefecture": "Miyagi", "intensity": "5-"},
		},
	})
	require.NoError(t, err)
	return quake.RawBulletin{ID: id, Classification: quake.ClassDetailed, AuthoredAt: authoredAt, Body: body}
}

func newTestCorrelator() (*Correlator, *fakeClock) {
	clk := &fakeClock{now: base}
	return New(clk, zap.NewNop()), clk
}

func TestIngestQuickThenDetailedMerges(t *testing.T) {
	c, _ := newTestCorrelator()

	rec, emit, err := c.Ingest(quickBulletin(t, "q1", base, "5+", false))
	require.NoError(t, err)
	require.True(t, emit)
	require.Equal(t, intensity.Level5Upper, rec.MaxIntensity)
	require.Empty(t, rec.Epicenter)

	merged, emit, err := c.Ingest(detailedBulletin(t, "d1", base.Add(2*time.Minute)))
	require.NoError(t, err)
	require.True(t, emit)
	require.Same(t, rec, merged)
	require.Equal(t, "Off the coast of Miyagi", merged.Epicenter)
	require.Equal(t, 6.2, merged.Magnitude)
	require.Equal(t, 40, merged.DepthKM)
	// Quick max 5+ beats the detailed observations' 5-.
	require.Equal(t, intensity.Level5Upper, merged.MaxIntensity)
	require.Equal(t, quake.ClassDetailed, merged.Classification)
	// The merged record keeps the quick bulletin's event id.
	require.Equal(t, "q1", merged.EventID)
}

func TestIngestDetailedOutsideWindowStandsAlone(t *testing.T) {
	c, _ := newTestCorrelator()

	quick, _, err := c.Ingest(quickBulletin(t, "q1", base, "4", false))
	require.NoError(t, err)

	det, emit, err := c.Ingest(detailedBulletin(t, "d1", base.Add(Window+time.Second)))
	require.NoError(t, err)
	require.True(t, emit)
	require.NotSame(t, quick, det)
	require.Equal(t, "d1", det.EventID)
	require.Equal(t, intensity.Level5Lower, det.MaxIntensity)
}

func TestIngestWindowBoundaryInclusive(t *testing.T) {
	c, _ := newTestCorrelator()

	quick, _, err := c.Ingest(quickBulletin(t, "q1", base, "4", false))
	require.NoError(t, err)

	merged, _, err := c.Ingest(detailedBulletin(t, "d1", base.Add(Window)))
	require.NoError(t, err)
	require.Same(t, quick, merged)
}

func TestIngestFirstMatchWins(t *testing.T) {
	c, _ := newTestCorrelator()

	first, _, err := c.Ingest(quickBulletin(t, "q1", base, "4", false))
	require.NoError(t, err)
	second, _, err := c.Ingest(quickBulletin(t, "q2", base.Add(time.Minute), "4", false))
	require.NoError(t, err)

	m1, _, err := c.Ingest(detailedBulletin(t, "d1", base.Add(time.Minute)))
	require.NoError(t, err)
	require.Same(t, first, m1)

	// A second detailed bulletin pairs with the remaining quick record, not
	// the already-merged one.
	m2, _, err := c.Ingest(detailedBulletin(t, "d2", base.Add(time.Minute)))
	require.NoError(t, err)
	require.Same(t, second, m2)
}

func TestIngestMalformedDetailedLeavesStateUntouched(t *testing.T) {
	c, _ := newTestCorrelator()

	quick, _, err := c.Ingest(quickBulletin(t, "q1", base, "5-", false))
	require.NoError(t, err)

	bad := quake.RawBulletin{
		ID:             "d-bad",
		Classification: quake.ClassDetailed,
		AuthoredAt:     base.Add(time.Minute),
		Body:           []byte("{not json"),
	}
	_, emit, err := c.Ingest(bad)
	require.ErrorIs(t, err, ErrParse)
	require.False(t, emit)

	// The quick record is still available for a well-formed detailed one.
	merged, _, err := c.Ingest(detailedBulletin(t, "d1", base.Add(2*time.Minute)))
	require.NoError(t, err)
	require.Same(t, quick, merged)
}

func TestIngestMalformedQuickDropped(t *testing.T) {
	c, _ := newTestCorrelator()

	bad := quickBulletin(t, "q1", base, "nonsense", false)
	_, emit, err := c.Ingest(bad)
	require.ErrorIs(t, err, ErrParse)
	require.False(t, emit)
	require.Zero(t, c.Pending())
}

func TestIngestBelowThresholdNotForwarded(t *testing.T) {
	c, _ := newTestCorrelator()

	rec, emit, err := c.Ingest(quickBulletin(t, "q1", base, "2", false))
	require.NoError(t, err)
	require.False(t, emit)
	require.Equal(t, intensity.Level2, rec.MaxIntensity)

	_, emit, err = c.Ingest(quickBulletin(t, "q2", base, "3", false))
	require.NoError(t, err)
	require.True(t, emit)
}

func TestBufferEviction(t *testing.T) {
	c, clk := newTestCorrelator()

	_, _, err := c.Ingest(quickBulletin(t, "q1", base, "4", false))
	require.NoError(t, err)
	require.Equal(t, 1, c.Pending())

	clk.advance(2*Window + time.Second)

	// The stale candidate is gone; the detailed bulletin stands alone even
	// though its authoring timestamp would still pair.
	det, _, err := c.Ingest(detailedBulletin(t, "d1", base.Add(time.Minute)))
	require.NoError(t, err)
	require.Equal(t, "d1", det.EventID)
	require.Zero(t, c.Pending())
}

func TestMergeKeepsHigherDetailedObservation(t *testing.T) {
	c, _ := newTestCorrelator()

	rec, _, err := c.Ingest(quickBulletin(t, "q1", base, "4", false))
	require.NoError(t, err)

	body, err := json.Marshal(map[string]any{
		"occurrence_time": base.Add(-time.Minute),
		"epicenter":       "Noto Peninsula",
		"magnitude":       6.8,
		"depth_km":        12,
		"observations": []map[string]string{
			{"prefecture": "Ishikawa", "intensity": "6+"},
		},
	})
	require.NoError(t, err)
	merged, _, err := c.Ingest(quake.RawBulletin{
		ID: "d1", Classification: quake.ClassDetailed, AuthoredAt: base.Add(time.Minute), Body: body,
	})
	require.NoError(t, err)
	require.Same(t, rec, merged)
	require.Equal(t, intensity.Level6Upper, merged.MaxIntensity)
}

func TestDrillPropagates(t *testing.T) {
	c, _ := newTestCorrelator()

	rec, emit, err := c.Ingest(quickBulletin(t, "q1", base, "5-", true))
	require.NoError(t, err)
	require.True(t, rec.Drill)
	// Drill records are still forwarded; tenant matching rejects them.
	require.True(t, emit)
}
