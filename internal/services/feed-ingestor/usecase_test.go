package ingestor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seisline/seisline/internal/correlator"
	"github.com/seisline/seisline/internal/domain/quake"
)

type stubFeed struct {
	quick    []quake.RawBulletin
	detailed []quake.RawBulletin
	details  map[string][]byte
}

func (s *stubFeed) FetchBulletins(_ context.Context, c quake.Classification, _ int) ([]quake.RawBulletin, error) {
	if c == quake.ClassQuick {
		return s.quick, nil
	}
	return s.detailed, nil
}

func (s *stubFeed) FetchDetail(_ context.Context, url string) ([]byte, error) {
	body, ok := s.details[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return body, nil
}

type stubEvents struct {
	published []*quake.Record
	fail      bool
}

func (s *stubEvents) PublishQuakeMatched(_ context.Context, rec *quake.Record) error {
	if s.fail {
		return errors.New("broker down")
	}
	s.published = append(s.published, rec)
	return nil
}

type tickClock struct{ now time.Time }

func (c *tickClock) Now() time.Time { return c.now }

var tickBase = time.Date(2026, 3, 14, 9, 26, 0, 0, time.UTC)

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func quickRaw(t *testing.T, id string, at time.Time, max string) quake.RawBulletin {
	return quake.RawBulletin{
		ID:             id,
		Classification: quake.ClassQuick,
		AuthoredAt:     at,
		Body: mustJSON(t, map[string]any{
			"occurrence_time": at.Add(-30 * time.Second),
			"max_intensity":   max,
		}),
	}
}

func detailedRaw(t *testing.T, id string, at time.Time) quake.RawBulletin {
	return quake.RawBulletin{
		ID:             id,
		Classification: quake.ClassDetailed,
		AuthoredAt:     at,
		Body: mustJSON(t, map[string]any{
			"occurrence_time": at.Add(-time.Minute),
			"epicenter":       "Off the coast of Miyagi",
			"magnitude":       6.2,
			"depth_km":        40,
		}),
	}
}

func TestTickCorrelatesPairWithinOnePoll(t *testing.T) {
	feed := &stubFeed{
		quick:    []quake.RawBulletin{quickRaw(t, "q1", tickBase, "5+")},
		detailed: []quake.RawBulletin{detailedRaw(t, "d1", tickBase.Add(time.Minute))},
	}
	events := &stubEvents{}
	uc := NewUC(feed, correlator.New(&tickClock{now: tickBase}, zap.NewNop()), events, zap.NewNop())

	fetched, published, errs, err := uc.Tick(context.Background(), 50)
	require.NoError(t, err)
	require.Equal(t, 2, fetched)
	require.Equal(t, 2, published)
	require.Zero(t, errs)

	// The quick record is published once on its own, then again merged.
	require.Same(t, events.published[0], events.published[1])
	require.Equal(t, "Off the coast of Miyagi", events.published[1].Epicenter)
}

func TestTickSkipsSeenBulletins(t *testing.T) {
	feed := &stubFeed{quick: []quake.RawBulletin{quickRaw(t, "q1", tickBase, "4")}}
	events := &stubEvents{}
	uc := NewUC(feed, correlator.New(&tickClock{now: tickBase}, zap.NewNop()), events, zap.NewNop())

	_, published, _, err := uc.Tick(context.Background(), 50)
	require.NoError(t, err)
	require.Equal(t, 1, published)

	fetched, published, _, err := uc.Tick(context.Background(), 50)
	require.NoError(t, err)
	require.Zero(t, fetched)
	require.Zero(t, published)
}

func TestTickFetchesDetailBodyLazily(t *testing.T) {
	raw := quickRaw(t, "q1", tickBase, "4")
	body := raw.Body
	raw.Body = nil
	raw.DetailURL = "https://feed.local/bulletins/q1"

	feed := &stubFeed{
		quick:   []quake.RawBulletin{raw},
		details: map[string][]byte{"https://feed.local/bulletins/q1": body},
	}
	events := &stubEvents{}
	uc := NewUC(feed, correlator.New(&tickClock{now: tickBase}, zap.NewNop()), events, zap.NewNop())

	_, published, errs, err := uc.Tick(context.Background(), 50)
	require.NoError(t, err)
	require.Equal(t, 1, published)
	require.Zero(t, errs)
}

func TestTickDetailFetchFailureLeavesBulletinForNextTick(t *testing.T) {
	raw := quickRaw(t, "q1", tickBase, "4")
	body := raw.Body
	raw.Body = nil
	raw.DetailURL = "https://feed.local/bulletins/q1"

	feed := &stubFeed{quick: []quake.RawBulletin{raw}, details: map[string][]byte{}}
	events := &stubEvents{}
	uc := NewUC(feed, correlator.New(&tickClock{now: tickBase}, zap.NewNop()), events, zap.NewNop())

	_, published, errs, err := uc.Tick(context.Background(), 50)
	require.NoError(t, err)
	require.Zero(t, published)
	require.Equal(t, 1, errs)

	// Next tick the detail endpoint recovers and the bulletin goes through.
	feed.details["https://feed.local/bulletins/q1"] = body
	_, published, errs, err = uc.Tick(context.Background(), 50)
	require.NoError(t, err)
	require.Equal(t, 1, published)
	require.Zero(t, errs)
}

func TestTickMalformedBulletinCountedNotFatal(t *testing.T) {
	bad := quake.RawBulletin{
		ID:             "q-bad",
		Classification: quake.ClassQuick,
		AuthoredAt:     tickBase,
		Body:           []byte("{oops"),
	}
	feed := &stubFeed{quick: []quake.RawBulletin{bad, quickRaw(t, "q1", tickBase, "4")}}
	events := &stubEvents{}
	uc := NewUC(feed, correlator.New(&tickClock{now: tickBase}, zap.NewNop()), events, zap.NewNop())

	fetched, published, errs, err := uc.Tick(context.Background(), 50)
	require.NoError(t, err)
	require.Equal(t, 2, fetched)
	require.Equal(t, 1, published)
	require.Equal(t, 1, errs)
}
