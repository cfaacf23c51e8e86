// Package correlator pairs quick intensity bulletins with detailed
// hypocenter bulletins for the same physical event using a 5-minute
// timestamp window, and merges them into canonical earthquake records.
package correlator

import (
	"go.uber.org/zap"

	"github.com/seisline/seisline/internal/domain/intensity"
	"github.com/seisline/seisline/internal/domain/notify"
	"github.com/seisline/seisline/internal/domain/quake"
)

// ForwardThreshold bounds downstream work: records below canonical
// intensity 3 never leave the correlator. This is a pre-filter, not a
// tenant rule.
const ForwardThreshold = intensity.Level3

type Correlator struct {
	buf *Buffer
	log *zap.Logger
}

func New(clock notify.Clock, log *zap.Logger) *Correlator {
	if log == nil {
		log = zap.L()
	}
	return &Correlator{
		buf: NewBuffer(clock),
		log: log.With(zap.String("component", "correlator")),
	}
}

// Ingest consumes one raw bulletin. It returns the affected record and
// whether that record should be forwarded downstream now. Malformed
// bulletins return ErrParse with the raw payload preserved in the log sink;
// correlation state is unaffected.
func (c *Correlator) Ingest(raw quake.RawBulletin) (*quake.Record, bool, error) {
	switch raw.Classification {
	case quake.ClassQuick:
		rec, err := parseQuick(raw)
		if err != nil {
			c.log.Warn("dropping malformed quick bulletin",
				zap.String("bulletin_id", raw.ID),
				zap.ByteString("raw_payload", raw.Body),
				zap.Error(err),
			)
			return nil, false, err
		}
		c.buf.Put(rec)
		return rec, c.forwardable(rec), nil

	case quake.ClassDetailed:
		// Decode before touching the buffer: a malformed detailed bulletin
		// must leave correlation state untouched.
		body, err := decodeDetailed(raw)
		if err != nil {
			c.log.Warn("dropping malformed detailed bulletin",
				zap.String("bulletin_id", raw.ID),
				zap.ByteString("raw_payload", raw.Body),
				zap.Error(err),
			)
			return nil, false, err
		}
		if rec, ok := c.buf.Match(raw.AuthoredAt); ok {
			mergeDetailed(rec, body)
			return rec, c.forwardable(rec), nil
		}
		// No quick bulletin in the window: the detailed bulletin stands as
		// its own record.
		rec := buildDetailed(raw, body)
		return rec, c.forwardable(rec), nil

	default:
		c.log.Warn("unknown bulletin classification",
			zap.String("bulletin_id", raw.ID),
			zap.String("classification", string(raw.Classification)),
		)
		return nil, false, ErrParse
	}
}

func (c *Correlator) forwardable(rec *quake.Record) bool {
	return rec.MaxIntensity.Valid() && intensity.Compare(rec.MaxIntensity, ForwardThreshold) >= 0
}

// Pending reports how many quick records are buffered, for metrics.
func (c *Correlator) Pending() int { return c.buf.Len() }
