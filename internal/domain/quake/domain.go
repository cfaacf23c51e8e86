package quake

import (
	"time"

	"github.com/seisline/seisline/internal/domain/intensity"
)

type Classification string

const (
	ClassQuick    Classification = "quick"
	ClassDetailed Classification = "detailed"
)

// RawBulletin is one telegram as delivered by the feed: an envelope plus an
// unparsed body. AuthoredAt is the feed's own authoring timestamp, the only
// key usable for correlation (quick and detailed telegrams do not share an
// event id on the wire).
type RawBulletin struct {
	ID             string         `json:"id"`
	Classification Classification `json:"classification"`
	AuthoredAt     time.Time      `json:"authored_at"`
	DetailURL      string         `json:"detail_url"`
	Body           []byte         `json:"body"`
}

// Observation is one prefecture-level intensity reading.
type Observation struct {
	Prefecture string          `json:"prefecture"`
	Intensity  intensity.Level `json:"intensity"`
}

// Record is the merged, canonical representation of one physical seismic
// event. A quick bulletin creates it; a correlated detailed bulletin mutates
// it in place; once emitted downstream it is treated as immutable.
type Record struct {
	EventID        string          `json:"event_id"`
	Classification Classification  `json:"classification"`
	AuthoredAt     time.Time       `json:"authored_at"`
	OccurrenceTime time.Time       `json:"occurrence_time"`
	Epicenter      string          `json:"epicenter"`
	Magnitude      float64         `json:"magnitude"`
	DepthKM        int             `json:"depth_km"`
	MaxIntensity   intensity.Level `json:"max_intensity"`
	Observations   []Observation   `json:"observations"`
	Drill          bool            `json:"drill"`
}

// ObservedIn returns the intensity observed in the given prefecture and
// whether any observation exists for it.
func (r *Record) ObservedIn(prefecture string) (intensity.Level, bool) {
	for _, o := range r.Observations {
		if o.Prefecture == prefecture {
			return o.Intensity, true
		}
	}
	return intensity.Level(-1), false
}
