package correlator

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/seisline/seisline/internal/domain/intensity"
	"github.com/seisline/seisline/internal/domain/quake"
)

// ErrParse marks a malformed bulletin. The whole bulletin is dropped, the
// raw payload is handed to the log sink for manual inspection, and
// correlation state stays untouched.
var ErrParse = errors.New("bulletin parse failure")

type rawObservation struct {
	Prefecture string `json:"prefecture"`
	Intensity  string `json:"intensity"`
}

type quickBody struct {
	OccurrenceTime time.Time        `json:"occurrence_time"`
	MaxIntensity   string           `json:"max_intensity"`
	Observations   []rawObservation `json:"observations"`
	Drill          bool             `json:"drill"`
}

type detailedBody struct {
	OccurrenceTime time.Time        `json:"occurrence_time"`
	Epicenter      string           `json:"epicenter"`
	Magnitude      float64          `json:"magnitude"`
	DepthKM        int              `json:"depth_km"`
	Observations   []rawObservation `json:"observations"`
	Drill          bool             `json:"drill"`
}

func parseObservations(raw []rawObservation) []quake.Observation {
	out := make([]quake.Observation, 0, len(raw))
	for _, o := range raw {
		lvl, err := intensity.Normalize(o.Intensity)
		if err != nil {
			// An unreadable reading is skipped, not fatal: the rest of the
			// bulletin is still usable.
			continue
		}
		out = append(out, quake.Observation{Prefecture: o.Prefecture, Intensity: lvl})
	}
	return out
}

func maxObserved(obs []quake.Observation) (intensity.Level, bool) {
	found := false
	max := intensity.Level(-1)
	for _, o := range obs {
		if !found || intensity.Compare(o.Intensity, max) > 0 {
			max = o.Intensity
			found = true
		}
	}
	return max, found
}

// parseQuick builds a fresh record from a quick intensity bulletin.
func parseQuick(raw quake.RawBulletin) (*quake.Record, error) {
	var body quickBody
	if err := json.Unmarshal(raw.Body, &body); err != nil {
		return nil, fmt.Errorf("%w: quick %s: %v", ErrParse, raw.ID, err)
	}
	lvl, err := intensity.Normalize(body.MaxIntensity)
	if err != nil {
		return nil, fmt.Errorf("%w: quick %s: max intensity %q", ErrParse, raw.ID, body.MaxIntensity)
	}
	return &quake.Record{
		EventID:        raw.ID,
		Classification: quake.ClassQuick,
		AuthoredAt:     raw.AuthoredAt,
		OccurrenceTime: body.OccurrenceTime,
		MaxIntensity:   lvl,
		Observations:   parseObservations(body.Observations),
		Drill:          body.Drill,
	}, nil
}

func decodeDetailed(raw quake.RawBulletin) (*detailedBody, error) {
	var body detailedBody
	if err := json.Unmarshal(raw.Body, &body); err != nil {
		return nil, fmt.Errorf("%w: detailed %s: %v", ErrParse, raw.ID, err)
	}
	return &body, nil
}

// buildDetailed makes a standalone record from a detailed hypocenter
// bulletin when no quick bulletin correlates.
func buildDetailed(raw quake.RawBulletin, body *detailedBody) *quake.Record {
	rec := &quake.Record{
		EventID:        raw.ID,
		Classification: quake.ClassDetailed,
		AuthoredAt:     raw.AuthoredAt,
		OccurrenceTime: body.OccurrenceTime,
		Epicenter:      body.Epicenter,
		Magnitude:      body.Magnitude,
		DepthKM:        body.DepthKM,
		Observations:   parseObservations(body.Observations),
		Drill:          body.Drill,
	}
	if max, ok := maxObserved(rec.Observations); ok {
		rec.MaxIntensity = max
	} else {
		rec.MaxIntensity = intensity.Level(-1)
	}
	return rec
}

// mergeDetailed folds a decoded detailed bulletin into an existing quick
// record. Physical fields are overwritten; the quick bulletin's max
// intensity is kept unless the detailed observation list implies a higher
// one.
func mergeDetailed(rec *quake.Record, body *detailedBody) {
	rec.Classification = quake.ClassDetailed
	rec.OccurrenceTime = body.OccurrenceTime
	rec.Epicenter = body.Epicenter
	rec.Magnitude = body.Magnitude
	rec.DepthKM = body.DepthKM
	if obs := parseObservations(body.Observations); len(obs) > 0 {
		rec.Observations = obs
		if max, ok := maxObserved(obs); ok && intensity.Compare(max, rec.MaxIntensity) > 0 {
			rec.MaxIntensity = max
		}
	}
	rec.Drill = rec.Drill || body.Drill
}
