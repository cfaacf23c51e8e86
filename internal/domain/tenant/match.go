package tenant

import (
	"github.com/seisline/seisline/internal/domain/intensity"
	"github.com/seisline/seisline/internal/domain/quake"
)

// Matches evaluates a merged earthquake record against the condition.
// Pure; callers must not re-evaluate a record already dispatched for this
// workspace (the (event_id, workspace_id) storage constraint backs that).
//
// The rule: drill telegrams never match. Without a prefecture whitelist the
// overall maximum must reach MinIntensity. With a whitelist, a targeted
// prefecture's own observation must reach MinIntensity even if the overall
// maximum is recorded elsewhere.
func (c Condition) Matches(rec *quake.Record) bool {
	if rec == nil || rec.Drill {
		return false
	}
	if !c.MinIntensity.Valid() {
		return false
	}

	if len(c.TargetPrefectures) == 0 {
		return intensity.AtLeast(rec.MaxIntensity, c.MinIntensity)
	}

	for _, p := range c.TargetPrefectures {
		obs, ok := rec.ObservedIn(p)
		if ok && intensity.AtLeast(obs, c.MinIntensity) {
			return true
		}
	}
	return false
}
