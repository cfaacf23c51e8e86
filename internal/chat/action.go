package chat

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/seisline/seisline/internal/domain/notify"
)

// Action IDs are deterministic so the button handler stays stateless with
// respect to message layout: confirm_<mode>_<departmentID>, with the
// department id repeated in the button value payload.
const actionPrefix = "confirm"

func ActionID(mode notify.Mode, departmentID uuid.UUID) string {
	return fmt.Sprintf("%s_%s_%s", actionPrefix, mode, departmentID)
}

// ParseActionID recovers the mode and department id from a button action.
func ParseActionID(actionID string) (notify.Mode, uuid.UUID, error) {
	parts := strings.SplitN(actionID, "_", 3)
	if len(parts) != 3 || parts[0] != actionPrefix {
		return "", uuid.Nil, fmt.Errorf("unrecognized action id %q", actionID)
	}
	mode := notify.Mode(parts[1])
	if mode != notify.ModeSafety && mode != notify.ModeTraining {
		return "", uuid.Nil, fmt.Errorf("unrecognized action mode %q", parts[1])
	}
	deptID, err := uuid.Parse(parts[2])
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("action department id: %w", err)
	}
	return mode, deptID, nil
}
