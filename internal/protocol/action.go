package protocol

import "strings"

// Action is one entry of the fixed per-tick action vocabulary.
type Action string

const (
	ActionNoop      Action = "noop"
	ActionMoveNorth Action = "move_north"
	ActionMoveSouth Action = "move_south"
	ActionMoveEast  Action = "move_east"
	ActionMoveWest  Action = "move_west"
)

const changeVibePrefix = "change_vibe_"

// ChangeVibe returns the action that switches the agent to the named vibe.
func ChangeVibe(name string) Action {
	return Action(changeVibePrefix + name)
}

func (a Action) IsMove() bool {
	return strings.HasPrefix(string(a), "move_")
}

func (a Action) IsChangeVibe() bool {
	return strings.HasPrefix(string(a), changeVibePrefix)
}

// VibeName returns the vibe a change_vibe action selects, or "".
func (a Action) VibeName() string {
	if !a.IsChangeVibe() {
		return ""
	}
	return strings.TrimPrefix(string(a), changeVibePrefix)
}

// MoveDelta returns the (row, col) delta of a move action.
// Non-move actions return (0, 0).
func (a Action) MoveDelta() (dr, dc int) {
	switch a {
	case ActionMoveNorth:
		return -1, 0
	case ActionMoveSouth:
		return 1, 0
	case ActionMoveEast:
		return 0, 1
	case ActionMoveWest:
		return 0, -1
	}
	return 0, 0
}
