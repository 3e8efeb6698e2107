package protocol

import "testing"

func TestActionClassification(t *testing.T) {
	if !ActionMoveNorth.IsMove() || ActionNoop.IsMove() {
		t.Fatalf("move classification wrong")
	}
	cv := ChangeVibe("scrambler")
	if !cv.IsChangeVibe() || cv.IsMove() {
		t.Fatalf("change_vibe classification wrong")
	}
	if cv.VibeName() != "scrambler" {
		t.Fatalf("vibe name = %q", cv.VibeName())
	}
	if ActionNoop.VibeName() != "" {
		t.Fatalf("noop has a vibe name")
	}
}

func TestMoveDelta(t *testing.T) {
	cases := []struct {
		act    Action
		dr, dc int
	}{
		{ActionMoveNorth, -1, 0},
		{ActionMoveSouth, 1, 0},
		{ActionMoveEast, 0, 1},
		{ActionMoveWest, 0, -1},
		{ActionNoop, 0, 0},
		{ChangeVibe("miner"), 0, 0},
	}
	for _, c := range cases {
		dr, dc := c.act.MoveDelta()
		if dr != c.dr || dc != c.dc {
			t.Fatalf("%s delta = (%d,%d), want (%d,%d)", c.act, dr, dc, c.dr, c.dc)
		}
	}
}
