package domain

import (
	"testing"
	"time"
)

func TestMarkSolved(t *testing.T) {
	t.Parallel()

	t.Run("explicit date", func(t *testing.T) {
		t.Parallel()
		ch := NewChallenge("C1", "T1", "pwn1", "pwn")
		ch.MarkSolved([]string{"alice", "bob"}, 1700000000)
		if !ch.IsSolved {
			t.Fatal("challenge not marked solved")
		}
		if ch.SolveDate != 1700000000 {
			t.Errorf("SolveDate = %d, want 1700000000", ch.SolveDate)
		}
		if len(ch.Solver) != 2 || ch.Solver[0] != "alice" {
			t.Errorf("Solver = %v, want [alice bob]", ch.Solver)
		}
	})

	t.Run("zero date means now", func(t *testing.T) {
		t.Parallel()
		before := time.Now().Unix()
		ch := NewChallenge("C1", "T1", "pwn1", "pwn")
		ch.MarkSolved([]string{"alice"}, 0)
		if ch.SolveDate < before || ch.SolveDate > time.Now().Unix() {
			t.Errorf("SolveDate = %d, not in current time range", ch.SolveDate)
		}
	})
}

func TestUnmarkSolvedKeepsSolveDate(t *testing.T) {
	t.Parallel()
	ch := NewChallenge("C1", "T1", "pwn1", "pwn")
	ch.MarkSolved([]string{"alice"}, 1700000000)
	ch.UnmarkSolved()

	if ch.IsSolved {
		t.Error("challenge still solved after UnmarkSolved")
	}
	if len(ch.Solver) != 0 {
		t.Errorf("Solver = %v, want empty", ch.Solver)
	}
	if ch.SolveDate != 1700000000 {
		t.Errorf("SolveDate = %d, want the old date to survive", ch.SolveDate)
	}
}

func TestAddTag(t *testing.T) {
	t.Parallel()
	ch := NewChallenge("C1", "T1", "pwn1", "pwn")

	if !ch.AddTag("heap") {
		t.Error("first AddTag = false, want true")
	}
	if ch.AddTag("heap") {
		t.Error("duplicate AddTag = true, want false")
	}

	for _, tag := range []string{"a", "b", "c", "d"} {
		ch.AddTag(tag)
	}
	if len(ch.Tags) != MaxTags {
		t.Fatalf("len(Tags) = %d, want %d", len(ch.Tags), MaxTags)
	}
	if ch.AddTag("overflow") {
		t.Error("AddTag beyond the cap = true, want false")
	}
}

func TestRemoveTag(t *testing.T) {
	t.Parallel()
	ch := NewChallenge("C1", "T1", "pwn1", "pwn")
	ch.AddTag("heap")
	ch.AddTag("rop")

	if !ch.RemoveTag("heap") {
		t.Error("RemoveTag of present tag = false, want true")
	}
	if ch.RemoveTag("heap") {
		t.Error("RemoveTag of absent tag = true, want false")
	}
	if len(ch.Tags) != 1 || ch.Tags[0] != "rop" {
		t.Errorf("Tags = %v, want [rop]", ch.Tags)
	}
}

func TestPlayers(t *testing.T) {
	t.Parallel()
	ch := NewChallenge("C1", "T1", "pwn1", "pwn")
	ch.AddPlayer(Player{UserID: "U1"})
	ch.AddPlayer(Player{UserID: "U1"})
	ch.AddPlayer(Player{UserID: "U2"})

	if len(ch.Players) != 2 {
		t.Fatalf("len(Players) = %d, want 2", len(ch.Players))
	}
	ch.RemovePlayer("U1")
	ch.RemovePlayer("missing")
	if _, ok := ch.Players["U1"]; ok {
		t.Error("U1 still present after RemovePlayer")
	}
}
