package permissions

import (
	"testing"

	"pgregory.net/rapid"
)

var levelGen = rapid.SampledFrom([]Level{LevelUser, LevelAdmin, LevelSuperAdmin, LevelOwner})

// Monotonicity: holding a permission at some level implies holding it at
// every lower level.
func TestHasLevelMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := testGroup("g1")
		users := rapid.SliceOfN(rapid.StringMatching(`u[0-9]{1,4}`), 0, 8).Draw(t, "users")
		for _, u := range users {
			switch levelGen.Draw(t, "roster level") {
			case LevelOwner:
				g.Owners[u] = struct{}{}
			case LevelSuperAdmin:
				g.SuperAdmins[u] = struct{}{}
			case LevelAdmin:
				g.Admins[u] = struct{}{}
			}
		}

		user := rapid.StringMatching(`u[0-9]{1,4}`).Draw(t, "user")
		lo := levelGen.Draw(t, "lo")
		hi := levelGen.Draw(t, "hi")
		if lo > hi {
			lo, hi = hi, lo
		}

		if HasLevel(g, user, hi) && !HasLevel(g, user, lo) {
			t.Fatalf("user %q passes %s but not lower level %s", user, hi, lo)
		}
	})
}

// LevelOf always reports a level that passes its own check and fails the
// next one up.
func TestLevelOfConsistent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := testGroup("g1")
		user := rapid.StringMatching(`u[0-9]{1,3}`).Draw(t, "user")
		if rapid.Bool().Draw(t, "owner") {
			g.Owners[user] = struct{}{}
		}
		if rapid.Bool().Draw(t, "super") {
			g.SuperAdmins[user] = struct{}{}
		}
		if rapid.Bool().Draw(t, "admin") {
			g.Admins[user] = struct{}{}
		}

		level := LevelOf(g, user)
		if !HasLevel(g, user, level) {
			t.Fatalf("user fails check at own level %s", level)
		}
		if level < LevelOwner && HasLevel(g, user, level+1) {
			t.Fatalf("user at %s passes check at %s", level, level+1)
		}
	})
}
