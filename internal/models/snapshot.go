package models

import "time"

// GlobalSettings holds engine-wide configuration.
type GlobalSettings struct {
	DefaultGroupID       string
	CrossGroupEscalation bool
	PermissionCacheTTL   time.Duration
	LogOperations        bool
}

// Snapshot is one fully-parsed configuration generation. It is immutable
// once constructed; reloads replace the whole snapshot rather than mutating
// it in place.
type Snapshot struct {
	Settings GlobalSettings
	Groups   map[string]*ServerGroup

	// GroupOrder lists group IDs in configuration document order. It gives
	// deterministic iteration where "first group" semantics matter.
	GroupOrder []string
}

// EmptySnapshot returns a snapshot with no groups and fail-closed defaults.
// It is installed when no configuration has ever loaded successfully, so
// every permission check denies instead of crashing.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		Settings: GlobalSettings{LogOperations: true},
		Groups:   map[string]*ServerGroup{},
	}
}

// Group returns the group with the given ID, or nil.
func (s *Snapshot) Group(id string) *ServerGroup {
	return s.Groups[id]
}

// OrderedGroups returns the groups in configuration document order.
func (s *Snapshot) OrderedGroups() []*ServerGroup {
	out := make([]*ServerGroup, 0, len(s.GroupOrder))
	for _, id := range s.GroupOrder {
		if g := s.Groups[id]; g != nil {
			out = append(out, g)
		}
	}
	return out
}

// Clone returns a deep copy of the snapshot. Mutation operations clone the
// current snapshot, edit the copy, and persist it; the original is never
// touched.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		Settings:   s.Settings,
		Groups:     make(map[string]*ServerGroup, len(s.Groups)),
		GroupOrder: append([]string(nil), s.GroupOrder...),
	}
	for id, g := range s.Groups {
		c.Groups[id] = g.Clone()
	}
	return c
}
