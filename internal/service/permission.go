package service

import (
	"sort"

	"github.com/victorivanov/garrison/internal/config"
	"github.com/victorivanov/garrison/internal/models"
	"github.com/victorivanov/garrison/internal/permissions"
)

// PermissionService answers authorization queries for the command layer.
// Every query reads one snapshot from the store and evaluates pure
// functions over it; queries never fail, an unresolvable context degrades
// to deny.
type PermissionService struct {
	store *config.Store
}

// NewPermissionService creates a PermissionService backed by the store.
func NewPermissionService(store *config.Store) *PermissionService {
	return &PermissionService{store: store}
}

// GroupFor resolves a chat group to its server group. chatGroupID may be
// empty (private message context); resolution then falls through to the
// default group. Nil only when no groups are configured.
func (s *PermissionService) GroupFor(chatGroupID string) *models.ServerGroup {
	return permissions.GroupForChatGroup(s.store.Current(), chatGroupID)
}

// HasLevel reports whether the user holds at least the required level in
// the server group bound to chatGroupID, applying cross-group owner
// escalation when enabled.
func (s *PermissionService) HasLevel(userID, chatGroupID string, required permissions.Level) bool {
	return permissions.HasLevelInChatGroup(s.store.Current(), userID, chatGroupID, required)
}

// IsOwner reports whether the user is OWNER in the resolved group.
func (s *PermissionService) IsOwner(userID, chatGroupID string) bool {
	return s.HasLevel(userID, chatGroupID, permissions.LevelOwner)
}

// IsSuperAdmin reports whether the user is SUPER_ADMIN or higher.
func (s *PermissionService) IsSuperAdmin(userID, chatGroupID string) bool {
	return s.HasLevel(userID, chatGroupID, permissions.LevelSuperAdmin)
}

// IsAdmin reports whether the user is ADMIN or higher.
func (s *PermissionService) IsAdmin(userID, chatGroupID string) bool {
	return s.HasLevel(userID, chatGroupID, permissions.LevelAdmin)
}

// HasFeature reports whether the user may use the named feature in the
// resolved group. Feature gating is strictly local; escalation does not
// apply.
func (s *PermissionService) HasFeature(userID, chatGroupID, feature string) bool {
	return permissions.HasFeatureInChatGroup(s.store.Current(), userID, chatGroupID, feature)
}

// UserLevel returns the user's level in the resolved group.
func (s *PermissionService) UserLevel(userID, chatGroupID string) permissions.Level {
	return permissions.LevelInChatGroup(s.store.Current(), userID, chatGroupID)
}

// GroupSummary describes one server group for listings.
type GroupSummary struct {
	ID             string
	Name           string
	Description    string
	EnabledServers int
	Owners         int
	SuperAdmins    int
	Admins         int
}

// GroupSummaries lists all configured groups in document order.
func (s *PermissionService) GroupSummaries() []GroupSummary {
	snap := s.store.Current()
	out := make([]GroupSummary, 0, len(snap.Groups))
	for _, g := range snap.OrderedGroups() {
		out = append(out, GroupSummary{
			ID:             g.ID,
			Name:           g.Name,
			Description:    g.Description,
			EnabledServers: len(g.EnabledServers()),
			Owners:         len(g.Owners),
			SuperAdmins:    len(g.SuperAdmins),
			Admins:         len(g.Admins),
		})
	}
	return out
}

// UsersAtLevel returns the roster at exactly the given level in a group,
// sorted. Empty for unknown groups or LevelUser.
func (s *PermissionService) UsersAtLevel(groupID string, level permissions.Level) []string {
	g := s.store.Current().Group(groupID)
	if g == nil {
		return nil
	}
	roster := rosterFor(g, level)
	if roster == nil {
		return nil
	}
	out := make([]string, 0, len(roster))
	for u := range roster {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// rosterFor returns the roster set holding the given level, or nil for
// LevelUser (which has no roster; it is the implicit base level).
func rosterFor(g *models.ServerGroup, level permissions.Level) map[string]struct{} {
	switch level {
	case permissions.LevelOwner:
		return g.Owners
	case permissions.LevelSuperAdmin:
		return g.SuperAdmins
	case permissions.LevelAdmin:
		return g.Admins
	default:
		return nil
	}
}
