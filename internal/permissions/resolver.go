package permissions

import "github.com/victorivanov/garrison/internal/models"

// readOnlyFeatures are the features plain users may exercise, provided a
// group does not explicitly disable them.
var readOnlyFeatures = map[string]struct{}{
	"allow_player_list": {},
}

// LevelOf returns the highest roster level containing userID, or LevelUser
// if the user appears in none. A malformed group listing a user at several
// levels is tolerated; the highest one wins.
func LevelOf(g *models.ServerGroup, userID string) Level {
	if g == nil {
		return LevelUser
	}
	if _, ok := g.Owners[userID]; ok {
		return LevelOwner
	}
	if _, ok := g.SuperAdmins[userID]; ok {
		return LevelSuperAdmin
	}
	if _, ok := g.Admins[userID]; ok {
		return LevelAdmin
	}
	return LevelUser
}

// HasLevel returns true if userID holds at least the required level in the
// group.
func HasLevel(g *models.ServerGroup, userID string, required Level) bool {
	return LevelOf(g, userID).AtLeast(required)
}

// HasFeature decides whether userID may use a named feature in the group.
//  1. OWNER and SUPER_ADMIN get every feature unless it is explicitly set
//     to false.
//  2. ADMIN gets a feature only when it is explicitly set to true.
//  3. USER gets only the read-only whitelist, and only when the feature is
//     not explicitly disabled.
func HasFeature(g *models.ServerGroup, userID, feature string) bool {
	if g == nil {
		return false
	}
	switch LevelOf(g, userID) {
	case LevelOwner, LevelSuperAdmin:
		if enabled, ok := g.Features[feature]; ok {
			return enabled
		}
		return true
	case LevelAdmin:
		return g.Features[feature]
	default:
		if _, ok := readOnlyFeatures[feature]; !ok {
			return false
		}
		if enabled, ok := g.Features[feature]; ok {
			return enabled
		}
		return true
	}
}

// AllowsChatGroup returns true if the chat group is bound to this server
// group.
func AllowsChatGroup(g *models.ServerGroup, chatGroupID string) bool {
	if g == nil {
		return false
	}
	_, ok := g.AllowedChatGroups[chatGroupID]
	return ok
}

// GroupForChatGroup resolves a chat group to a server group.
//  1. The first group (in document order) whose allowed set contains the
//     chat group wins.
//  2. Otherwise the configured default group.
//  3. Otherwise the first configured group.
//
// Returns nil only when the snapshot holds no groups at all; callers treat
// that as deny.
func GroupForChatGroup(snap *models.Snapshot, chatGroupID string) *models.ServerGroup {
	if snap == nil {
		return nil
	}
	if chatGroupID != "" {
		for _, g := range snap.OrderedGroups() {
			if AllowsChatGroup(g, chatGroupID) {
				return g
			}
		}
	}
	if g := snap.Group(snap.Settings.DefaultGroupID); g != nil {
		return g
	}
	if groups := snap.OrderedGroups(); len(groups) > 0 {
		return groups[0]
	}
	return nil
}

// IsOwnerAnywhere returns true if userID is OWNER in any configured group.
func IsOwnerAnywhere(snap *models.Snapshot, userID string) bool {
	if snap == nil {
		return false
	}
	for _, g := range snap.Groups {
		if _, ok := g.Owners[userID]; ok {
			return true
		}
	}
	return false
}

// HasLevelInGroup checks userID against the group identified by groupID.
// When cross-group escalation is enabled, a user who is OWNER in any group
// passes regardless of the local roster. Returns false for unknown groups.
func HasLevelInGroup(snap *models.Snapshot, userID, groupID string, required Level) bool {
	if snap == nil {
		return false
	}
	g := snap.Group(groupID)
	if g == nil {
		return false
	}
	if snap.Settings.CrossGroupEscalation && IsOwnerAnywhere(snap, userID) {
		return true
	}
	return HasLevel(g, userID, required)
}

// HasLevelInChatGroup resolves the chat group to a server group and checks
// the user's level there, applying cross-group escalation when enabled.
func HasLevelInChatGroup(snap *models.Snapshot, userID, chatGroupID string, required Level) bool {
	if snap == nil {
		return false
	}
	g := GroupForChatGroup(snap, chatGroupID)
	if g == nil {
		return false
	}
	if snap.Settings.CrossGroupEscalation && IsOwnerAnywhere(snap, userID) {
		return true
	}
	return HasLevel(g, userID, required)
}

// HasFeatureInChatGroup resolves the chat group and checks the feature
// there. Cross-group escalation never applies to feature flags; feature
// gating is strictly local to the resolved group.
func HasFeatureInChatGroup(snap *models.Snapshot, userID, chatGroupID, feature string) bool {
	return HasFeature(GroupForChatGroup(snap, chatGroupID), userID, feature)
}

// LevelInChatGroup resolves the chat group and returns the user's level in
// it. LevelUser when nothing resolves.
func LevelInChatGroup(snap *models.Snapshot, userID, chatGroupID string) Level {
	return LevelOf(GroupForChatGroup(snap, chatGroupID), userID)
}
