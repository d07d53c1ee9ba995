package service

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/victorivanov/garrison/internal/audit"
	"github.com/victorivanov/garrison/internal/config"
	"github.com/victorivanov/garrison/internal/models"
	"github.com/victorivanov/garrison/internal/permissions"
)

// RosterService applies authorized roster edits: granting and revoking
// permission levels within a group. Each edit clones the current snapshot,
// mutates the copy, persists it, and reloads through the store — the same
// path external file edits take. Nothing is installed unless persistence
// succeeded, so a failed write leaves no unpersisted-but-effective change
// behind.
type RosterService struct {
	store *config.Store
	audit *audit.Logger

	// mu serializes whole mutations (validate, clone, persist) so two
	// concurrent edits cannot both validate against the same snapshot and
	// interleave their writes.
	mu sync.Mutex
}

// NewRosterService creates a RosterService.
func NewRosterService(store *config.Store, auditLog *audit.Logger) *RosterService {
	return &RosterService{store: store, audit: auditLog}
}

// AddUser grants targetID the given level in a group.
//
// Authorization ladder:
//  1. The group must exist.
//  2. The operator needs SUPER_ADMIN in the group (cross-group escalation
//     applies).
//  3. Granting OWNER or SUPER_ADMIN requires the operator to be OWNER in
//     that group; a super admin cannot mint peers or owners.
//
// Granting a level the target already holds is a non-mutating notice
// (ErrAlreadyExists), not a failure. A user present at another level is
// moved, keeping the at-most-one-roster invariant.
func (s *RosterService) AddUser(targetID, groupID string, level permissions.Level, operatorID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.store.Current()
	g := snap.Group(groupID)
	if g == nil {
		return "", GroupNotFound(fmt.Sprintf("server group %q does not exist", groupID))
	}

	if !permissions.HasLevelInGroup(snap, operatorID, groupID, permissions.LevelSuperAdmin) {
		return "", NotAuthorized("granting permissions requires super admin")
	}

	if level == permissions.LevelUser {
		return "", NotAuthorized("the user level cannot be granted; use revoke to demote")
	}
	if level >= permissions.LevelSuperAdmin && permissions.LevelOf(g, operatorID) != permissions.LevelOwner {
		return "", SelfEscalationDenied("only an owner may grant owner or super admin")
	}

	if roster := rosterFor(g, level); roster != nil {
		if _, ok := roster[targetID]; ok {
			return "", AlreadyExists(fmt.Sprintf("user %s already holds %s in %s", targetID, level.DisplayName(), g.Name))
		}
	}

	clone := snap.Clone()
	cg := clone.Groups[groupID]
	removeFromRosters(cg, targetID)
	rosterFor(cg, level)[targetID] = struct{}{}

	if err := s.store.Replace(clone); err != nil {
		slog.Error("failed to persist roster change", "group", groupID, "error", err)
		return "", PersistenceFailure(fmt.Sprintf("could not save configuration: %v", err))
	}

	s.record(clone.Settings.LogOperations, "ADD_USER", operatorID,
		fmt.Sprintf("added user %s to group %s at level %s", targetID, groupID, level))

	return fmt.Sprintf("added %s to %s as %s", targetID, g.Name, level.DisplayName()), nil
}

// RemoveUser revokes targetID's level in a group.
//
// The operator needs SUPER_ADMIN in the group; removing an OWNER or
// SUPER_ADMIN requires being OWNER there, and an operator may never remove
// a target whose level outranks their own.
func (s *RosterService) RemoveUser(targetID, groupID, operatorID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.store.Current()
	g := snap.Group(groupID)
	if g == nil {
		return "", GroupNotFound(fmt.Sprintf("server group %q does not exist", groupID))
	}

	if !permissions.HasLevelInGroup(snap, operatorID, groupID, permissions.LevelSuperAdmin) {
		return "", NotAuthorized("revoking permissions requires super admin")
	}

	targetLevel := permissions.LevelOf(g, targetID)
	if targetLevel == permissions.LevelUser {
		return "", UserNotFound(fmt.Sprintf("user %s holds no level in %s", targetID, g.Name))
	}

	operatorLevel := permissions.LevelOf(g, operatorID)
	if targetLevel >= permissions.LevelSuperAdmin && operatorLevel != permissions.LevelOwner {
		return "", SelfEscalationDenied("only an owner may remove owners or super admins")
	}
	if targetLevel > operatorLevel {
		return "", SelfEscalationDenied("cannot remove a user who outranks you")
	}

	clone := snap.Clone()
	removeFromRosters(clone.Groups[groupID], targetID)

	if err := s.store.Replace(clone); err != nil {
		slog.Error("failed to persist roster change", "group", groupID, "error", err)
		return "", PersistenceFailure(fmt.Sprintf("could not save configuration: %v", err))
	}

	s.record(clone.Settings.LogOperations, "REMOVE_USER", operatorID,
		fmt.Sprintf("removed user %s from group %s", targetID, groupID))

	return fmt.Sprintf("removed %s from %s", targetID, g.Name), nil
}

func (s *RosterService) record(enabled bool, operation, operatorID, description string) {
	if !enabled || s.audit == nil {
		return
	}
	s.audit.Record(operation, operatorID, description)
}

func removeFromRosters(g *models.ServerGroup, userID string) {
	delete(g.Owners, userID)
	delete(g.SuperAdmins, userID)
	delete(g.Admins, userID)
}
