package service

import (
	"github.com/victorivanov/garrison/internal/config"
	"github.com/victorivanov/garrison/internal/models"
	"github.com/victorivanov/garrison/internal/permissions"
)

// AliasResolver maps human-typed server identifiers to canonical server
// IDs. Resolution is scoped to one group: the same token may legitimately
// name different servers in different groups.
type AliasResolver struct {
	store *config.Store
}

// NewAliasResolver creates an AliasResolver backed by the store.
func NewAliasResolver(store *config.Store) *AliasResolver {
	return &AliasResolver{store: store}
}

// ResolveInGroup resolves a token against one group.
//  1. Exact match on a canonical server ID.
//  2. Exact match on a configured alias.
//  3. Exact match on a server display name.
//
// The first rule that hits wins; ok is false when none match.
func (r *AliasResolver) ResolveInGroup(g *models.ServerGroup, token string) (serverID string, ok bool) {
	if g == nil || token == "" {
		return "", false
	}
	for _, srv := range g.Servers {
		if srv.ServerID == token {
			return srv.ServerID, true
		}
	}
	if target, found := g.ServerAliases[token]; found {
		return target, true
	}
	for _, srv := range g.Servers {
		if srv.DisplayName == token {
			return srv.ServerID, true
		}
	}
	return "", false
}

// Resolve resolves a token within the group bound to chatGroupID.
func (r *AliasResolver) Resolve(chatGroupID, token string) (string, bool) {
	g := permissions.GroupForChatGroup(r.store.Current(), chatGroupID)
	return r.ResolveInGroup(g, token)
}

// EnabledServers lists the enabled servers of the group bound to
// chatGroupID.
func (r *AliasResolver) EnabledServers(chatGroupID string) []models.ServerDescriptor {
	g := permissions.GroupForChatGroup(r.store.Current(), chatGroupID)
	if g == nil {
		return nil
	}
	return g.EnabledServers()
}

// DisplayName returns the display name for a canonical server ID in the
// group bound to chatGroupID, falling back to the ID itself.
func (r *AliasResolver) DisplayName(chatGroupID, serverID string) string {
	g := permissions.GroupForChatGroup(r.store.Current(), chatGroupID)
	if g != nil {
		for _, srv := range g.Servers {
			if srv.ServerID == serverID {
				return srv.DisplayName
			}
		}
	}
	return serverID
}
