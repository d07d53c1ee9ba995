package models

// ServerGroup is an independently administered partition of game servers
// with its own roster, feature flags, and bound chat groups.
type ServerGroup struct {
	ID          string
	Name        string
	Description string

	// AllowedChatGroups holds the chat-platform conversation IDs bound to
	// this group.
	AllowedChatGroups map[string]struct{}

	Servers       []ServerDescriptor
	ServerAliases map[string]string

	// Rosters per permission level. A well-formed group lists a user in at
	// most one of these; resolution tolerates overlap and reports the
	// highest level.
	Owners      map[string]struct{}
	SuperAdmins map[string]struct{}
	Admins      map[string]struct{}

	Features map[string]bool
}

// ServerDescriptor identifies one game server belonging to a group.
type ServerDescriptor struct {
	ServerID    string `json:"server_id"`
	DisplayName string `json:"display_name"`
	Enabled     bool   `json:"enabled"`
}

// EnabledServers returns the group's servers with Enabled set.
func (g *ServerGroup) EnabledServers() []ServerDescriptor {
	var out []ServerDescriptor
	for _, srv := range g.Servers {
		if srv.Enabled {
			out = append(out, srv)
		}
	}
	return out
}

// Clone returns a deep copy of the group.
func (g *ServerGroup) Clone() *ServerGroup {
	c := &ServerGroup{
		ID:                g.ID,
		Name:              g.Name,
		Description:       g.Description,
		AllowedChatGroups: cloneSet(g.AllowedChatGroups),
		Servers:           append([]ServerDescriptor(nil), g.Servers...),
		ServerAliases:     cloneMap(g.ServerAliases),
		Owners:            cloneSet(g.Owners),
		SuperAdmins:       cloneSet(g.SuperAdmins),
		Admins:            cloneSet(g.Admins),
		Features:          cloneMap(g.Features),
	}
	return c
}

func cloneSet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

func cloneMap[V string | bool](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
