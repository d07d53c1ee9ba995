package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/victorivanov/garrison/internal/models"
)

// Sentinel errors for configuration loading.
var (
	ErrNotFound = errors.New("config file not found")
	ErrParse    = errors.New("config parse error")
)

// document mirrors the configuration file. Decoding is strict: unknown
// fields are a parse error rather than a silently ignored typo.
type document struct {
	GlobalSettings globalSettings         `yaml:"global_settings"`
	ServerGroups   map[string]groupConfig `yaml:"server_groups"`
}

type globalSettings struct {
	DefaultServerGroup          string `yaml:"default_server_group"`
	EnableCrossGroupPermissions *bool  `yaml:"enable_cross_group_permissions"`
	PermissionCacheTTL          *int   `yaml:"permission_cache_ttl"`
	LogOperations               *bool  `yaml:"log_operations"`
}

type groupConfig struct {
	Name              string            `yaml:"name"`
	Description       string            `yaml:"description"`
	AllowedChatGroups []string          `yaml:"allowed_chat_groups"`
	GameServers       []serverConfig    `yaml:"game_servers"`
	ServerAliases     map[string]string `yaml:"server_aliases"`
	Permissions       rosterConfig      `yaml:"permissions"`
	Features          map[string]bool   `yaml:"features"`
}

type serverConfig struct {
	ServerID    string `yaml:"server_id"`
	DisplayName string `yaml:"display_name"`
	Enabled     *bool  `yaml:"enabled"`
}

type rosterConfig struct {
	Owners      []string `yaml:"owners"`
	SuperAdmins []string `yaml:"super_admins"`
	Admins      []string `yaml:"admins"`
}

const (
	defaultCacheTTLSeconds = 300
)

// Parse decodes and validates a configuration document into an immutable
// snapshot. The whole document is parsed and checked before any group
// becomes visible; a failure yields no partial snapshot.
func Parse(data []byte) (*models.Snapshot, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: document is empty", ErrParse)
		}
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	order, err := groupOrder(data)
	if err != nil {
		return nil, err
	}

	snap := &models.Snapshot{
		Settings: models.GlobalSettings{
			DefaultGroupID:       doc.GlobalSettings.DefaultServerGroup,
			CrossGroupEscalation: boolOr(doc.GlobalSettings.EnableCrossGroupPermissions, true),
			PermissionCacheTTL:   time.Duration(intOr(doc.GlobalSettings.PermissionCacheTTL, defaultCacheTTLSeconds)) * time.Second,
			LogOperations:        boolOr(doc.GlobalSettings.LogOperations, true),
		},
		Groups:     make(map[string]*models.ServerGroup, len(doc.ServerGroups)),
		GroupOrder: order,
	}

	for id, gc := range doc.ServerGroups {
		group, err := buildGroup(id, gc)
		if err != nil {
			return nil, err
		}
		snap.Groups[id] = group
	}

	if snap.Settings.PermissionCacheTTL < 0 {
		return nil, fmt.Errorf("%w: permission_cache_ttl must not be negative", ErrParse)
	}

	if def := snap.Settings.DefaultGroupID; def != "" {
		if snap.Group(def) == nil {
			return nil, fmt.Errorf("%w: default_server_group %q is not a configured group", ErrParse, def)
		}
	}

	return snap, nil
}

func buildGroup(id string, gc groupConfig) (*models.ServerGroup, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: server group with empty id", ErrParse)
	}

	g := &models.ServerGroup{
		ID:                id,
		Name:              gc.Name,
		Description:       gc.Description,
		AllowedChatGroups: toSet(gc.AllowedChatGroups),
		ServerAliases:     map[string]string{},
		Owners:            toSet(gc.Permissions.Owners),
		SuperAdmins:       toSet(gc.Permissions.SuperAdmins),
		Admins:            toSet(gc.Permissions.Admins),
		Features:          map[string]bool{},
	}
	if g.Name == "" {
		g.Name = id
	}
	for k, v := range gc.Features {
		g.Features[k] = v
	}

	seen := map[string]struct{}{}
	for _, sc := range gc.GameServers {
		if sc.ServerID == "" {
			return nil, fmt.Errorf("%w: group %q has a game server with empty server_id", ErrParse, id)
		}
		if _, dup := seen[sc.ServerID]; dup {
			return nil, fmt.Errorf("%w: group %q lists server %q twice", ErrParse, id, sc.ServerID)
		}
		seen[sc.ServerID] = struct{}{}

		display := sc.DisplayName
		if display == "" {
			display = sc.ServerID
		}
		g.Servers = append(g.Servers, models.ServerDescriptor{
			ServerID:    sc.ServerID,
			DisplayName: display,
			Enabled:     boolOr(sc.Enabled, true),
		})
	}

	for alias, target := range gc.ServerAliases {
		if _, ok := seen[target]; !ok {
			return nil, fmt.Errorf("%w: group %q alias %q points at unknown server %q", ErrParse, id, alias, target)
		}
		g.ServerAliases[alias] = target
	}

	return g, nil
}

// groupOrder extracts the server_groups keys in document order, so the
// "first configured group" fallback is stable across reloads.
func groupOrder(data []byte) ([]string, error) {
	var shallow struct {
		ServerGroups yaml.Node `yaml:"server_groups"`
	}
	if err := yaml.Unmarshal(data, &shallow); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if shallow.ServerGroups.Kind == 0 ||
		(shallow.ServerGroups.Kind == yaml.ScalarNode && shallow.ServerGroups.Tag == "!!null") {
		return nil, nil
	}
	if shallow.ServerGroups.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: server_groups must be a mapping", ErrParse)
	}
	order := make([]string, 0, len(shallow.ServerGroups.Content)/2)
	for i := 0; i+1 < len(shallow.ServerGroups.Content); i += 2 {
		order = append(order, shallow.ServerGroups.Content[i].Value)
	}
	return order, nil
}

// Encode serializes a snapshot back into the configuration document format,
// preserving group document order. Rosters and bindings are emitted sorted
// for stable diffs.
func Encode(snap *models.Snapshot) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}

	gs := globalSettings{
		DefaultServerGroup:          snap.Settings.DefaultGroupID,
		EnableCrossGroupPermissions: ptr(snap.Settings.CrossGroupEscalation),
		PermissionCacheTTL:          ptr(int(snap.Settings.PermissionCacheTTL / time.Second)),
		LogOperations:               ptr(snap.Settings.LogOperations),
	}
	var gsNode yaml.Node
	if err := gsNode.Encode(gs); err != nil {
		return nil, err
	}
	appendPair(root, "global_settings", &gsNode)

	groups := &yaml.Node{Kind: yaml.MappingNode}
	for _, g := range snap.OrderedGroups() {
		gc := groupConfig{
			Name:              g.Name,
			Description:       g.Description,
			AllowedChatGroups: sorted(g.AllowedChatGroups),
			ServerAliases:     g.ServerAliases,
			Permissions: rosterConfig{
				Owners:      sorted(g.Owners),
				SuperAdmins: sorted(g.SuperAdmins),
				Admins:      sorted(g.Admins),
			},
			Features: g.Features,
		}
		for _, srv := range g.Servers {
			enabled := srv.Enabled
			gc.GameServers = append(gc.GameServers, serverConfig{
				ServerID:    srv.ServerID,
				DisplayName: srv.DisplayName,
				Enabled:     &enabled,
			})
		}
		var gNode yaml.Node
		if err := gNode.Encode(gc); err != nil {
			return nil, err
		}
		appendPair(groups, g.ID, &gNode)
	}
	appendPair(root, "server_groups", groups)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func appendPair(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		value,
	)
}

func toSet(in []string) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, v := range in {
		out[v] = struct{}{}
	}
	return out
}

func sorted(in map[string]struct{}) []string {
	out := make([]string, 0, len(in))
	for v := range in {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func boolOr(v *bool, fallback bool) bool {
	if v != nil {
		return *v
	}
	return fallback
}

func intOr(v *int, fallback int) int {
	if v != nil {
		return *v
	}
	return fallback
}

func ptr[T any](v T) *T { return &v }
