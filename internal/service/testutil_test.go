package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/victorivanov/garrison/internal/audit"
	"github.com/victorivanov/garrison/internal/config"
)

const fixtureConfig = `
global_settings:
  default_server_group: alpha
  enable_cross_group_permissions: false
server_groups:
  alpha:
    name: Alpha
    allowed_chat_groups: ["chat-a"]
    game_servers:
      - server_id: srv1
        display_name: Main
      - server_id: srv2
        display_name: Event
        enabled: false
    server_aliases:
      "1": srv1
      main: srv1
    permissions:
      owners: ["owner1"]
      super_admins: ["super1"]
      admins: ["admin1"]
    features:
      allow_kick: true
  beta:
    name: Beta
    allowed_chat_groups: ["chat-b"]
    game_servers:
      - server_id: srv9
        display_name: Main
    server_aliases:
      "1": srv9
    permissions:
      owners: ["owner9"]
`

type fixture struct {
	store      *config.Store
	configPath string
	auditPath  string
	auditLog   *audit.Logger
}

func newFixture(t *testing.T, configContent string) *fixture {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "garrison.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	auditPath := filepath.Join(dir, "audit.log")
	auditLog := audit.NewLogger(auditPath)
	return &fixture{
		store:      config.NewStore(configPath, auditLog),
		configPath: configPath,
		auditPath:  auditPath,
		auditLog:   auditLog,
	}
}

func (f *fixture) auditLines(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(f.auditPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read audit log: %v", err)
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
