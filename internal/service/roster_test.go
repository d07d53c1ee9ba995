package service

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/victorivanov/garrison/internal/audit"
	"github.com/victorivanov/garrison/internal/config"
	"github.com/victorivanov/garrison/internal/models"
	"github.com/victorivanov/garrison/internal/permissions"
)

func TestAddUser(t *testing.T) {
	f := newFixture(t, fixtureConfig)
	svc := NewRosterService(f.store, f.auditLog)

	msg, err := svc.AddUser("newbie", "alpha", permissions.LevelAdmin, "owner1")
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if !strings.Contains(msg, "Alpha") {
		t.Errorf("confirmation should name the group, got %q", msg)
	}

	g := f.store.Current().Group("alpha")
	if _, ok := g.Admins["newbie"]; !ok {
		t.Error("newbie missing from admins after grant")
	}

	// The change survives a fresh load from disk.
	again := config.NewStore(f.configPath, nil)
	if _, ok := again.Current().Group("alpha").Admins["newbie"]; !ok {
		t.Error("grant was not persisted")
	}

	lines := f.auditLines(t)
	if len(lines) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(lines))
	}
	var entry models.AuditEntry
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("bad audit line: %v", err)
	}
	if entry.Operation != "ADD_USER" || entry.OperatorID != "owner1" {
		t.Errorf("unexpected audit entry: %+v", entry)
	}
}

func TestAddUserIdempotent(t *testing.T) {
	f := newFixture(t, fixtureConfig)
	svc := NewRosterService(f.store, f.auditLog)

	if _, err := svc.AddUser("newbie", "alpha", permissions.LevelAdmin, "owner1"); err != nil {
		t.Fatalf("first AddUser: %v", err)
	}
	_, err := svc.AddUser("newbie", "alpha", permissions.LevelAdmin, "owner1")
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("second AddUser: got %v, want ErrAlreadyExists", err)
	}

	g := f.store.Current().Group("alpha")
	count := 0
	for _, roster := range []map[string]struct{}{g.Owners, g.SuperAdmins, g.Admins} {
		if _, ok := roster["newbie"]; ok {
			count++
		}
	}
	if count != 1 {
		t.Errorf("newbie appears in %d rosters, want 1", count)
	}

	if lines := f.auditLines(t); len(lines) != 1 {
		t.Errorf("duplicate grant must not append an audit entry, got %d", len(lines))
	}
}

func TestAddUserMovesBetweenLevels(t *testing.T) {
	f := newFixture(t, fixtureConfig)
	svc := NewRosterService(f.store, f.auditLog)

	if _, err := svc.AddUser("admin1", "alpha", permissions.LevelSuperAdmin, "owner1"); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	g := f.store.Current().Group("alpha")
	if _, ok := g.Admins["admin1"]; ok {
		t.Error("admin1 still in admins after promotion")
	}
	if _, ok := g.SuperAdmins["admin1"]; !ok {
		t.Error("admin1 missing from super admins after promotion")
	}
}

func TestAddUserAuthorization(t *testing.T) {
	cases := []struct {
		name     string
		target   string
		group    string
		level    permissions.Level
		operator string
		sentinel error
	}{
		{"unknown group", "u1", "ghost", permissions.LevelAdmin, "owner1", ErrGroupNotFound},
		{"admin operator lacks super admin", "u1", "alpha", permissions.LevelAdmin, "admin1", ErrNotAuthorized},
		{"admin operator granting owner", "u1", "alpha", permissions.LevelOwner, "admin1", ErrNotAuthorized},
		{"plain user operator", "u1", "alpha", permissions.LevelAdmin, "nobody", ErrNotAuthorized},
		{"super admin granting owner", "u1", "alpha", permissions.LevelOwner, "super1", ErrSelfEscalation},
		{"super admin granting super admin", "u1", "alpha", permissions.LevelSuperAdmin, "super1", ErrSelfEscalation},
		{"granting the base level", "u1", "alpha", permissions.LevelUser, "owner1", ErrNotAuthorized},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newFixture(t, fixtureConfig)
			svc := NewRosterService(f.store, f.auditLog)

			_, err := svc.AddUser(c.target, c.group, c.level, c.operator)
			if !errors.Is(err, c.sentinel) {
				t.Fatalf("got %v, want %v", err, c.sentinel)
			}
			var svcErr *ServiceError
			if !errors.As(err, &svcErr) || svcErr.Message == "" {
				t.Error("mutation errors must carry a relayable message")
			}
			if lines := f.auditLines(t); len(lines) != 0 {
				t.Errorf("denied mutation must not audit, got %d entries", len(lines))
			}
		})
	}
}

func TestRemoveUser(t *testing.T) {
	f := newFixture(t, fixtureConfig)
	svc := NewRosterService(f.store, f.auditLog)

	if _, err := svc.RemoveUser("admin1", "alpha", "owner1"); err != nil {
		t.Fatalf("RemoveUser: %v", err)
	}

	g := f.store.Current().Group("alpha")
	if _, ok := g.Admins["admin1"]; ok {
		t.Error("admin1 still present after removal")
	}

	lines := f.auditLines(t)
	if len(lines) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "REMOVE_USER") {
		t.Errorf("unexpected audit line %q", lines[0])
	}
}

func TestRemoveUserAuthorization(t *testing.T) {
	cases := []struct {
		name     string
		target   string
		group    string
		operator string
		sentinel error
	}{
		{"unknown group", "admin1", "ghost", "owner1", ErrGroupNotFound},
		{"admin operator", "admin1", "alpha", "admin1", ErrNotAuthorized},
		{"target holds no level", "nobody", "alpha", "owner1", ErrUserNotFound},
		{"super admin removing owner", "owner1", "alpha", "super1", ErrSelfEscalation},
		{"super admin removing super admin", "super1", "alpha", "super1", ErrSelfEscalation},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newFixture(t, fixtureConfig)
			svc := NewRosterService(f.store, f.auditLog)

			_, err := svc.RemoveUser(c.target, c.group, c.operator)
			if !errors.Is(err, c.sentinel) {
				t.Fatalf("got %v, want %v", err, c.sentinel)
			}
		})
	}
}

// A cross-group owner passes the super-admin gate through escalation but
// still may not touch users who outrank them locally.
func TestRemoveUserEscalatedOperatorCannotOutrank(t *testing.T) {
	escalated := strings.Replace(fixtureConfig,
		"enable_cross_group_permissions: false",
		"enable_cross_group_permissions: true", 1)
	f := newFixture(t, escalated)
	svc := NewRosterService(f.store, f.auditLog)

	// owner9 owns beta only; locally a plain user in alpha.
	_, err := svc.RemoveUser("admin1", "alpha", "owner9")
	if !errors.Is(err, ErrSelfEscalation) {
		t.Fatalf("got %v, want ErrSelfEscalation", err)
	}
}

func TestMutationRollsBackOnPersistenceFailure(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "conf")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(sub, "garrison.yaml")
	if err := os.WriteFile(configPath, []byte(fixtureConfig), 0o644); err != nil {
		t.Fatal(err)
	}

	store := config.NewStore(configPath, nil)
	svc := NewRosterService(store, audit.NewLogger(filepath.Join(dir, "audit.log")))

	// Pull the directory out from under the store so the persist step
	// cannot create its temp file.
	if err := os.RemoveAll(sub); err != nil {
		t.Fatal(err)
	}

	_, err := svc.AddUser("newbie", "alpha", permissions.LevelAdmin, "owner1")
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("got %v, want ErrPersistence", err)
	}

	if _, ok := store.Current().Group("alpha").Admins["newbie"]; ok {
		t.Error("failed persist must not leave the grant visible in memory")
	}
}

func TestRelay(t *testing.T) {
	if ok, msg := Relay(nil, "done"); !ok || msg != "done" {
		t.Errorf("Relay(nil) = %v, %q", ok, msg)
	}
	if ok, _ := Relay(AlreadyExists("user already holds admin"), ""); !ok {
		t.Error("duplicate grant should relay as a success notice")
	}
	if ok, msg := Relay(NotAuthorized("requires super admin"), ""); ok || msg != "requires super admin" {
		t.Errorf("Relay(denied) = %v, %q", ok, msg)
	}
}
