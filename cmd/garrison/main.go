package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kelseyhightower/envconfig"

	"github.com/victorivanov/garrison/internal/audit"
	"github.com/victorivanov/garrison/internal/config"
	"github.com/victorivanov/garrison/internal/permissions"
	"github.com/victorivanov/garrison/internal/service"
)

// Set via -ldflags at build time.
var version = "dev"

// Settings configure the process from the environment.
type Settings struct {
	ConfigPath   string `envconfig:"CONFIG" default:"garrison.yaml"`
	AuditLogPath string `envconfig:"AUDIT_LOG" default:"logs/audit.log"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var settings Settings
	if err := envconfig.Process("garrison", &settings); err != nil {
		fmt.Fprintf(os.Stderr, "failed to read environment: %v\n", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(settings.LogLevel),
	})))

	switch os.Args[1] {
	case "check":
		os.Exit(runCheck(settings, os.Args[2:]))
	case "feature":
		os.Exit(runFeature(settings, os.Args[2:]))
	case "level":
		os.Exit(runLevel(settings, os.Args[2:]))
	case "resolve":
		os.Exit(runResolve(settings, os.Args[2:]))
	case "grant":
		os.Exit(runGrant(settings, os.Args[2:]))
	case "revoke":
		os.Exit(runRevoke(settings, os.Args[2:]))
	case "groups":
		os.Exit(runGroups(settings))
	case "validate":
		os.Exit(runValidate(settings))
	case "watch":
		os.Exit(runWatch(settings))
	case "version":
		fmt.Printf("garrison %s\n", version)
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: garrison <command> [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  check <user> <chat-group> <level>     Check a permission level")
	fmt.Println("  feature <user> <chat-group> <name>    Check a feature flag")
	fmt.Println("  level <user> <chat-group>             Show a user's level")
	fmt.Println("  resolve <chat-group> <token>          Resolve a server token")
	fmt.Println("  grant <user> <group-id> <level> <operator>")
	fmt.Println("  revoke <user> <group-id> <operator>")
	fmt.Println("  groups                                List server groups")
	fmt.Println("  validate                              Check the configuration file")
	fmt.Println("  watch                                 Reload on config changes until interrupted")
	fmt.Println("  version                               Print version")
	fmt.Println()
	fmt.Println("Use \"-\" as <chat-group> for a private-message context.")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  GARRISON_CONFIG     Configuration file path (default: garrison.yaml)")
	fmt.Println("  GARRISON_AUDIT_LOG  Audit log path (default: logs/audit.log)")
	fmt.Println("  GARRISON_LOG_LEVEL  Log level (default: info)")
}

func newStore(settings Settings) (*config.Store, *audit.Logger) {
	auditLog := audit.NewLogger(settings.AuditLogPath)
	return config.NewStore(settings.ConfigPath, auditLog), auditLog
}

// chatGroupArg maps the CLI placeholder "-" to the empty chat group used
// for private-message contexts.
func chatGroupArg(s string) string {
	if s == "-" {
		return ""
	}
	return s
}

func runCheck(settings Settings, args []string) int {
	if len(args) != 3 {
		fmt.Fprintln(os.Stderr, "Usage: garrison check <user> <chat-group> <level>")
		return 1
	}
	level, err := permissions.ParseLevel(args[2])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	store, _ := newStore(settings)
	svc := service.NewPermissionService(store)
	if svc.HasLevel(args[0], chatGroupArg(args[1]), level) {
		fmt.Println("allowed")
		return 0
	}
	fmt.Println("denied")
	return 1
}

func runFeature(settings Settings, args []string) int {
	if len(args) != 3 {
		fmt.Fprintln(os.Stderr, "Usage: garrison feature <user> <chat-group> <name>")
		return 1
	}

	store, _ := newStore(settings)
	svc := service.NewPermissionService(store)
	if svc.HasFeature(args[0], chatGroupArg(args[1]), args[2]) {
		fmt.Println("allowed")
		return 0
	}
	fmt.Println("denied")
	return 1
}

func runLevel(settings Settings, args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: garrison level <user> <chat-group>")
		return 1
	}

	store, _ := newStore(settings)
	svc := service.NewPermissionService(store)
	fmt.Println(svc.UserLevel(args[0], chatGroupArg(args[1])))
	return 0
}

func runResolve(settings Settings, args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: garrison resolve <chat-group> <token>")
		return 1
	}

	store, _ := newStore(settings)
	resolver := service.NewAliasResolver(store)
	serverID, ok := resolver.Resolve(chatGroupArg(args[0]), args[1])
	if !ok {
		fmt.Fprintf(os.Stderr, "no server matches %q\n", args[1])
		return 1
	}
	fmt.Println(serverID)
	return 0
}

func runGrant(settings Settings, args []string) int {
	if len(args) != 4 {
		fmt.Fprintln(os.Stderr, "Usage: garrison grant <user> <group-id> <level> <operator>")
		return 1
	}
	level, err := permissions.ParseLevel(args[2])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	store, auditLog := newStore(settings)
	roster := service.NewRosterService(store, auditLog)
	msg, addErr := roster.AddUser(args[0], args[1], level, args[3])
	ok, reply := service.Relay(addErr, msg)
	fmt.Println(reply)
	if !ok {
		return 1
	}
	return 0
}

func runRevoke(settings Settings, args []string) int {
	if len(args) != 3 {
		fmt.Fprintln(os.Stderr, "Usage: garrison revoke <user> <group-id> <operator>")
		return 1
	}

	store, auditLog := newStore(settings)
	roster := service.NewRosterService(store, auditLog)
	msg, removeErr := roster.RemoveUser(args[0], args[1], args[2])
	ok, reply := service.Relay(removeErr, msg)
	fmt.Println(reply)
	if !ok {
		return 1
	}
	return 0
}

func runGroups(settings Settings) int {
	store, _ := newStore(settings)
	svc := service.NewPermissionService(store)

	summaries := svc.GroupSummaries()
	if len(summaries) == 0 {
		fmt.Println("no server groups configured")
		return 0
	}
	for _, s := range summaries {
		fmt.Printf("%s\t%s\t%d servers\t%d owners, %d super admins, %d admins\n",
			s.ID, s.Name, s.EnabledServers, s.Owners, s.SuperAdmins, s.Admins)
	}
	return 0
}

func runValidate(settings Settings) int {
	data, err := os.ReadFile(settings.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", settings.ConfigPath, err)
		return 1
	}
	snap, err := config.Parse(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	fmt.Printf("%s: ok (%d groups)\n", settings.ConfigPath, len(snap.Groups))
	return 0
}

func runWatch(settings Settings) int {
	store, _ := newStore(settings)
	watcher := config.NewWatcher(store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("watching configuration", "path", settings.ConfigPath)
	if err := watcher.Run(ctx); err != nil {
		slog.Error("watcher failed", "error", err)
		return 1
	}
	return 0
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
