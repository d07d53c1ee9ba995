package permissions

import "fmt"

// Level is a totally ordered permission tier. Comparisons between levels
// use this ordering exclusively.
type Level int

const (
	LevelUser Level = iota
	LevelAdmin
	LevelSuperAdmin
	LevelOwner
)

// levelNames maps levels to their configuration/wire names.
var levelNames = map[Level]string{
	LevelUser:       "user",
	LevelAdmin:      "admin",
	LevelSuperAdmin: "super_admin",
	LevelOwner:      "owner",
}

// displayNames maps levels to human-readable names for chat replies.
var displayNames = map[Level]string{
	LevelUser:       "User",
	LevelAdmin:      "Admin",
	LevelSuperAdmin: "Super Admin",
	LevelOwner:      "Owner",
}

// String returns the configuration name of the level.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// DisplayName returns a human-readable name for the level.
func (l Level) DisplayName() string {
	if name, ok := displayNames[l]; ok {
		return name
	}
	return "Unknown"
}

// AtLeast returns true if l ranks at or above required.
func (l Level) AtLeast(required Level) bool { return l >= required }

// ParseLevel converts a configuration name into a Level.
func ParseLevel(s string) (Level, error) {
	for level, name := range levelNames {
		if name == s {
			return level, nil
		}
	}
	return LevelUser, fmt.Errorf("unknown permission level %q", s)
}
