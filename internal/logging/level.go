package logging

import "strings"

// Canonical severity names shared by every writer. WARN is accepted on input
// as an alias for WARNING; Normalize folds it.
const (
	LevelDebug    = "DEBUG"
	LevelInfo     = "INFO"
	LevelWarning  = "WARNING"
	LevelError    = "ERROR"
	LevelCritical = "CRITICAL"
)

// Priority returns the numeric rank of a severity name. Unknown names rank
// as INFO rather than failing: a record with a garbled level must still be
// persisted somewhere sensible.
func Priority(level string) int {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case LevelDebug:
		return 10
	case LevelInfo:
		return 20
	case LevelWarning, "WARN":
		return 30
	case LevelError:
		return 40
	case LevelCritical:
		return 50
	default:
		return 20
	}
}

// Normalize maps a severity name onto its canonical spelling.
func Normalize(level string) string {
	switch Priority(level) {
	case 10:
		return LevelDebug
	case 30:
		return LevelWarning
	case 40:
		return LevelError
	case 50:
		return LevelCritical
	default:
		return LevelInfo
	}
}

// ShouldWrite reports whether a record at level passes a writer configured
// with minLevel. The local and remote writers apply this independently, each
// with its own minimum.
func ShouldWrite(level, minLevel string) bool {
	return Priority(level) >= Priority(minLevel)
}
