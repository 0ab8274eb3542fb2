package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff Level = iota
	// LevelError keeps only what a crash dump needs; no scope is streamed.
	LevelError
	LevelEvent
	LevelArtifact
	LevelDebug
)

var levelNames = [...]string{
	LevelOff:      "off",
	LevelError:    "error",
	LevelEvent:    "event",
	LevelArtifact: "artifact",
	LevelDebug:    "debug",
}

// finest is the most detailed scope each level lets through.
var finest = [...]Scope{
	LevelEvent:    ScopeEvent,
	LevelArtifact: ScopeArtifact,
	LevelDebug:    ScopeCell,
}

func (l Level) String() string {
	if int(l) >= len(levelNames) {
		return "unknown"
	}
	return levelNames[l]
}

// ParseLevel converts a name produced by String back to a Level. The empty
// string is LevelOff.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return LevelOff, nil
	}
	for l, n := range levelNames {
		if n == name {
			return Level(l), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|error|event|artifact|debug)", s)
}

// ShouldEmit reports whether events of scope pass at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	if int(l) >= len(finest) {
		return false
	}
	limit := finest[l]
	return limit != 0 && scope <= limit
}
