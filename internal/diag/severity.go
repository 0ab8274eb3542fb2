package diag

import (
	"fmt"
	"strings"
)

// Severity defines the importance of a diagnostic. The zero value is not a
// severity; decoders reject it so a missing field never reads as Hidden.
type Severity uint8

const (
	// SevHidden is for diagnostics that are kept for tooling but never shown.
	SevHidden Severity = iota + 1
	// SevInfo is for informational diagnostics.
	SevInfo
	// SevWarning is for warning diagnostics.
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevHidden:
		return "HIDDEN"
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Valid reports whether s is one of the declared severities.
func (s Severity) Valid() bool {
	return s >= SevHidden && s <= SevError
}

// ParseSeverity accepts the lower or upper case names produced by String.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hidden":
		return SevHidden, nil
	case "info":
		return SevInfo, nil
	case "warning", "warn":
		return SevWarning, nil
	case "error":
		return SevError, nil
	default:
		return 0, fmt.Errorf("invalid severity: %q (expected: hidden|info|warning|error)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
