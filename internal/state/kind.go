package state

import (
	"fmt"
	"strings"
)

// Kind is the scope of analysis a cell holds.
type Kind uint8

const (
	// KindSyntax holds fast, text-only findings.
	KindSyntax Kind = iota
	// KindDocument holds full single-document semantic findings.
	KindDocument
	// KindProject holds whole-project semantic findings.
	KindProject

	numKinds = int(KindProject) + 1
)

type kindInfo struct {
	name string
	dir  string // subdirectory used by DiskStore
}

// kindTable is indexed by Kind; every Kind must have an entry.
var kindTable = [numKinds]kindInfo{
	KindSyntax:   {name: "syntax", dir: "syn"},
	KindDocument: {name: "document", dir: "doc"},
	KindProject:  {name: "project", dir: "prj"},
}

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindSyntax, KindDocument, KindProject}
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return int(k) < numKinds
}

func (k Kind) String() string {
	if !k.Valid() {
		return "unknown"
	}
	return kindTable[k].name
}

func (k Kind) dir() string {
	if !k.Valid() {
		return "unknown"
	}
	return kindTable[k].dir
}

// ParseKind converts a name produced by String back to a Kind.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i := range kindTable {
		if kindTable[i].name == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("invalid state kind: %q (expected: syntax|document|project)", s)
}
