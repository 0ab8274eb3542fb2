package diagfmt

// PathMode specifies how document paths are displayed.
type PathMode uint8

const (
	// PathModeDocument prints the document id as the workspace knows it.
	PathModeDocument PathMode = iota
	// PathModeBasename prints only the last path element.
	PathModeBasename
)

// PrettyOpts configures pretty-printing of cells.
type PrettyOpts struct {
	Color    bool
	PathMode PathMode
	Width    int // maximum line width, 0 means unlimited
	// ShowEmpty lists cells that hold no records.
	ShowEmpty bool
	// ShowProps appends record properties.
	ShowProps bool
}

// JSONOpts configures JSON output of cells.
type JSONOpts struct {
	Max    int // cap on records per cell, 0 means all
	Indent bool
}

// DiffOpts configures unified diffs between two batches of one cell.
type DiffOpts struct {
	Context int // lines of context, 0 means 2
}
