package testkit

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"diagsync/internal/diag"
	"diagsync/internal/state"
)

// Options is a map-backed option store. Reading a key that was never set
// panics, like a real store without a registered default.
type Options map[string]bool

// Bool returns the value of key.
func (o Options) Bool(key string) bool {
	v, ok := o[key]
	if !ok {
		panic(fmt.Sprintf("testkit: option %q has no default", key))
	}
	return v
}

// Workspace is an in-memory host workspace.
type Workspace struct {
	mu        sync.Mutex
	name      string
	projects  []string
	documents map[string][]string
	open      map[state.Artifact]bool
	semantic  map[state.Artifact]state.Stamp
	reads     map[state.Artifact]int
	// SemanticErr, when set, fails every DependentSemanticVersion call.
	SemanticErr error
}

// NewWorkspace creates an empty workspace.
func NewWorkspace(name string) *Workspace {
	return &Workspace{
		name:      name,
		documents: make(map[string][]string),
		open:      make(map[state.Artifact]bool),
		semantic:  make(map[state.Artifact]state.Stamp),
		reads:     make(map[state.Artifact]int),
	}
}

// AddProject registers project with documents in enumeration order.
func (w *Workspace) AddProject(project string, documents ...string) *Workspace {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !slices.Contains(w.projects, project) {
		w.projects = append(w.projects, project)
	}
	w.documents[project] = append(w.documents[project], documents...)
	return w
}

// SetOpen marks a document open or closed.
func (w *Workspace) SetOpen(a state.Artifact, open bool) {
	w.mu.Lock()
	w.open[a] = open
	w.mu.Unlock()
}

// SetSemanticVersion fixes the stamp returned for a.
func (w *Workspace) SetSemanticVersion(a state.Artifact, s state.Stamp) {
	w.mu.Lock()
	w.semantic[a] = s
	w.mu.Unlock()
}

func (w *Workspace) Name() string { return w.name }

func (w *Workspace) HasProject(project string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Contains(w.projects, project)
}

func (w *Workspace) Documents(project string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.documents[project])
}

func (w *Workspace) IsOpen(a state.Artifact) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.open[a]
}

// DependentSemanticVersion returns the stamp set for a, or 1.
func (w *Workspace) DependentSemanticVersion(_ context.Context, a state.Artifact) (state.Stamp, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reads[a]++
	if w.SemanticErr != nil {
		return state.DefaultStamp, w.SemanticErr
	}
	if s, ok := w.semantic[a]; ok {
		return s, nil
	}
	return 1, nil
}

// SemanticReads returns how often the semantic version of a was asked for.
func (w *Workspace) SemanticReads(a state.Artifact) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reads[a]
}

// Request is one recorded re-analysis request.
type Request struct {
	Artifact     state.Artifact
	HighPriority bool
}

// Scheduler records re-analysis requests.
type Scheduler struct {
	mu       sync.Mutex
	requests []Request
}

func (s *Scheduler) Reanalyze(a state.Artifact, highPriority bool) {
	s.mu.Lock()
	s.requests = append(s.requests, Request{Artifact: a, HighPriority: highPriority})
	s.mu.Unlock()
}

// Requests returns the recorded requests in order.
func (s *Scheduler) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Analyzers is an in-memory analyzer registry. It counts descriptor reads so
// tests can observe caching.
type Analyzers struct {
	mu          sync.Mutex
	byProject   map[string][]string
	descriptors map[string][]diag.Descriptor
	reads       map[string]int
}

// NewAnalyzers creates an empty registry.
func NewAnalyzers() *Analyzers {
	return &Analyzers{
		byProject:   make(map[string][]string),
		descriptors: make(map[string][]diag.Descriptor),
		reads:       make(map[string]int),
	}
}

// Add declares analyzer with descriptors and attaches it to projects.
func (a *Analyzers) Add(analyzer string, descriptors []diag.Descriptor, projects ...string) *Analyzers {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.descriptors[analyzer] = descriptors
	for _, p := range projects {
		if !slices.Contains(a.byProject[p], analyzer) {
			a.byProject[p] = append(a.byProject[p], analyzer)
		}
	}
	return a
}

func (a *Analyzers) Analyzers(project string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.byProject[project])
}

func (a *Analyzers) Descriptors(analyzer string) []diag.Descriptor {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reads[analyzer]++
	return a.descriptors[analyzer]
}

// DescriptorReads returns how often Descriptors was called for analyzer.
func (a *Analyzers) DescriptorReads(analyzer string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reads[analyzer]
}

// FailingStore wraps a store and fails saves, and optionally loads, of the
// chosen kind with Err.
type FailingStore struct {
	state.Store
	Kind      state.Kind
	FailLoads bool
	Err       error

	mu    sync.Mutex
	saves int
}

func (s *FailingStore) Load(ctx context.Context, key state.Key) (state.Existing, error) {
	if s.FailLoads && key.Kind == s.Kind {
		return state.Absent(), s.Err
	}
	return s.Store.Load(ctx, key)
}

func (s *FailingStore) Save(ctx context.Context, key state.Key, b state.Batch) error {
	if key.Kind == s.Kind {
		return s.Err
	}
	s.mu.Lock()
	s.saves++
	s.mu.Unlock()
	return s.Store.Save(ctx, key, b)
}

// Saves returns the number of saves passed through.
func (s *FailingStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
