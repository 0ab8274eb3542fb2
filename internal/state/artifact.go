package state

// Artifact identifies a project (Document empty) or a document inside it.
type Artifact struct {
	Project  string
	Document string
}

// ProjectArtifact names a whole project.
func ProjectArtifact(project string) Artifact {
	return Artifact{Project: project}
}

// DocumentArtifact names one document of a project.
func DocumentArtifact(project, document string) Artifact {
	return Artifact{Project: project, Document: document}
}

// IsProject reports whether the artifact is a project rather than a document.
func (a Artifact) IsProject() bool {
	return a.Document == ""
}

func (a Artifact) String() string {
	if a.IsProject() {
		return a.Project
	}
	return a.Project + "/" + a.Document
}

// Key addresses one cell: an analyzer applied to an artifact at one kind.
type Key struct {
	Analyzer string
	Artifact Artifact
	Kind     Kind
}

func (k Key) String() string {
	return k.Analyzer + "@" + k.Artifact.String() + "#" + k.Kind.String()
}
