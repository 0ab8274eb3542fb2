package diag

// Descriptor declares one id an analyzer can report, with the metadata the
// analyzer attaches to every finding of that id.
type Descriptor struct {
	ID               string
	Category         string
	Title            string
	Description      string
	HelpLink         string
	DefaultSeverity  Severity
	EnabledByDefault bool
	CustomTags       []string
}

// Shape builds a Record for ext using d for the fields a build does not carry.
// Message, severity, warning level, properties, locations and suppression
// come from ext unchanged.
func (d *Descriptor) Shape(ext *External) Record {
	return Record{
		ID:                  d.ID,
		Category:            d.Category,
		Message:             ext.Message,
		Title:               d.Title,
		Description:         d.Description,
		HelpLink:            d.HelpLink,
		Severity:            ext.Severity,
		DefaultSeverity:     d.DefaultSeverity,
		Enabled:             d.EnabledByDefault,
		WarningLevel:        ext.WarningLevel,
		Tags:                cloneStrings(d.CustomTags),
		Properties:          cloneProps(ext.Properties),
		Project:             ext.Project,
		Document:            ext.Document,
		Location:            ext.Location,
		AdditionalLocations: cloneLocations(ext.Additional),
		Suppressed:          ext.Suppressed,
	}
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneLocations(in []Location) []Location {
	if len(in) == 0 {
		return nil
	}
	out := make([]Location, len(in))
	copy(out, in)
	return out
}

func cloneProps(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
