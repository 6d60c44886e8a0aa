package anonymize

// Action is one of the closed set of per-tag behaviours a profile may
// request.
type Action string

const (
	ActionKeep      Action = "keep"
	ActionRandom    Action = "random"
	ActionPseudo    Action = "pseudo"
	ActionAnonymous Action = "ANONYMOUS"
	ActionUnknown   Action = "UNKNOWN"

	// actionLiteral and actionTimestamp are internal-only DEFAULT-profile
	// behaviours, never exposed through configuration.
	actionLiteral   Action = "__literal"
	actionTimestamp Action = "__timestamp"
)

// Profile is a named set of per-attribute actions plus the global switches
// that apply across the whole profile.
type Profile struct {
	Name            string
	Actions         map[string]Action
	Literals        map[string]string // attribute name -> literal value, for actionLiteral
	PixelBlackout   bool
	KeepPrivateTags bool
	RetainStudyDate bool
}

// FromConfigActions builds a Profile from the raw attribute-name → action
// string map loaded from YAML, skipping names outside the recognised tag
// dictionary.
func FromConfigActions(name string, rawActions map[string]string, pixelBlackout, keepPrivateTags, retainStudyDate bool) *Profile {
	p := &Profile{
		Name:            name,
		Actions:         make(map[string]Action),
		Literals:        make(map[string]string),
		PixelBlackout:   pixelBlackout,
		KeepPrivateTags: keepPrivateTags,
		RetainStudyDate: retainStudyDate,
	}
	for attr, action := range rawActions {
		if _, known := tagsByName[attr]; !known {
			continue
		}
		p.Actions[attr] = Action(action)
	}
	return p
}

// DefaultProfile is the profile applied when no profile is configured.
func DefaultProfile() *Profile {
	p := &Profile{
		Name:     "DEFAULT",
		Actions:  make(map[string]Action),
		Literals: make(map[string]string),
	}

	for _, attr := range []string{
		"PatientName", "PatientID", "PatientBirthDate", "PatientSex", "PatientAge",
		"InstitutionName", "ReferringPhysicianName", "PerformingPhysicianName",
		"NameOfPhysiciansReadingStudy", "OperatorsName",
	} {
		p.Actions[attr] = ActionAnonymous
	}

	for _, attr := range []string{"StudyInstanceUID", "SeriesInstanceUID", "SOPInstanceUID", "FrameOfReferenceUID", "AccessionNumber"} {
		p.Actions[attr] = ActionPseudo
	}

	for _, attr := range dateTimeTagNames {
		p.Actions[attr] = actionTimestamp
	}

	p.Actions["StudyDescription"] = actionLiteral
	p.Literals["StudyDescription"] = "Anonymized Study"
	p.Actions["SeriesDescription"] = actionLiteral
	p.Literals["SeriesDescription"] = "Anonymized Series"

	return p
}
