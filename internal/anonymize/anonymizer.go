// Package anonymize implements the profile-driven anonymisation engine and
// its UID registry.
package anonymize

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pixieveil/pixieveil/dicom"
	pverrors "github.com/pixieveil/pixieveil/errors"
)

// Anonymiser applies a Profile to a parsed dataset, consulting a shared UID
// Registry for pseudonymisation consistency across all images in a process
// run.
type Anonymiser struct {
	registry *Registry
}

// NewAnonymiser returns an Anonymiser backed by the given registry. Callers
// share one Registry across all images so pseudo-UIDs stay consistent.
func NewAnonymiser(registry *Registry) *Anonymiser {
	return &Anonymiser{registry: registry}
}

// Anonymize returns a new dataset with profile's actions applied plus the
// always-applied rules (private tags, overlay groups, BurnedInAnnotation,
// the closed sensitive-tag set, and the confidentiality bookkeeping tags).
// The input dataset is not mutated.
func (a *Anonymiser) Anonymize(ds *dicom.Dataset, profile *Profile) (*dicom.Dataset, error) {
	if profile == nil {
		profile = DefaultProfile()
	}
	if ds == nil {
		return nil, pverrors.NewAnonymizationError(profile.Name, "", errors.New("nil dataset"))
	}

	out := dicom.NewDataset()
	for tag, elem := range ds.Elements {
		cp := *elem
		out.Elements[tag] = &cp
	}

	for attr, action := range profile.Actions {
		tag, ok := tagsByName[attr]
		if !ok {
			continue
		}
		elem, exists := out.Elements[tag]
		if !exists {
			continue
		}
		if attr == "StudyDate" && profile.RetainStudyDate {
			continue
		}
		if err := a.applyAction(out, tag, elem, attr, action, profile); err != nil {
			return nil, pverrors.NewAnonymizationError(profile.Name, attr, err)
		}
	}

	a.applyAlwaysRules(out, profile)

	return out, nil
}

func (a *Anonymiser) applyAction(ds *dicom.Dataset, tag dicom.Tag, elem *dicom.Element, attr string, action Action, profile *Profile) error {
	switch action {
	case ActionKeep:
		// no-op
	case ActionRandom:
		elem.Value = randomToken(stringValue(elem))
	case ActionPseudo:
		category := uidTagCategory[attr]
		if category == "" {
			category = CategoryStudy
		}
		pseudo := a.registry.Get(category, stringValue(elem))
		if attr == "AccessionNumber" {
			pseudo = AccessionToken(pseudo)
		}
		elem.Value = pseudo
	case ActionAnonymous:
		elem.Value = string(ActionAnonymous)
	case ActionUnknown:
		elem.Value = string(ActionUnknown)
	case actionLiteral:
		elem.Value = profile.Literals[attr]
	case actionTimestamp:
		elem.Value = currentDICOMValue(tag)
	}
	return nil
}

func stringValue(elem *dicom.Element) string {
	if s, ok := elem.Value.(string); ok {
		return s
	}
	return ""
}

// randomToken returns a fresh random token, preserving the original
// length for string VRs when possible.
func randomToken(original string) string {
	token := strings.ReplaceAll(uuid.New().String(), "-", "")
	if len(original) == 0 {
		return token
	}
	for len(token) < len(original) {
		token += strings.ReplaceAll(uuid.New().String(), "-", "")
	}
	return token[:len(original)]
}

// currentDICOMValue renders the current time in the VR shape the given
// date/time tag expects (DA: YYYYMMDD, TM: HHMMSS).
func currentDICOMValue(tag dicom.Tag) string {
	now := time.Now().UTC()
	switch tag.Element {
	case 0x0020, 0x0021, 0x0022, 0x0023: // StudyDate/SeriesDate/AcquisitionDate/ContentDate
		return now.Format("20060102")
	default: // the matching *Time tags
		return now.Format("150405")
	}
}

// applyAlwaysRules enforces the rules applied regardless of profile
// configuration.
func (a *Anonymiser) applyAlwaysRules(ds *dicom.Dataset, profile *Profile) {
	if !profile.KeepPrivateTags {
		for tag := range ds.Elements {
			if isPrivateGroup(tag.Group) {
				delete(ds.Elements, tag)
			}
		}
	}

	for tag := range ds.Elements {
		if isOverlayGroup(tag.Group) {
			delete(ds.Elements, tag)
		}
	}

	ds.Elements[tagBurnedInAnnotation] = &dicom.Element{Tag: tagBurnedInAnnotation, VR: dicom.VR_CS, Value: "NO"}

	for _, name := range sensitiveTagNames {
		delete(ds.Elements, sensitiveTags[name])
	}

	ds.Elements[tagPatientIdentityRemoved] = &dicom.Element{Tag: tagPatientIdentityRemoved, VR: dicom.VR_CS, Value: "YES"}
	ds.Elements[tagDeidentificationMethod] = &dicom.Element{Tag: tagDeidentificationMethod, VR: dicom.VR_LO, Value: profile.Name}
}
