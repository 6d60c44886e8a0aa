package anonymize

import (
	"strings"
	"testing"

	"github.com/pixieveil/pixieveil/dicom"
)

func sampleDataset() *dicom.Dataset {
	ds := dicom.NewDataset()
	ds.AddElement(dicom.Tag{Group: 0x0010, Element: 0x0010}, dicom.VR_PN, "DOE^JANE")
	ds.AddElement(dicom.Tag{Group: 0x0010, Element: 0x0020}, dicom.VR_LO, "PAT123")
	ds.AddElement(dicom.Tag{Group: 0x0008, Element: 0x0080}, dicom.VR_LO, "General Hospital")
	ds.AddElement(dicom.Tag{Group: 0x0020, Element: 0x000D}, dicom.VR_UI, "1.2.3.4.100")
	ds.AddElement(dicom.Tag{Group: 0x0020, Element: 0x000E}, dicom.VR_UI, "1.2.3.4.200")
	ds.AddElement(dicom.Tag{Group: 0x0008, Element: 0x0018}, dicom.VR_UI, "1.2.3.4.300")
	ds.AddElement(dicom.Tag{Group: 0x0008, Element: 0x0050}, dicom.VR_SH, "ACC001")
	ds.AddElement(dicom.Tag{Group: 0x0008, Element: 0x1030}, dicom.VR_LO, "Head CT")
	ds.AddElement(dicom.Tag{Group: 0x0008, Element: 0x103E}, dicom.VR_LO, "Axial")
	ds.AddElement(dicom.Tag{Group: 0x0008, Element: 0x0060}, dicom.VR_CS, "CT")
	return ds
}

func TestAnonymize_DefaultProfile_BlanksDemographics(t *testing.T) {
	a := NewAnonymiser(NewRegistry())

	out, err := a.Anonymize(sampleDataset(), DefaultProfile())
	if err != nil {
		t.Fatalf("Anonymize() error = %v", err)
	}

	if got := out.GetString(dicom.Tag{Group: 0x0010, Element: 0x0010}); got != "ANONYMOUS" {
		t.Errorf("PatientName = %q, want ANONYMOUS", got)
	}
	if got := out.GetString(dicom.Tag{Group: 0x0010, Element: 0x0020}); got != "ANONYMOUS" {
		t.Errorf("PatientID = %q, want ANONYMOUS", got)
	}
	if got := out.GetString(dicom.Tag{Group: 0x0008, Element: 0x0080}); got != "ANONYMOUS" {
		t.Errorf("InstitutionName = %q, want ANONYMOUS", got)
	}
}

func TestAnonymize_DefaultProfile_PseudonymisesUIDs(t *testing.T) {
	a := NewAnonymiser(NewRegistry())

	out, err := a.Anonymize(sampleDataset(), DefaultProfile())
	if err != nil {
		t.Fatalf("Anonymize() error = %v", err)
	}

	studyUID := out.GetString(dicom.Tag{Group: 0x0020, Element: 0x000D})
	if studyUID == "1.2.3.4.100" {
		t.Error("StudyInstanceUID not replaced")
	}
	if !strings.HasPrefix(studyUID, "2.25.") {
		t.Errorf("StudyInstanceUID %q is not a generated pseudo-UID", studyUID)
	}

	if got := out.GetString(dicom.Tag{Group: 0x0020, Element: 0x000E}); got == "1.2.3.4.200" {
		t.Error("SeriesInstanceUID not replaced")
	}
	if got := out.GetString(dicom.Tag{Group: 0x0008, Element: 0x0018}); got == "1.2.3.4.300" {
		t.Error("SOPInstanceUID not replaced")
	}

	accession := out.GetString(dicom.Tag{Group: 0x0008, Element: 0x0050})
	if accession == "ACC001" {
		t.Error("AccessionNumber not replaced")
	}
	if len(accession) > 16 {
		t.Errorf("AccessionNumber %q longer than 16 characters", accession)
	}
}

func TestAnonymize_UIDConsistencyAcrossImages(t *testing.T) {
	a := NewAnonymiser(NewRegistry())
	profile := DefaultProfile()

	first, err := a.Anonymize(sampleDataset(), profile)
	if err != nil {
		t.Fatalf("Anonymize() error = %v", err)
	}

	second := sampleDataset()
	second.AddElement(dicom.Tag{Group: 0x0008, Element: 0x0018}, dicom.VR_UI, "1.2.3.4.301")
	secondOut, err := a.Anonymize(second, profile)
	if err != nil {
		t.Fatalf("Anonymize() error = %v", err)
	}

	studyTag := dicom.Tag{Group: 0x0020, Element: 0x000D}
	if first.GetString(studyTag) != secondOut.GetString(studyTag) {
		t.Error("two images of one study received different anonymised StudyInstanceUIDs")
	}

	sopTag := dicom.Tag{Group: 0x0008, Element: 0x0018}
	if first.GetString(sopTag) == secondOut.GetString(sopTag) {
		t.Error("distinct SOPInstanceUIDs received the same pseudo-UID")
	}
}

func TestAnonymize_Descriptions(t *testing.T) {
	a := NewAnonymiser(NewRegistry())

	out, err := a.Anonymize(sampleDataset(), DefaultProfile())
	if err != nil {
		t.Fatalf("Anonymize() error = %v", err)
	}

	if got := out.GetString(dicom.Tag{Group: 0x0008, Element: 0x1030}); got != "Anonymized Study" {
		t.Errorf("StudyDescription = %q, want %q", got, "Anonymized Study")
	}
	if got := out.GetString(dicom.Tag{Group: 0x0008, Element: 0x103E}); got != "Anonymized Series" {
		t.Errorf("SeriesDescription = %q, want %q", got, "Anonymized Series")
	}
}

func TestAnonymize_AlwaysRules(t *testing.T) {
	a := NewAnonymiser(NewRegistry())

	ds := sampleDataset()
	// Private group element and an overlay element.
	ds.AddElement(dicom.Tag{Group: 0x0009, Element: 0x0010}, dicom.VR_LO, "vendor private")
	ds.AddElement(dicom.Tag{Group: 0x6000, Element: 0x3000}, dicom.VR_OW, "overlay")
	// A member of the sensitive set.
	ds.AddElement(dicom.Tag{Group: 0x0010, Element: 0x2154}, dicom.VR_SH, "555-0100")

	out, err := a.Anonymize(ds, DefaultProfile())
	if err != nil {
		t.Fatalf("Anonymize() error = %v", err)
	}

	if _, ok := out.GetElement(dicom.Tag{Group: 0x0009, Element: 0x0010}); ok {
		t.Error("private element survived anonymisation")
	}
	if _, ok := out.GetElement(dicom.Tag{Group: 0x6000, Element: 0x3000}); ok {
		t.Error("overlay element survived anonymisation")
	}
	if _, ok := out.GetElement(dicom.Tag{Group: 0x0010, Element: 0x2154}); ok {
		t.Error("PatientTelephoneNumbers survived anonymisation")
	}

	if got := out.GetString(dicom.Tag{Group: 0x0028, Element: 0x0301}); got != "NO" {
		t.Errorf("BurnedInAnnotation = %q, want NO", got)
	}
	if got := out.GetString(dicom.Tag{Group: 0x0012, Element: 0x0062}); got != "YES" {
		t.Errorf("PatientIdentityRemoved = %q, want YES", got)
	}
	if got := out.GetString(dicom.Tag{Group: 0x0012, Element: 0x0063}); got != "DEFAULT" {
		t.Errorf("DeidentificationMethod = %q, want profile name", got)
	}
}

func TestAnonymize_KeepPrivateTags(t *testing.T) {
	a := NewAnonymiser(NewRegistry())

	ds := sampleDataset()
	ds.AddElement(dicom.Tag{Group: 0x0009, Element: 0x0010}, dicom.VR_LO, "vendor private")

	profile := DefaultProfile()
	profile.KeepPrivateTags = true

	out, err := a.Anonymize(ds, profile)
	if err != nil {
		t.Fatalf("Anonymize() error = %v", err)
	}

	if _, ok := out.GetElement(dicom.Tag{Group: 0x0009, Element: 0x0010}); !ok {
		t.Error("private element removed despite KeepPrivateTags")
	}
}

func TestAnonymize_RetainStudyDate(t *testing.T) {
	a := NewAnonymiser(NewRegistry())

	ds := sampleDataset()
	ds.AddElement(dicom.Tag{Group: 0x0008, Element: 0x0020}, dicom.VR_DA, "20200115")

	profile := DefaultProfile()
	profile.RetainStudyDate = true

	out, err := a.Anonymize(ds, profile)
	if err != nil {
		t.Fatalf("Anonymize() error = %v", err)
	}

	if got := out.GetString(dicom.Tag{Group: 0x0008, Element: 0x0020}); got != "20200115" {
		t.Errorf("StudyDate = %q, want retained 20200115", got)
	}
}

func TestAnonymize_DateStamping(t *testing.T) {
	a := NewAnonymiser(NewRegistry())

	ds := sampleDataset()
	ds.AddElement(dicom.Tag{Group: 0x0008, Element: 0x0020}, dicom.VR_DA, "20200115")
	ds.AddElement(dicom.Tag{Group: 0x0008, Element: 0x0030}, dicom.VR_TM, "101500")

	out, err := a.Anonymize(ds, DefaultProfile())
	if err != nil {
		t.Fatalf("Anonymize() error = %v", err)
	}

	date := out.GetString(dicom.Tag{Group: 0x0008, Element: 0x0020})
	if date == "20200115" {
		t.Error("StudyDate not replaced by the default profile")
	}
	if len(date) != 8 {
		t.Errorf("StudyDate %q is not in YYYYMMDD form", date)
	}

	tm := out.GetString(dicom.Tag{Group: 0x0008, Element: 0x0030})
	if tm == "101500" {
		t.Error("StudyTime not replaced by the default profile")
	}
	if len(tm) != 6 {
		t.Errorf("StudyTime %q is not in HHMMSS form", tm)
	}
}

func TestAnonymize_RandomPreservesLength(t *testing.T) {
	a := NewAnonymiser(NewRegistry())

	ds := sampleDataset()
	profile := &Profile{
		Name:    "random-test",
		Actions: map[string]Action{"PatientID": ActionRandom},
	}

	out, err := a.Anonymize(ds, profile)
	if err != nil {
		t.Fatalf("Anonymize() error = %v", err)
	}

	got := out.GetString(dicom.Tag{Group: 0x0010, Element: 0x0020})
	if got == "PAT123" {
		t.Error("PatientID not replaced by random action")
	}
	if len(got) != len("PAT123") {
		t.Errorf("random token length = %d, want %d", len(got), len("PAT123"))
	}
}

func TestAnonymize_KeepAction(t *testing.T) {
	a := NewAnonymiser(NewRegistry())

	ds := sampleDataset()
	profile := &Profile{
		Name:    "keep-test",
		Actions: map[string]Action{"PatientName": ActionKeep},
	}

	out, err := a.Anonymize(ds, profile)
	if err != nil {
		t.Fatalf("Anonymize() error = %v", err)
	}

	if got := out.GetString(dicom.Tag{Group: 0x0010, Element: 0x0010}); got != "DOE^JANE" {
		t.Errorf("PatientName = %q, want kept original", got)
	}
}

func TestAnonymize_InputNotMutated(t *testing.T) {
	a := NewAnonymiser(NewRegistry())

	ds := sampleDataset()
	if _, err := a.Anonymize(ds, DefaultProfile()); err != nil {
		t.Fatalf("Anonymize() error = %v", err)
	}

	if got := ds.GetString(dicom.Tag{Group: 0x0010, Element: 0x0010}); got != "DOE^JANE" {
		t.Errorf("input dataset mutated: PatientName = %q", got)
	}
	if got := ds.GetString(dicom.Tag{Group: 0x0020, Element: 0x000D}); got != "1.2.3.4.100" {
		t.Errorf("input dataset mutated: StudyInstanceUID = %q", got)
	}
}

func TestAnonymize_NilDataset(t *testing.T) {
	a := NewAnonymiser(NewRegistry())

	if _, err := a.Anonymize(nil, DefaultProfile()); err == nil {
		t.Error("expected error for nil dataset")
	}
}

func TestFromConfigActions_SkipsUnknownNames(t *testing.T) {
	p := FromConfigActions("custom", map[string]string{
		"PatientName": "keep",
		"NotARealTag": "random",
	}, false, false, false)

	if _, ok := p.Actions["PatientName"]; !ok {
		t.Error("known attribute dropped")
	}
	if _, ok := p.Actions["NotARealTag"]; ok {
		t.Error("unknown attribute accepted")
	}
}
