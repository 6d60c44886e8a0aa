package anonymize

import "github.com/pixieveil/pixieveil/dicom"

// tagsByName is the closed set of attribute names a profile can reference.
// Names outside it are skipped when a profile is built from configuration
// (FromConfigActions) and ignored by the anonymiser.
var tagsByName = map[string]dicom.Tag{
	"PatientName":                  {Group: 0x0010, Element: 0x0010},
	"PatientID":                    {Group: 0x0010, Element: 0x0020},
	"PatientBirthDate":             {Group: 0x0010, Element: 0x0030},
	"PatientSex":                   {Group: 0x0010, Element: 0x0040},
	"PatientAge":                   {Group: 0x0010, Element: 0x1010},
	"InstitutionName":              {Group: 0x0008, Element: 0x0080},
	"ReferringPhysicianName":       {Group: 0x0008, Element: 0x0090},
	"PerformingPhysicianName":      {Group: 0x0008, Element: 0x1050},
	"NameOfPhysiciansReadingStudy": {Group: 0x0008, Element: 0x1060},
	"OperatorsName":                {Group: 0x0008, Element: 0x1070},
	"StudyInstanceUID":             {Group: 0x0020, Element: 0x000D},
	"SeriesInstanceUID":            {Group: 0x0020, Element: 0x000E},
	"SOPInstanceUID":               {Group: 0x0008, Element: 0x0018},
	"FrameOfReferenceUID":          {Group: 0x0020, Element: 0x0052},
	"AccessionNumber":              {Group: 0x0008, Element: 0x0050},
	"StudyDate":                    {Group: 0x0008, Element: 0x0020},
	"StudyTime":                    {Group: 0x0008, Element: 0x0030},
	"SeriesDate":                   {Group: 0x0008, Element: 0x0021},
	"SeriesTime":                   {Group: 0x0008, Element: 0x0031},
	"AcquisitionDate":              {Group: 0x0008, Element: 0x0022},
	"AcquisitionTime":              {Group: 0x0008, Element: 0x0032},
	"ContentDate":                  {Group: 0x0008, Element: 0x0023},
	"ContentTime":                  {Group: 0x0008, Element: 0x0033},
	"StudyDescription":             {Group: 0x0008, Element: 0x1030},
	"SeriesDescription":            {Group: 0x0008, Element: 0x103E},
	"Modality":                     {Group: 0x0008, Element: 0x0060},
}

// Tags always removed regardless of profile, by name.
var sensitiveTagNames = []string{
	"OtherPatientIDsSequence",
	"PatientTelephoneNumbers",
	"MilitaryRank",
	"RequestAttributesSequence",
	"ClinicalTrialSponsorName",
	"ClinicalTrialProtocolID",
}

var sensitiveTags = map[string]dicom.Tag{
	"OtherPatientIDsSequence":   {Group: 0x0010, Element: 0x1002},
	"PatientTelephoneNumbers":   {Group: 0x0010, Element: 0x2154},
	"MilitaryRank":              {Group: 0x0010, Element: 0x1080},
	"RequestAttributesSequence": {Group: 0x0040, Element: 0x0275},
	"ClinicalTrialSponsorName":  {Group: 0x0012, Element: 0x0010},
	"ClinicalTrialProtocolID":   {Group: 0x0012, Element: 0x0020},
}

var (
	tagBurnedInAnnotation   = dicom.Tag{Group: 0x0028, Element: 0x0301}
	tagPatientIdentityRemoved = dicom.Tag{Group: 0x0012, Element: 0x0062}
	tagDeidentificationMethod = dicom.Tag{Group: 0x0012, Element: 0x0063}
)

// dateTimeTagNames are stamped to the current date/time by the default
// profile: a behaviour of the DEFAULT profile specifically, not a
// generic action in the closed action set.
var dateTimeTagNames = []string{
	"StudyDate", "StudyTime",
	"SeriesDate", "SeriesTime",
	"AcquisitionDate", "AcquisitionTime",
	"ContentDate", "ContentTime",
}

// uidTagCategory maps an attribute name that carries a UID to its registry
// scope.
var uidTagCategory = map[string]string{
	"StudyInstanceUID":    CategoryStudy,
	"SeriesInstanceUID":   CategorySeries,
	"SOPInstanceUID":      CategoryImage,
	"FrameOfReferenceUID": CategoryFrameOfReference,
	"AccessionNumber":     CategoryAccession,
}

// isOverlayGroup reports whether group belongs to the overlay data block
// 0x6000-0x601E. DICOM only defines overlay planes on even groups in that
// range, but any 0x6xxx group is treated as overlay data here and removed.
func isOverlayGroup(group uint16) bool {
	return group&0xF000 == 0x6000
}

// isPrivateGroup reports whether group is a private (odd-numbered) group.
func isPrivateGroup(group uint16) bool {
	return group%2 == 1
}
