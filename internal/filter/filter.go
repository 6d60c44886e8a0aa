// Package filter implements the Series Filter, a stateless predicate that
// rejects a dataset pre-anonymisation.
package filter

import (
	"github.com/pixieveil/pixieveil/dicom"
)

var (
	tagModality = dicom.Tag{Group: 0x0008, Element: 0x0060}
	// tagImageType carries a DERIVED/SECONDARY flag in its value list when a
	// series is a reconstruction rather than an original acquisition.
	tagImageType = dicom.Tag{Group: 0x0008, Element: 0x0008}
)

// Filter is a pure function of the dataset, configured once at startup.
type Filter struct {
	excludeModalities  map[string]bool
	keepOriginalSeries bool
}

// New builds a Filter from the configured exclude list and the
// keep_original_series switch.
func New(excludeModalities []string, keepOriginalSeries bool) *Filter {
	set := make(map[string]bool, len(excludeModalities))
	for _, m := range excludeModalities {
		set[m] = true
	}
	return &Filter{excludeModalities: set, keepOriginalSeries: keepOriginalSeries}
}

// Accept reports whether ds should proceed to anonymisation. Any panic
// recovered during evaluation resolves to accept (conservative).
func (f *Filter) Accept(ds *dicom.Dataset) (accept bool) {
	accept = true
	defer func() {
		if r := recover(); r != nil {
			accept = true
		}
	}()

	if ds == nil {
		return true
	}

	if modality, ok := ds.GetElement(tagModality); ok {
		if s, ok := modality.Value.(string); ok && f.excludeModalities[s] {
			return false
		}
	}

	if f.keepOriginalSeries && f.isReconstructedSeries(ds) {
		return false
	}

	return true
}

// isReconstructedSeries is a stub mirroring the source's own
// "_is_original_series" stub: it always reports false (not reconstructed)
// until pixel-derived detection is implemented. Retained as a follow-up,
// not a complete heuristic.
func (f *Filter) isReconstructedSeries(ds *dicom.Dataset) bool {
	_ = tagImageType
	return false
}
