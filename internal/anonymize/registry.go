package anonymize

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/google/uuid"
)

// UID category scopes. A StudyInstanceUID and a SeriesInstanceUID carrying
// the same textual value (possible in synthetic data) must still map to two
// distinct pseudo-UIDs, hence the registry is keyed by (category, original).
const (
	CategoryStudy            = "study"
	CategorySeries           = "series"
	CategoryImage            = "image"
	CategoryFrameOfReference = "frame_of_reference"
	CategoryAccession        = "accession"
)

type registryKey struct {
	category string
	original string
}

// Registry maps (category, original UID) to a generated pseudo-UID,
// consistently, for the lifetime of the process. It is not persisted across
// restarts.
type Registry struct {
	mu   sync.Mutex
	uids map[registryKey]string
}

// NewRegistry returns an empty UID registry.
func NewRegistry() *Registry {
	return &Registry{uids: make(map[registryKey]string)}
}

// Get returns the pseudo-UID for (category, original), generating and
// caching one on first use.
func (r *Registry) Get(category, original string) string {
	key := registryKey{category: category, original: original}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.uids[key]; ok {
		return existing
	}

	pseudo := generatePseudoUID()
	r.uids[key] = pseudo
	return pseudo
}

// generatePseudoUID builds a DICOM UID of the form 2.25.<decimal-of-uuid>,
// the root PS3.5 Annex B reserves for UUID-derived UIDs.
func generatePseudoUID() string {
	id := uuid.New()
	n := new(big.Int).SetBytes(id[:])
	return fmt.Sprintf("2.25.%s", n.String())
}

// AccessionToken derives a 16-character accession-shaped pseudonym from a
// pseudo-UID, truncating so it still reads like the SH-VR accession field
// it replaces.
func AccessionToken(pseudoUID string) string {
	cleaned := pseudoUID
	if len(cleaned) > 16 {
		cleaned = cleaned[len(cleaned)-16:]
	}
	return cleaned
}
