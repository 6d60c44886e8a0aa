// Package storage implements the Storage Manager: per-image ingest
// orchestration, the study-state map, and the counters surface.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pixieveil/pixieveil/dicom"
	pverrors "github.com/pixieveil/pixieveil/errors"
	"github.com/pixieveil/pixieveil/internal/anonymize"
	"github.com/pixieveil/pixieveil/internal/counters"
	"github.com/pixieveil/pixieveil/internal/filter"
	"github.com/pixieveil/pixieveil/internal/numbering"
	"github.com/pixieveil/pixieveil/types"
)

var (
	tagStudyInstanceUID  = dicom.Tag{Group: 0x0020, Element: 0x000D}
	tagSeriesInstanceUID = dicom.Tag{Group: 0x0020, Element: 0x000E}
	tagSOPInstanceUID    = dicom.Tag{Group: 0x0008, Element: 0x0018}
	tagSOPClassUID       = dicom.Tag{Group: 0x0008, Element: 0x0016}
)

// Manager orchestrates SaveTempImage/ProcessImage and owns study_states,
// guarded by a single mutex (storage_lock) held only for map updates, never
// across disk I/O.
type Manager struct {
	basePath string
	tempPath string

	allocator  *numbering.Allocator
	filter     *filter.Filter
	anonymiser *anonymize.Anonymiser
	profile    *anonymize.Profile
	counters   *counters.Counters
	logger     *slog.Logger

	mu          sync.Mutex
	studyStates map[string]*StudyState

	shuttingDown atomic.Bool
}

// New builds a Storage Manager. profile is the anonymisation profile
// applied to every image; pass anonymize.DefaultProfile() when none is
// configured.
func New(basePath, tempPath string, allocator *numbering.Allocator, f *filter.Filter, anonymiser *anonymize.Anonymiser, profile *anonymize.Profile, c *counters.Counters, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		basePath:    basePath,
		tempPath:    tempPath,
		allocator:   allocator,
		filter:      f,
		anonymiser:  anonymiser,
		profile:     profile,
		counters:    c,
		logger:      logger,
		studyStates: make(map[string]*StudyState),
	}
}

// Recover seeds the numbering allocator from directories already on disk
// and, for any study directory without a matching in-memory study_states
// entry, creates one with last_received set to recovery time. This keeps a
// restart from immediately archiving a study that was mid-reception when
// the process died.
func (m *Manager) Recover(now time.Time) error {
	if _, err := m.allocator.Recover(); err != nil {
		return err
	}

	entries, err := os.ReadDir(m.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("storage: recover scan %s: %w", m.basePath, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		if !e.IsDir() || !fourDigitName(e.Name()) {
			continue
		}
		n := 0
		fmt.Sscanf(e.Name(), "%d", &n)
		key := recoveredKey(n)
		if _, exists := m.studyStates[key]; !exists {
			m.studyStates[key] = &StudyState{StudyNumber: n, LastReceived: now}
			m.logger.Info("recovered study directory on boot", "study_number", n)
		}
	}

	return nil
}

func recoveredKey(studyNumber int) string {
	return fmt.Sprintf("__recovered_%04d", studyNumber)
}

func fourDigitName(name string) bool {
	if len(name) != 4 {
		return false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Shutdown sets the shutting-down flag; subsequent ProcessImage calls
// return early.
func (m *Manager) Shutdown() {
	m.shuttingDown.Store(true)
}

// SaveTempImage writes bytes to <temp_path>/<id>.dcm and records reception
// counters.
func (m *Manager) SaveTempImage(data []byte, id string) (string, error) {
	if err := os.MkdirAll(m.tempPath, 0o755); err != nil {
		return "", pverrors.NewValidationError("temp_path", err.Error())
	}
	path := filepath.Join(m.tempPath, id+".dcm")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	m.counters.AddReceived(len(data))
	return path, nil
}

// ProcessImage runs the validate → filter → anonymise → number → move
// pipeline for the temp file at path. It never propagates a processing
// failure to the caller: every failure kind resolves to a counter increment
// and a debug log line, and the temp file is cleaned up. The only error
// ProcessImage returns is for a shutdown in progress; the adapter's workers
// only log it, since the C-STORE status has already been sent.
func (m *Manager) ProcessImage(ctx context.Context, path, id string) error {
	if m.shuttingDown.Load() {
		return pverrors.NewValidationError("shutdown", "storage manager is shutting down")
	}

	start := time.Now()

	raw, err := os.ReadFile(path)
	if err != nil {
		m.counters.AddIOError()
		m.logger.Debug("process image: read temp file failed", "id", id, "error", err)
		os.Remove(path)
		return nil
	}

	ds, err := m.parseLenient(raw)
	if err != nil {
		m.counters.AddValidationError()
		m.logger.Debug("process image: parse failed", "id", id, "error", err)
		os.Remove(path)
		return nil
	}

	studyUID := ds.GetString(tagStudyInstanceUID)
	seriesUID := ds.GetString(tagSeriesInstanceUID)
	sopUID := ds.GetString(tagSOPInstanceUID)
	if studyUID == "" || seriesUID == "" || sopUID == "" {
		m.counters.AddValidationError()
		m.logger.Debug("process image: missing required UID", "id", id,
			"study_uid", studyUID, "series_uid", seriesUID, "sop_uid", sopUID)
		os.Remove(path)
		return nil
	}

	if !m.filter.Accept(ds) {
		m.counters.AddFiltered()
		m.logger.Debug("process image: dropped by series filter", "id", id, "study_uid", studyUID)
		os.Remove(path)
		return nil
	}

	anonymised, err := m.anonymiser.Anonymize(ds, m.profile)
	if err != nil {
		m.counters.AddAnonymizationError()
		m.logger.Debug("process image: anonymization failed", "id", id, "error", err)
		os.Remove(path)
		return nil
	}

	// Re-wrap in a Part 10 stream so the on-disk file carries a file-meta
	// header naming the anonymised SOP instance, not the original one.
	encoded := dicom.BuildPart10(
		types.ExplicitVRLittleEndian,
		anonymised.GetString(tagSOPClassUID),
		anonymised.GetString(tagSOPInstanceUID),
		anonymised.EncodeDataset(),
	)
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		m.counters.AddIOError()
		m.logger.Debug("process image: write anonymised bytes failed", "id", id, "error", err)
		os.Remove(path)
		return nil
	}

	studyNumber := m.allocator.StudyNumber(studyUID)
	seriesNumber := m.allocator.SeriesNumber(studyNumber, studyUID, seriesUID)
	imageNumber := m.allocator.ImageNumber(studyNumber, seriesNumber, sopUID)

	// Refresh an already-tracked study before the disk work so the
	// completion tracker's quiescence scan cannot see a stale
	// last_received while this image is still moving into the layout. A
	// study with no state yet cannot be archived, so it is only created
	// once its first image has landed.
	m.refreshStudy(studyUID)

	destDir := filepath.Join(m.basePath, fmt.Sprintf("%04d", studyNumber), fmt.Sprintf("%04d", seriesNumber))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		m.counters.AddIOError()
		m.logger.Debug("process image: mkdir failed", "id", id, "error", err)
		os.Remove(path)
		return nil
	}

	destPath := filepath.Join(destDir, fmt.Sprintf("%04d.dcm", imageNumber))
	if err := os.Rename(path, destPath); err != nil {
		m.counters.AddIOError()
		m.logger.Debug("process image: move into layout failed", "id", id, "error", err)
		os.Remove(path)
		return nil
	}

	m.touchStudy(studyUID, studyNumber)

	m.counters.AddProcessed(time.Since(start).Nanoseconds())
	m.logger.Debug("process image: completed",
		"id", id, "study_number", studyNumber, "series_number", seriesNumber, "image_number", imageNumber)

	return nil
}

// touchStudy creates or refreshes the study's state under the lock,
// setting last_received to now.
func (m *Manager) touchStudy(studyUID string, studyNumber int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, exists := m.studyStates[studyUID]
	if !exists {
		state = &StudyState{StudyNumber: studyNumber}
		m.studyStates[studyUID] = state
	}
	state.LastReceived = time.Now()
}

// refreshStudy bumps last_received for a study that is already tracked;
// unknown studies are left for touchStudy once their first image lands.
func (m *Manager) refreshStudy(studyUID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state, exists := m.studyStates[studyUID]; exists {
		state.LastReceived = time.Now()
	}
}

// parseLenient parses raw bytes that may or may not carry a Part 10
// preamble and file-meta header.
func (m *Manager) parseLenient(raw []byte) (*dicom.Dataset, error) {
	if dicom.HasPart10Header(raw) {
		datasetBytes, transferSyntaxUID, err := dicom.StripPart10HeaderAndTransferSyntax(raw)
		if err != nil {
			return nil, err
		}
		return dicom.ParseDatasetWithTransferSyntax(datasetBytes, transferSyntaxUID)
	}
	return dicom.ParseDatasetWithTransferSyntax(raw, types.ExplicitVRLittleEndian)
}

// Snapshot returns a consistent copy of study_states, taken under the lock
// with no I/O inside the critical section. Used by the completion
// tracker.
func (m *Manager) Snapshot() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Snapshot, 0, len(m.studyStates))
	for uid, state := range m.studyStates {
		out = append(out, Snapshot{StudyUID: uid, State: *state})
	}
	return out
}

// MarkCompleted removes studyUID from study_states once the completion
// tracker has finished acting on it.
func (m *Manager) MarkCompleted(studyUID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.studyStates, studyUID)
}

// GetCounters returns a read-only deep copy of the counter tree.
func (m *Manager) GetCounters() counters.Snapshot {
	return m.counters.Snapshot()
}

// BasePath returns the studies root, for components that need to build
// paths (archiver, completion tracker).
func (m *Manager) BasePath() string {
	return m.basePath
}
