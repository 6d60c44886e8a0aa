// Package counters is the in-memory hierarchical statistics tree exposed
// read-only to the dashboard.
package counters

import "sync"

// ProcessingErrors tallies ProcessImage failure kinds.
type ProcessingErrors struct {
	Validation    uint64 `json:"validation"`
	Anonymization uint64 `json:"anonymization"`
	IO            uint64 `json:"io"`
}

// Reception tracks C-STORE intake before processing.
type Reception struct {
	Images       uint64 `json:"images"`
	Bytes        uint64 `json:"bytes"`
	Associations uint64 `json:"associations"`
}

// Processing tracks ProcessImage outcomes and timing.
type Processing struct {
	Succeeded          uint64           `json:"succeeded"`
	Dropped            uint64           `json:"dropped"`
	Errors             ProcessingErrors `json:"errors"`
	TotalDurationNanos uint64           `json:"total_duration_nanos"`
}

// AverageNanos returns the mean ProcessImage duration. Reset implicitly on
// process restart; there is no persistence contract for this figure.
func (p Processing) AverageNanos() float64 {
	if p.Succeeded == 0 {
		return 0
	}
	return float64(p.TotalDurationNanos) / float64(p.Succeeded)
}

// Archive tracks ZIP creation.
type Archive struct {
	Studies uint64 `json:"studies"`
	Images  uint64 `json:"images"`
	Errors  uint64 `json:"errors"`
}

// RemoteStorage tracks upload outcomes.
type RemoteStorage struct {
	Studies uint64 `json:"studies"`
	Images  uint64 `json:"images"`
	Bytes   uint64 `json:"bytes"`
	Errors  uint64 `json:"errors"`
}

// Errors is the process-wide error total, incremented alongside every
// more specific error counter.
type Errors struct {
	Total uint64 `json:"total"`
}

// Filter tracks the Series Filter's drop decisions.
type Filter struct {
	Dropped uint64 `json:"dropped"`
}

// Snapshot is a deep, lock-free copy of the counter tree, safe to hand to
// the dashboard.
type Snapshot struct {
	Reception     Reception     `json:"reception"`
	Processing    Processing    `json:"processing"`
	Archive       Archive       `json:"archive"`
	RemoteStorage RemoteStorage `json:"remote_storage"`
	Filter        Filter        `json:"filter"`
	Errors        Errors        `json:"errors"`
	CompletedCount uint64       `json:"completed_count"`
}

// Counters is the mutable tree. All mutation happens under mu; reads go
// through Snapshot so callers never hold the lock.
type Counters struct {
	mu   sync.Mutex
	tree Snapshot
}

// New returns an empty counter tree.
func New() *Counters {
	return &Counters{}
}

// Snapshot returns a deep copy of the current counters.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree
}

// AddReceived records one C-STORE reception of n bytes.
func (c *Counters) AddReceived(bytes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tree.Reception.Images++
	c.tree.Reception.Bytes += uint64(bytes)
}

// AddAssociation records one accepted association.
func (c *Counters) AddAssociation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tree.Reception.Associations++
}

// AddValidationError records a validation failure.
func (c *Counters) AddValidationError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tree.Processing.Errors.Validation++
	c.tree.Errors.Total++
}

// AddAnonymizationError records an anonymisation failure.
func (c *Counters) AddAnonymizationError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tree.Processing.Errors.Anonymization++
	c.tree.Errors.Total++
}

// AddIOError records an ingest I/O failure.
func (c *Counters) AddIOError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tree.Processing.Errors.IO++
	c.tree.Errors.Total++
}

// AddFiltered records a Series Filter drop.
func (c *Counters) AddFiltered() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tree.Filter.Dropped++
	c.tree.Processing.Dropped++
}

// AddProcessed records a successful ProcessImage call and its duration.
func (c *Counters) AddProcessed(durationNanos int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tree.Processing.Succeeded++
	c.tree.Processing.TotalDurationNanos += uint64(durationNanos)
}

// AddArchived records a ZIP creation covering the given number of images.
func (c *Counters) AddArchived(images int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tree.Archive.Studies++
	c.tree.Archive.Images += uint64(images)
}

// AddArchiveError records an archive (ZIP) failure.
func (c *Counters) AddArchiveError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tree.Archive.Errors++
	c.tree.Errors.Total++
}

// AddUploaded records a successful upload covering the given number of
// images. Bytes are accounted separately via AddArchiveBytes: the archive's
// byte size is folded in as soon as the ZIP is written, regardless of which
// of the three upload outcomes follows.
func (c *Counters) AddUploaded(images int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tree.RemoteStorage.Studies++
	c.tree.RemoteStorage.Images += uint64(images)
}

// AddArchiveBytes folds an archive's byte size into remote_storage.bytes.
// Called once per created ZIP, independent of the upload outcome.
func (c *Counters) AddArchiveBytes(bytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tree.RemoteStorage.Bytes += uint64(bytes)
}

// AddUploadError records an upload failure. The archive error counter is
// bumped too: a failed upload leaves the study's archive undelivered, and
// the whole archive+upload attempt is retried on the next tick.
func (c *Counters) AddUploadError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tree.RemoteStorage.Errors++
	c.tree.Archive.Errors++
	c.tree.Errors.Total++
}

// AddError records a failure covered by no more specific counter.
func (c *Counters) AddError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tree.Errors.Total++
}

// AddCompleted records a study reaching a terminal state (kept or purged).
func (c *Counters) AddCompleted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tree.CompletedCount++
}
