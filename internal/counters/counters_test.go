package counters

import "testing"

func TestCounters_Reception(t *testing.T) {
	c := New()

	c.AddReceived(1024)
	c.AddReceived(2048)
	c.AddAssociation()

	snap := c.Snapshot()
	if snap.Reception.Images != 2 {
		t.Errorf("Reception.Images = %d, want 2", snap.Reception.Images)
	}
	if snap.Reception.Bytes != 3072 {
		t.Errorf("Reception.Bytes = %d, want 3072", snap.Reception.Bytes)
	}
	if snap.Reception.Associations != 1 {
		t.Errorf("Reception.Associations = %d, want 1", snap.Reception.Associations)
	}
}

func TestCounters_ErrorTotals(t *testing.T) {
	c := New()

	c.AddValidationError()
	c.AddAnonymizationError()
	c.AddIOError()
	c.AddArchiveError()
	c.AddError()

	snap := c.Snapshot()
	if snap.Processing.Errors.Validation != 1 {
		t.Errorf("validation errors = %d, want 1", snap.Processing.Errors.Validation)
	}
	if snap.Processing.Errors.Anonymization != 1 {
		t.Errorf("anonymization errors = %d, want 1", snap.Processing.Errors.Anonymization)
	}
	if snap.Processing.Errors.IO != 1 {
		t.Errorf("io errors = %d, want 1", snap.Processing.Errors.IO)
	}
	if snap.Archive.Errors != 1 {
		t.Errorf("archive errors = %d, want 1", snap.Archive.Errors)
	}
	if snap.Errors.Total != 5 {
		t.Errorf("total errors = %d, want 5", snap.Errors.Total)
	}
}

func TestCounters_UploadError(t *testing.T) {
	c := New()

	c.AddUploadError()

	snap := c.Snapshot()
	if snap.RemoteStorage.Errors != 1 {
		t.Errorf("remote storage errors = %d, want 1", snap.RemoteStorage.Errors)
	}
	if snap.Archive.Errors != 1 {
		t.Errorf("archive errors = %d, want 1", snap.Archive.Errors)
	}
	if snap.Errors.Total != 1 {
		t.Errorf("total errors = %d, want 1", snap.Errors.Total)
	}
}

func TestCounters_ProcessingAverage(t *testing.T) {
	c := New()

	c.AddProcessed(100)
	c.AddProcessed(300)

	snap := c.Snapshot()
	if snap.Processing.Succeeded != 2 {
		t.Errorf("succeeded = %d, want 2", snap.Processing.Succeeded)
	}
	if got := snap.Processing.AverageNanos(); got != 200 {
		t.Errorf("AverageNanos() = %v, want 200", got)
	}
}

func TestCounters_AverageEmptyIsZero(t *testing.T) {
	c := New()
	if got := c.Snapshot().Processing.AverageNanos(); got != 0 {
		t.Errorf("AverageNanos() on empty counters = %v, want 0", got)
	}
}

func TestCounters_ArchiveAndRemote(t *testing.T) {
	c := New()

	c.AddArchived(12)
	c.AddArchiveBytes(4096)
	c.AddUploaded(12)
	c.AddCompleted()

	snap := c.Snapshot()
	if snap.Archive.Studies != 1 || snap.Archive.Images != 12 {
		t.Errorf("archive = %+v, want 1 study, 12 images", snap.Archive)
	}
	if snap.RemoteStorage.Studies != 1 || snap.RemoteStorage.Images != 12 || snap.RemoteStorage.Bytes != 4096 {
		t.Errorf("remote storage = %+v", snap.RemoteStorage)
	}
	if snap.CompletedCount != 1 {
		t.Errorf("completed count = %d, want 1", snap.CompletedCount)
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	c := New()
	c.AddReceived(10)

	snap := c.Snapshot()
	snap.Reception.Images = 99

	if got := c.Snapshot().Reception.Images; got != 1 {
		t.Errorf("mutating a snapshot leaked into the counters: %d", got)
	}
}

func TestCounters_Filtered(t *testing.T) {
	c := New()

	c.AddFiltered()

	snap := c.Snapshot()
	if snap.Filter.Dropped != 1 {
		t.Errorf("filter dropped = %d, want 1", snap.Filter.Dropped)
	}
	if snap.Processing.Dropped != 1 {
		t.Errorf("processing dropped = %d, want 1", snap.Processing.Dropped)
	}
	if snap.Errors.Total != 0 {
		t.Errorf("a filter drop is not an error, total = %d", snap.Errors.Total)
	}
}
