// Package completion implements the study completion tracker: a periodic
// task that finds quiescent studies, archives them, hands the archive to
// the uploader, and cleans up local state according to the upload outcome.
package completion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pixieveil/pixieveil/internal/archive"
	"github.com/pixieveil/pixieveil/internal/counters"
	"github.com/pixieveil/pixieveil/internal/storage"
	"github.com/pixieveil/pixieveil/internal/upload"
)

// StudyStates is the slice of the storage manager the tracker depends on:
// a consistent snapshot of per-study reception state and the removal call
// once a study reaches a terminal state.
type StudyStates interface {
	Snapshot() []storage.Snapshot
	MarkCompleted(studyUID string)
	BasePath() string
}

// Tracker scans study states every interval and closes out studies that
// have received no image for longer than timeout.
type Tracker struct {
	states   StudyStates
	uploader upload.Uploader
	counters *counters.Counters
	logger   *slog.Logger

	interval time.Duration
	timeout  time.Duration
}

// New builds a Tracker. interval falls back to 30s when not positive;
// timeout falls back to 120s when negative, and a zero timeout is kept.
func New(states StudyStates, uploader upload.Uploader, c *counters.Counters, interval, timeout time.Duration, logger *slog.Logger) *Tracker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if timeout < 0 {
		timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		states:   states,
		uploader: uploader,
		counters: c,
		logger:   logger,
		interval: interval,
		timeout:  timeout,
	}
}

// Run ticks until ctx is cancelled. Each tick takes a snapshot of study
// states and processes every quiescent study; archive and upload work
// happens outside any lock held by the storage manager.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info("completion tracker started",
		"interval", t.interval, "timeout", t.timeout)

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("completion tracker stopped")
			return
		case now := <-ticker.C:
			t.RunOnce(ctx, now)
		}
	}
}

// RunOnce performs a single scan-and-process pass using now as the
// reference time.
func (t *Tracker) RunOnce(ctx context.Context, now time.Time) {
	for _, snap := range t.states.Snapshot() {
		if snap.State.Completed {
			continue
		}
		if now.Sub(snap.State.LastReceived) <= t.timeout {
			continue
		}
		t.processStudy(ctx, snap)
	}
}

// processStudy archives and uploads one quiescent study, then applies the
// three-valued outcome handling: disabled keeps local data, success purges
// it, failure leaves everything in place for the next tick.
func (t *Tracker) processStudy(ctx context.Context, snap storage.Snapshot) {
	studyNumber := snap.State.StudyNumber
	studyDirName := fmt.Sprintf("%04d", studyNumber)
	studyDir := filepath.Join(t.states.BasePath(), studyDirName)

	if _, err := os.Stat(studyDir); err != nil {
		t.logger.Warn("study directory missing, skipping completion",
			"study_number", studyNumber, "error", err)
		t.counters.AddError()
		return
	}

	imageCount, err := archive.CountImages(studyDir)
	if err != nil {
		t.logger.Warn("failed to count study images",
			"study_number", studyNumber, "error", err)
		t.counters.AddArchiveError()
		return
	}
	t.counters.AddArchived(imageCount)

	zipPath := filepath.Join(t.states.BasePath(), studyDirName+".zip")
	result, err := archive.CreateZip(studyDir, zipPath, studyDirName)
	if err != nil {
		t.logger.Error("failed to archive study",
			"study_number", studyNumber, "error", err)
		t.counters.AddArchiveError()
		return
	}
	t.counters.AddArchiveBytes(result.Bytes)

	outcome, err := t.uploader.Upload(ctx, zipPath, studyDirName+".zip")
	switch outcome {
	case upload.OutcomeDisabled:
		// Remote storage not configured: the study is done, local data
		// stays in place.
		t.states.MarkCompleted(snap.StudyUID)
		t.counters.AddCompleted()
		t.logger.Info("study completed, upload disabled, keeping local data",
			"study_number", studyNumber, "images", imageCount)

	case upload.OutcomeSuccess:
		t.counters.AddUploaded(result.ImageCount)
		if err := os.RemoveAll(studyDir); err != nil {
			t.logger.Warn("failed to remove study directory",
				"study_number", studyNumber, "error", err)
		}
		if err := os.Remove(zipPath); err != nil {
			t.logger.Warn("failed to remove study archive",
				"study_number", studyNumber, "error", err)
		}
		t.states.MarkCompleted(snap.StudyUID)
		t.counters.AddCompleted()
		t.logger.Info("study completed and uploaded",
			"study_number", studyNumber,
			"images", result.ImageCount,
			"bytes", result.Bytes)

	default:
		// Failure: keep everything on disk, leave the study state in
		// place so the next tick retries the archive+upload pipeline.
		t.counters.AddUploadError()
		t.logger.Warn("study upload failed, will retry",
			"study_number", studyNumber, "error", err)
	}
}
