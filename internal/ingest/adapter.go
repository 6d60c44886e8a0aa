// Package ingest bridges C-STORE events delivered by the DIMSE service
// layer into the storage manager's image pipeline. The DICOM library calls
// back on connection goroutines; the adapter lands the bytes in the temp
// directory synchronously, then hands processing to a bounded worker pool.
// The status returned to the SCU reflects intake and enqueue success only;
// processing failures surface as counter increments.
package ingest

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pixieveil/pixieveil/dicom"
	"github.com/pixieveil/pixieveil/interfaces"
	"github.com/pixieveil/pixieveil/services"
	"github.com/pixieveil/pixieveil/types"
)

// DICOM status codes returned in C-STORE-RSP.
const (
	StatusSuccess           = 0x0000
	StatusProcessingFailure = 0xC000
	StatusOutOfResources    = 0x0106
	StatusRefused           = 0xA700
)

// ImageStore is the slice of the storage manager the adapter depends on.
type ImageStore interface {
	SaveTempImage(data []byte, id string) (string, error)
	ProcessImage(ctx context.Context, path, id string) error
}

type job struct {
	path string
	id   string
}

// Adapter translates C-STORE events into storage manager calls. Register it
// with a services.Registry for the dimse.CStoreRQ command field.
type Adapter struct {
	store  ImageStore
	logger *slog.Logger

	mu           sync.Mutex
	queue        chan job
	shuttingDown bool

	workers int
	wg      sync.WaitGroup
}

// NewAdapter builds an Adapter with the given worker count and queue depth.
// Call Start before serving associations and Drain on shutdown.
func NewAdapter(store ImageStore, workers, queueDepth int, logger *slog.Logger) *Adapter {
	if workers <= 0 {
		workers = 4
	}
	if queueDepth <= 0 {
		queueDepth = 128
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		store:   store,
		logger:  logger,
		queue:   make(chan job, queueDepth),
		workers: workers,
	}
}

// Start launches the worker pool. Workers run until Drain closes the queue.
func (a *Adapter) Start(ctx context.Context) {
	for i := 0; i < a.workers; i++ {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			for j := range a.queue {
				if err := a.store.ProcessImage(ctx, j.path, j.id); err != nil {
					a.logger.Debug("process image rejected", "id", j.id, "error", err)
				}
			}
		}()
	}
}

// Drain stops accepting new images, closes the queue, and waits for
// in-flight work up to timeout.
func (a *Adapter) Drain(timeout time.Duration) {
	a.mu.Lock()
	if !a.shuttingDown {
		a.shuttingDown = true
		close(a.queue)
	}
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		a.logger.Warn("ingest drain timed out", "timeout", timeout)
	}
}

// enqueue hands a saved temp file to the worker pool. It reports false when
// the adapter is shutting down or the queue is full.
func (a *Adapter) enqueue(j job) (accepted, refused bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.shuttingDown {
		return false, true
	}
	select {
	case a.queue <- j:
		return true, false
	default:
		return false, false
	}
}

// HandleDIMSE implements interfaces.ServiceHandler for C-STORE requests.
//
// The event's dataset bytes are wrapped in a Part 10 stream carrying the
// association's negotiated transfer syntax, saved to the temp directory
// under a fresh reception UUID, and queued for processing. Status codes:
//
//   - 0x0000 intake succeeded and processing was queued
//   - 0xC000 the event carried no dataset
//   - 0x0106 saving or queueing failed (out of resources)
//   - 0xA700 the service is shutting down
func (a *Adapter) HandleDIMSE(ctx context.Context, msg *types.Message, data []byte, meta interfaces.MessageContext) (*types.Message, *dicom.Dataset, error) {
	if len(data) == 0 {
		a.logger.WarnContext(ctx, "C-STORE without dataset",
			"message_id", msg.MessageID,
			"sop_class_uid", msg.AffectedSOPClassUID)
		return services.NewCStoreResponse(msg, StatusProcessingFailure), nil, nil
	}

	id := uuid.New().String()

	transferSyntax := meta.TransferSyntaxUID
	if transferSyntax == "" {
		transferSyntax = types.ExplicitVRLittleEndian
	}

	fileBytes := dicom.BuildPart10(transferSyntax, msg.AffectedSOPClassUID, msg.AffectedSOPInstanceUID, data)

	path, err := a.store.SaveTempImage(fileBytes, id)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to save received image",
			"id", id, "error", err)
		return services.NewCStoreResponse(msg, StatusOutOfResources), nil, nil
	}

	accepted, refused := a.enqueue(job{path: path, id: id})
	switch {
	case refused:
		os.Remove(path)
		return services.NewCStoreResponse(msg, StatusRefused), nil, nil
	case !accepted:
		a.logger.WarnContext(ctx, "ingest queue full, rejecting image", "id", id)
		os.Remove(path)
		return services.NewCStoreResponse(msg, StatusOutOfResources), nil, nil
	}

	a.logger.DebugContext(ctx, "queued received image",
		"id", id,
		"sop_instance_uid", msg.AffectedSOPInstanceUID,
		"bytes", len(data))

	return services.NewCStoreResponse(msg, StatusSuccess), nil, nil
}
