// Package download drives the terminal stage of a request: invoke the
// external tool, re-upload the result, deliver it, reconcile the durable
// record, and release everything the session held.
package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/vidgrab/vidgrab/internal/delivery"
	"github.com/vidgrab/vidgrab/internal/logging"
	"github.com/vidgrab/vidgrab/internal/metrics"
	"github.com/vidgrab/vidgrab/internal/session"
	"github.com/vidgrab/vidgrab/internal/storage"
	"github.com/vidgrab/vidgrab/internal/tracing"
	"github.com/vidgrab/vidgrab/pkg/models"
)

var (
	// ErrDownloadInProgress rejects a second orchestration for a user whose
	// previous one has not finished.
	ErrDownloadInProgress = errors.New("download already in progress for user")
	// ErrNotReady rejects a session that has not reached quality selection.
	ErrNotReady = errors.New("session has no selected format")
)

// Tool is the external binary-download invocation.
type Tool interface {
	Download(ctx context.Context, url, formatID, outputName string) (string, error)
}

// Uploader is the storage re-upload channel.
type Uploader interface {
	UploadVideo(ctx context.Context, filePath, title, quality string) (*storage.UploadResult, error)
	UploadAudio(ctx context.Context, filePath, title, quality string) (*storage.UploadResult, error)
}

// Repository is the durable record side of the pipeline.
type Repository interface {
	FindLatestPending(ctx context.Context, userID, videoURL string) (*models.Download, error)
	MarkProcessing(ctx context.Context, id, format, quality string, fileSize int64) error
	MarkCompleted(ctx context.Context, id string, fileSize int64) error
}

// Publisher emits lifecycle events. May be nil when the event bus is not
// configured.
type Publisher interface {
	PublishEvent(ctx context.Context, event *models.DownloadEvent) error
}

// Sessions is the slice of the session store the orchestrator needs.
type Sessions interface {
	Delete(userID string)
}

// Request carries everything one orchestration run needs. ChatID keys the
// session store and the delivery channel; UserID is the durable user row and
// may be empty for users with no /start record.
type Request struct {
	UserID   string
	ChatID   string
	Session  *session.Session
	Progress delivery.MessageRef
}

// Orchestrator runs download pipelines as supervised tasks, at most one per
// user at a time.
type Orchestrator struct {
	tool     Tool
	uploader Uploader
	repo     Repository
	channel  delivery.Channel
	events   Publisher
	sessions Sessions
	log      *logging.Logger

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
	wg       sync.WaitGroup
}

// New creates an orchestrator.
func New(tool Tool, uploader Uploader, repo Repository, channel delivery.Channel, events Publisher, sessions Sessions, log *logging.Logger) *Orchestrator {
	return &Orchestrator{
		tool:     tool,
		uploader: uploader,
		repo:     repo,
		channel:  channel,
		events:   events,
		sessions: sessions,
		log:      log,
		inflight: make(map[string]context.CancelFunc),
	}
}

// Start launches the pipeline for a QualityChosen session. The run is
// asynchronous; Start returns once the task is registered. A user with a run
// already in flight gets ErrDownloadInProgress instead of a second task.
func (o *Orchestrator) Start(ctx context.Context, req Request) error {
	track, descriptor, ok := req.Session.Selection()
	if !ok {
		return ErrNotReady
	}

	o.mu.Lock()
	if _, running := o.inflight[req.ChatID]; running {
		o.mu.Unlock()
		return ErrDownloadInProgress
	}

	// The run must outlive the inbound update that triggered it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	o.inflight[req.ChatID] = cancel
	o.mu.Unlock()

	metrics.DownloadsStarted.WithLabelValues(string(track)).Inc()
	metrics.DownloadsInFlight.Inc()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(runCtx, req, track, descriptor)
	}()

	return nil
}

// Cancel aborts the user's in-flight run, if any. Reported for callers that
// want to distinguish "cancelled" from "nothing to cancel".
func (o *Orchestrator) Cancel(chatID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	cancel, ok := o.inflight[chatID]
	if ok {
		cancel()
	}
	return ok
}

// Wait blocks until all in-flight runs finish. Used on shutdown.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) run(ctx context.Context, req Request, track models.TrackType, descriptor models.StreamDescriptor) {
	span, ctx := tracing.StartSpan(ctx, "download.pipeline")
	defer span.Finish()
	tracing.SetTag(span, "user_id", req.UserID)
	tracing.SetTag(span, "track_type", string(track))

	started := time.Now()
	info := req.Session.Info()
	log := o.log.WithUserID(req.UserID).WithURL(req.Session.URL())

	var localPath string
	defer func() {
		// Cleanup runs whatever the outcome: local file, session, task slot.
		if localPath != "" {
			if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
				log.ErrorWithErr("failed to remove local file", err)
			}
		}
		o.sessions.Delete(req.ChatID)

		o.mu.Lock()
		delete(o.inflight, req.ChatID)
		o.mu.Unlock()

		metrics.DownloadsInFlight.Dec()
		metrics.DownloadDuration.WithLabelValues(string(track)).Observe(time.Since(started).Seconds())
	}()

	record := o.claimRecord(ctx, req, track, descriptor)

	path, err := o.tool.Download(ctx, req.Session.URL(), descriptor.FormatID, outputName(info, descriptor))
	if err != nil {
		o.fail(ctx, req, track, log, fmt.Errorf("download tool: %w", err))
		return
	}
	localPath = path

	stat, err := os.Stat(path)
	if err != nil {
		o.fail(ctx, req, track, log, fmt.Errorf("stat downloaded file: %w", err))
		return
	}

	caption := delivery.Caption(info.Title, descriptor.Quality)

	var result *storage.UploadResult
	if track == models.TrackVideo {
		result, err = o.uploader.UploadVideo(ctx, path, info.Title, descriptor.Quality)
	} else {
		result, err = o.uploader.UploadAudio(ctx, path, info.Title, descriptor.Quality)
	}
	if err != nil {
		o.fail(ctx, req, track, log, fmt.Errorf("re-upload: %w", err))
		return
	}
	metrics.UploadSizeBytes.Observe(float64(result.Size))

	if err := o.channel.SendFile(ctx, req.ChatID, track, result.Ref, caption); err != nil {
		o.fail(ctx, req, track, log, fmt.Errorf("deliver file: %w", err))
		return
	}

	if record != nil {
		if err := o.repo.MarkCompleted(ctx, record.ID, stat.Size()); err != nil {
			log.ErrorWithErr("failed to mark download completed", err)
		}
	}

	// Best effort: the progress message is cosmetic.
	if req.Progress != "" {
		if err := o.channel.DeleteMessage(ctx, req.Progress); err != nil {
			log.WithError(err).Debug("failed to delete progress message")
		}
	}

	o.publish(ctx, models.EventDownloadCompleted, req, record, track, descriptor, stat.Size())
	metrics.DownloadsCompleted.WithLabelValues(string(track), "completed").Inc()
	log.LogDownloadEvent(recordID(record), "pipeline", models.DownloadStatusCompleted, map[string]interface{}{
		"quality": descriptor.Quality,
		"size":    stat.Size(),
	})
}

// claimRecord resolves the pending record for this request and moves it to
// processing. A missing record is tolerated: the pipeline still delivers,
// there is just nothing durable to reconcile.
func (o *Orchestrator) claimRecord(ctx context.Context, req Request, track models.TrackType, descriptor models.StreamDescriptor) *models.Download {
	if req.UserID == "" {
		return nil
	}

	record, err := o.repo.FindLatestPending(ctx, req.UserID, req.Session.URL())
	if err != nil {
		o.log.WithUserID(req.UserID).WithError(err).Warn("no pending record to claim")
		return nil
	}

	if err := o.repo.MarkProcessing(ctx, record.ID, string(track), descriptor.Quality, descriptor.Filesize); err != nil {
		o.log.WithDownloadID(record.ID).ErrorWithErr("failed to mark download processing", err)
		return record
	}

	record.Status = models.DownloadStatusProcessing
	return record
}

// fail converts any pipeline error into a user-visible generic message. The
// record is deliberately left at its last status.
func (o *Orchestrator) fail(ctx context.Context, req Request, track models.TrackType, log *logging.Logger, err error) {
	log.ErrorWithErr("download pipeline failed", err)

	if req.Progress != "" {
		if editErr := o.channel.EditPrompt(ctx, req.Progress, delivery.TextDownloadFailed, nil); editErr != nil {
			log.WithError(editErr).Debug("failed to edit progress message")
		}
	}

	o.publish(ctx, models.EventDownloadFailed, req, nil, track, models.StreamDescriptor{}, 0)
	metrics.DownloadsCompleted.WithLabelValues(string(track), "failed").Inc()
}

func (o *Orchestrator) publish(ctx context.Context, event string, req Request, record *models.Download, track models.TrackType, descriptor models.StreamDescriptor, size int64) {
	if o.events == nil {
		return
	}

	e := &models.DownloadEvent{
		Event:      event,
		DownloadID: recordID(record),
		UserID:     req.UserID,
		VideoURL:   req.Session.URL(),
		Title:      req.Session.Info().Title,
		Format:     string(track),
		Quality:    descriptor.Quality,
		FileSize:   size,
		Timestamp:  time.Now(),
	}

	if err := o.events.PublishEvent(ctx, e); err != nil {
		o.log.WithError(err).Warn("failed to publish lifecycle event")
	}
}

// outputName derives a collision-avoiding local file name from the media id
// and the current time.
func outputName(info *models.MediaInfo, descriptor models.StreamDescriptor) string {
	return fmt.Sprintf("%s_%d.%s", info.ID, time.Now().UnixNano(), descriptor.Ext)
}

func recordID(record *models.Download) string {
	if record == nil {
		return ""
	}
	return record.ID
}
