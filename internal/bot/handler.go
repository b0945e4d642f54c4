// Package bot routes inbound user actions through the selection flow:
// URL in, metadata prompt out, type and quality choices in, orchestration
// handed off. It owns no transport; everything user-facing goes through the
// delivery channel.
package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vidgrab/vidgrab/internal/delivery"
	"github.com/vidgrab/vidgrab/internal/download"
	"github.com/vidgrab/vidgrab/internal/logging"
	"github.com/vidgrab/vidgrab/internal/metrics"
	"github.com/vidgrab/vidgrab/internal/session"
	"github.com/vidgrab/vidgrab/internal/tracing"
	"github.com/vidgrab/vidgrab/pkg/models"
)

// MetadataFetcher resolves a URL against the extraction backend.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, url string) (*models.MediaInfo, error)
}

// MetadataCache fronts the fetcher. May be nil when Redis is not configured.
type MetadataCache interface {
	GetMediaInfo(ctx context.Context, url string) (*models.MediaInfo, error)
	SetMediaInfo(ctx context.Context, url string, info *models.MediaInfo) error
}

// Repository is the durable side the handler needs.
type Repository interface {
	UpsertUser(ctx context.Context, user *models.User) error
	GetUserByPlatformID(ctx context.Context, platformID string) (*models.User, error)
	CreateDownload(ctx context.Context, download *models.Download) error
	GetUserStats(ctx context.Context, userID string) (*models.DownloadStats, error)
	ListDownloadsByUser(ctx context.Context, userID string, limit int) ([]*models.Download, error)
}

// Starter launches and cancels supervised orchestrations.
type Starter interface {
	Start(ctx context.Context, req download.Request) error
	Cancel(chatID string) bool
}

// Publisher emits lifecycle events. May be nil.
type Publisher interface {
	PublishEvent(ctx context.Context, event *models.DownloadEvent) error
}

// IncomingUser is the profile attached to an inbound update.
type IncomingUser struct {
	PlatformID string
	Username   string
	FirstName  string
	LastName   string
}

// Handler drives one user action at a time through the selection flow.
type Handler struct {
	store   *session.Store
	channel delivery.Channel
	fetcher MetadataFetcher
	cache   MetadataCache
	repo    Repository
	orch    Starter
	events  Publisher
	log     *logging.Logger
}

// NewHandler creates a handler. cache and events may be nil.
func NewHandler(store *session.Store, channel delivery.Channel, fetcher MetadataFetcher, cache MetadataCache, repo Repository, orch Starter, events Publisher, log *logging.Logger) *Handler {
	return &Handler{
		store:   store,
		channel: channel,
		fetcher: fetcher,
		cache:   cache,
		repo:    repo,
		orch:    orch,
		events:  events,
		log:     log,
	}
}

// HandleStart registers or refreshes the user and sends the welcome text.
func (h *Handler) HandleStart(ctx context.Context, user IncomingUser) error {
	row := &models.User{
		PlatformID: user.PlatformID,
		Username:   user.Username,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
	}
	if err := h.repo.UpsertUser(ctx, row); err != nil {
		h.log.WithUserID(user.PlatformID).ErrorWithErr("failed to upsert user", err)
	}

	_, err := h.channel.SendPrompt(ctx, user.PlatformID, welcomeMessage(user.FirstName), nil)
	return err
}

// HandleHelp sends the help text.
func (h *Handler) HandleHelp(ctx context.Context, platformID string) error {
	_, err := h.channel.SendPrompt(ctx, platformID, helpMessage(), nil)
	return err
}

// HandleStats sends the user's download history summary.
func (h *Handler) HandleStats(ctx context.Context, platformID string) error {
	user, err := h.repo.GetUserByPlatformID(ctx, platformID)
	if err != nil {
		_, sendErr := h.channel.SendPrompt(ctx, platformID, textUserUnknown, nil)
		return sendErr
	}

	stats, err := h.repo.GetUserStats(ctx, user.ID)
	if err != nil {
		return err
	}

	recent, err := h.repo.ListDownloadsByUser(ctx, user.ID, 5)
	if err != nil {
		return err
	}

	_, err = h.channel.SendPrompt(ctx, platformID, statsMessage(stats, recent), nil)
	return err
}

// HandleText processes a plain message. Only media URLs start a flow; text
// that looks like a link but is not supported gets an explicit rejection,
// anything else is ignored.
func (h *Handler) HandleText(ctx context.Context, platformID, text string) error {
	text = strings.TrimSpace(text)

	if IsMediaURL(text) {
		return h.handleURL(ctx, platformID, text)
	}

	if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
		_, err := h.channel.SendPrompt(ctx, platformID, textUnsupportedLink, nil)
		return err
	}

	return nil
}

func (h *Handler) handleURL(ctx context.Context, platformID, url string) error {
	span, ctx := tracing.StartSpan(ctx, "bot.handle_url")
	defer span.Finish()

	log := h.log.WithUserID(platformID).WithURL(url)

	placeholder, err := h.channel.SendPrompt(ctx, platformID, delivery.TextFetching, nil)
	if err != nil {
		return err
	}

	info, err := h.resolveMetadata(ctx, url)
	if err != nil {
		tracing.LogError(span, err)
		log.ErrorWithErr("metadata fetch failed", err)
		metrics.MetadataFetchesTotal.WithLabelValues("error").Inc()

		h.deleteQuietly(ctx, placeholder)
		_, sendErr := h.channel.SendPrompt(ctx, platformID, delivery.TextFetchFailed, nil)
		return sendErr
	}
	metrics.MetadataFetchesTotal.WithLabelValues("ok").Inc()

	// A new URL replaces whatever the user had going.
	h.store.Put(platformID, session.New(url, info))
	log.LogSessionEvent(platformID, "url_accepted", session.StateMetadataReady.String())

	h.createPendingRecord(ctx, platformID, url, info)

	h.deleteQuietly(ctx, placeholder)
	_, err = h.channel.SendPrompt(ctx, platformID, delivery.MediaSummary(info), delivery.TypeKeyboard())
	return err
}

// HandleCallback processes a button press against the user's session.
func (h *Handler) HandleCallback(ctx context.Context, platformID string, interaction delivery.InteractionRef, msgRef delivery.MessageRef, data string) error {
	action, err := delivery.ParseAction(data)
	if err != nil {
		return h.channel.Acknowledge(ctx, interaction, "")
	}

	switch action.Kind {
	case delivery.ActionCancel:
		return h.handleCancel(ctx, platformID, interaction, msgRef)
	case delivery.ActionChooseType:
		return h.handleChooseType(ctx, platformID, interaction, msgRef, action.TrackType)
	case delivery.ActionChooseQuality:
		return h.handleChooseQuality(ctx, platformID, interaction, msgRef, action.QualityIndex)
	case delivery.ActionBack:
		return h.handleBack(ctx, platformID, interaction, msgRef)
	default:
		return h.channel.Acknowledge(ctx, interaction, "")
	}
}

func (h *Handler) handleCancel(ctx context.Context, platformID string, interaction delivery.InteractionRef, msgRef delivery.MessageRef) error {
	h.orch.Cancel(platformID)
	h.store.Delete(platformID)
	h.log.LogSessionEvent(platformID, "cancel", "terminal")

	if err := h.channel.Acknowledge(ctx, interaction, delivery.TextCancelledShort); err != nil {
		return err
	}
	return h.channel.EditPrompt(ctx, msgRef, delivery.TextCancelled, nil)
}

func (h *Handler) handleChooseType(ctx context.Context, platformID string, interaction delivery.InteractionRef, msgRef delivery.MessageRef, track models.TrackType) error {
	sess, ok := h.store.Get(platformID)
	if !ok {
		return h.channel.Acknowledge(ctx, interaction, delivery.TextSessionExpired)
	}

	if err := sess.ChooseType(track); err != nil {
		if errors.Is(err, session.ErrNoFormats) {
			return h.channel.Acknowledge(ctx, interaction, delivery.TextNoFormats)
		}
		return h.channel.Acknowledge(ctx, interaction, delivery.TextInvalidChoice)
	}
	h.log.LogSessionEvent(platformID, "choose_type", sess.State().String())

	info := sess.Info()
	if err := h.channel.EditPrompt(ctx, msgRef, delivery.FormatList(info, track), delivery.QualityKeyboard(info.Formats(track))); err != nil {
		return err
	}
	return h.channel.Acknowledge(ctx, interaction, "")
}

func (h *Handler) handleChooseQuality(ctx context.Context, platformID string, interaction delivery.InteractionRef, msgRef delivery.MessageRef, index int) error {
	sess, ok := h.store.Get(platformID)
	if !ok {
		return h.channel.Acknowledge(ctx, interaction, delivery.TextSessionExpired)
	}

	if err := sess.ChooseQuality(index); err != nil {
		return h.channel.Acknowledge(ctx, interaction, delivery.TextInvalidChoice)
	}
	h.log.LogSessionEvent(platformID, "choose_quality", sess.State().String())

	if err := h.channel.Acknowledge(ctx, interaction, delivery.TextDownloadStarted); err != nil {
		h.log.WithError(err).Debug("failed to acknowledge interaction")
	}
	if err := h.channel.EditPrompt(ctx, msgRef, delivery.TextDownloading, nil); err != nil {
		h.log.WithError(err).Debug("failed to edit prompt")
	}

	userID := ""
	if user, err := h.repo.GetUserByPlatformID(ctx, platformID); err == nil {
		userID = user.ID
	}

	err := h.orch.Start(ctx, download.Request{
		UserID:   userID,
		ChatID:   platformID,
		Session:  sess,
		Progress: msgRef,
	})
	if errors.Is(err, download.ErrDownloadInProgress) {
		return h.channel.EditPrompt(ctx, msgRef, delivery.TextAlreadyRunning, nil)
	}
	return err
}

func (h *Handler) handleBack(ctx context.Context, platformID string, interaction delivery.InteractionRef, msgRef delivery.MessageRef) error {
	sess, ok := h.store.Get(platformID)
	if !ok {
		return h.channel.Acknowledge(ctx, interaction, delivery.TextSessionExpired)
	}

	if err := sess.Back(); err != nil {
		return h.channel.Acknowledge(ctx, interaction, delivery.TextInvalidChoice)
	}
	h.log.LogSessionEvent(platformID, "back", sess.State().String())

	if err := h.channel.EditPrompt(ctx, msgRef, delivery.MediaSummary(sess.Info()), delivery.TypeKeyboard()); err != nil {
		return err
	}
	return h.channel.Acknowledge(ctx, interaction, "")
}

// resolveMetadata consults the cache before the external tool.
func (h *Handler) resolveMetadata(ctx context.Context, url string) (*models.MediaInfo, error) {
	if h.cache != nil {
		if info, err := h.cache.GetMediaInfo(ctx, url); err == nil && info != nil {
			metrics.MetadataCacheHits.Inc()
			return info, nil
		}
	}

	info, err := h.fetcher.FetchMetadata(ctx, url)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.SetMediaInfo(ctx, url, info); err != nil {
			h.log.WithError(err).Warn("failed to cache media info")
		}
	}

	return info, nil
}

// createPendingRecord writes the pending DownloadRecord for a known user and
// publishes the requested event. Users who never ran /start have no row, so
// nothing durable is created for them.
func (h *Handler) createPendingRecord(ctx context.Context, platformID, url string, info *models.MediaInfo) {
	user, err := h.repo.GetUserByPlatformID(ctx, platformID)
	if err != nil {
		return
	}

	record := &models.Download{
		UserID:     user.ID,
		VideoURL:   url,
		VideoTitle: info.Title,
		Format:     models.DownloadStatusPending,
		Quality:    models.DownloadStatusPending,
		Status:     models.DownloadStatusPending,
	}
	if err := h.repo.CreateDownload(ctx, record); err != nil {
		h.log.WithUserID(user.ID).ErrorWithErr("failed to create download record", err)
		return
	}

	if h.events != nil {
		event := &models.DownloadEvent{
			Event:      models.EventDownloadRequested,
			DownloadID: record.ID,
			UserID:     user.ID,
			VideoURL:   url,
			Title:      info.Title,
			Timestamp:  time.Now(),
		}
		if err := h.events.PublishEvent(ctx, event); err != nil {
			h.log.WithError(err).Warn("failed to publish lifecycle event")
		}
	}
}

func (h *Handler) deleteQuietly(ctx context.Context, ref delivery.MessageRef) {
	if err := h.channel.DeleteMessage(ctx, ref); err != nil {
		h.log.WithError(err).Debug("failed to delete placeholder message")
	}
}
