package download

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vidgrab/vidgrab/internal/delivery"
	"github.com/vidgrab/vidgrab/internal/logging"
	"github.com/vidgrab/vidgrab/internal/session"
	"github.com/vidgrab/vidgrab/internal/storage"
	"github.com/vidgrab/vidgrab/pkg/models"
)

// fakes

type fakeTool struct {
	mu      sync.Mutex
	dir     string
	err     error
	block   chan struct{} // when set, Download waits until closed
	calls   int
	lastURL string
}

func (f *fakeTool) Download(ctx context.Context, url, formatID, outputName string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.lastURL = url
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.err != nil {
		return "", f.err
	}

	path := filepath.Join(f.dir, outputName)
	if err := os.WriteFile(path, []byte("media bytes"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type fakeUploader struct {
	err    error
	videos int
	audios int
}

func (f *fakeUploader) UploadVideo(ctx context.Context, filePath, title, quality string) (*storage.UploadResult, error) {
	f.videos++
	if f.err != nil {
		return nil, f.err
	}
	return &storage.UploadResult{Ref: "video/" + filepath.Base(filePath), Size: 11}, nil
}

func (f *fakeUploader) UploadAudio(ctx context.Context, filePath, title, quality string) (*storage.UploadResult, error) {
	f.audios++
	if f.err != nil {
		return nil, f.err
	}
	return &storage.UploadResult{Ref: "audio/" + filepath.Base(filePath), Size: 11}, nil
}

type fakeRepo struct {
	mu          sync.Mutex
	pending     *models.Download
	transitions []string
}

func (f *fakeRepo) FindLatestPending(ctx context.Context, userID, videoURL string) (*models.Download, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil {
		return nil, errors.New("not found")
	}
	d := *f.pending
	return &d, nil
}

func (f *fakeRepo) MarkProcessing(ctx context.Context, id, format, quality string, fileSize int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transitions = append(f.transitions, models.DownloadStatusProcessing)
	return nil
}

func (f *fakeRepo) MarkCompleted(ctx context.Context, id string, fileSize int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transitions = append(f.transitions, models.DownloadStatusCompleted)
	return nil
}

func (f *fakeRepo) Transitions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.transitions...)
}

type fakeChannel struct {
	mu        sync.Mutex
	sentFiles []string
	edits     []string
	deleted   []delivery.MessageRef
}

func (f *fakeChannel) SendPrompt(ctx context.Context, userID, text string, buttons [][]delivery.Button) (delivery.MessageRef, error) {
	return "msg-1", nil
}

func (f *fakeChannel) EditPrompt(ctx context.Context, ref delivery.MessageRef, text string, buttons [][]delivery.Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, text)
	return nil
}

func (f *fakeChannel) DeleteMessage(ctx context.Context, ref delivery.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *fakeChannel) SendFile(ctx context.Context, userID string, track models.TrackType, fileRef, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentFiles = append(f.sentFiles, fileRef)
	return nil
}

func (f *fakeChannel) Acknowledge(ctx context.Context, interaction delivery.InteractionRef, text string) error {
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (f *fakePublisher) PublishEvent(ctx context.Context, event *models.DownloadEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event.Event)
	return nil
}

// helpers

func testSession(t *testing.T) *session.Session {
	t.Helper()
	info := &models.MediaInfo{
		ID:       "abc123",
		Title:    "Test Video",
		Duration: 60,
		VideoFormats: []models.StreamDescriptor{
			{FormatID: "22", Quality: "720p", Ext: "mp4", Filesize: 1000, VideoCodec: "avc1", AudioCodec: "mp4a"},
		},
		AudioFormats: []models.StreamDescriptor{
			{FormatID: "140", Quality: "128kbps", Ext: "m4a", AudioCodec: "mp4a"},
		},
	}
	sess := session.New("https://youtu.be/abc123", info)
	require.NoError(t, sess.ChooseType(models.TrackVideo))
	require.NoError(t, sess.ChooseQuality(0))
	return sess
}

type fixture struct {
	orch      *Orchestrator
	tool      *fakeTool
	uploader  *fakeUploader
	repo      *fakeRepo
	channel   *fakeChannel
	publisher *fakePublisher
	store     *session.Store
}

func setup(t *testing.T) *fixture {
	t.Helper()
	log, err := logging.NewDefaultLogger()
	require.NoError(t, err)

	tool := &fakeTool{dir: t.TempDir()}
	uploader := &fakeUploader{}
	repo := &fakeRepo{pending: &models.Download{ID: "dl-1", Status: models.DownloadStatusPending}}
	channel := &fakeChannel{}
	publisher := &fakePublisher{}
	store := session.NewStore(100, time.Minute, time.Minute)

	return &fixture{
		orch:      New(tool, uploader, repo, channel, publisher, store, log),
		tool:      tool,
		uploader:  uploader,
		repo:      repo,
		channel:   channel,
		publisher: publisher,
		store:     store,
	}
}

// tests

func TestOrchestrator_SuccessPath(t *testing.T) {
	f := setup(t)
	sess := testSession(t)
	f.store.Put("chat-1", sess)

	err := f.orch.Start(context.Background(), Request{
		UserID:   "user-1",
		ChatID:   "chat-1",
		Session:  sess,
		Progress: "msg-1",
	})
	require.NoError(t, err)
	f.orch.Wait()

	// record went pending -> processing -> completed
	assert.Equal(t, []string{models.DownloadStatusProcessing, models.DownloadStatusCompleted}, f.repo.Transitions())

	// file delivered by ref, progress message deleted
	require.Len(t, f.channel.sentFiles, 1)
	assert.Contains(t, f.channel.sentFiles[0], "video/")
	assert.Equal(t, []delivery.MessageRef{"msg-1"}, f.channel.deleted)

	// session released, local file removed
	_, ok := f.store.Get("chat-1")
	assert.False(t, ok)
	entries, err := os.ReadDir(f.tool.dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "local file must be cleaned up")

	assert.Equal(t, []string{models.EventDownloadCompleted}, f.publisher.events)
	assert.Equal(t, 1, f.uploader.videos)
	assert.Equal(t, 0, f.uploader.audios)
}

func TestOrchestrator_DownloadFailure(t *testing.T) {
	f := setup(t)
	f.tool.err = errors.New("network unreachable")
	sess := testSession(t)
	f.store.Put("chat-1", sess)

	err := f.orch.Start(context.Background(), Request{
		UserID:   "user-1",
		ChatID:   "chat-1",
		Session:  sess,
		Progress: "msg-1",
	})
	require.NoError(t, err)
	f.orch.Wait()

	// the record stays at processing: pipeline errors do not reconcile it
	assert.Equal(t, []string{models.DownloadStatusProcessing}, f.repo.Transitions())

	// user sees a generic failure, nothing delivered
	require.NotEmpty(t, f.channel.edits)
	assert.Equal(t, delivery.TextDownloadFailed, f.channel.edits[len(f.channel.edits)-1])
	assert.Empty(t, f.channel.sentFiles)

	// the session is still released
	_, ok := f.store.Get("chat-1")
	assert.False(t, ok)

	assert.Equal(t, []string{models.EventDownloadFailed}, f.publisher.events)
}

func TestOrchestrator_UploadFailureLeavesProcessing(t *testing.T) {
	f := setup(t)
	f.uploader.err = errors.New("bucket gone")
	sess := testSession(t)
	f.store.Put("chat-1", sess)

	require.NoError(t, f.orch.Start(context.Background(), Request{
		UserID: "user-1", ChatID: "chat-1", Session: sess,
	}))
	f.orch.Wait()

	assert.Equal(t, []string{models.DownloadStatusProcessing}, f.repo.Transitions())
	assert.Empty(t, f.channel.sentFiles)

	// partial-file cleanup still happens through the deferred block
	entries, err := os.ReadDir(f.tool.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOrchestrator_SingleFlightPerUser(t *testing.T) {
	f := setup(t)
	f.tool.block = make(chan struct{})
	sess := testSession(t)
	f.store.Put("chat-1", sess)

	req := Request{UserID: "user-1", ChatID: "chat-1", Session: sess}
	require.NoError(t, f.orch.Start(context.Background(), req))

	// double-tap: the second start is rejected, not raced
	err := f.orch.Start(context.Background(), req)
	assert.ErrorIs(t, err, ErrDownloadInProgress)

	close(f.tool.block)
	f.orch.Wait()
	assert.Equal(t, 1, f.tool.calls)

	// after completion a new run is accepted again
	sess2 := testSession(t)
	f.store.Put("chat-1", sess2)
	f.tool.block = nil
	require.NoError(t, f.orch.Start(context.Background(), Request{
		UserID: "user-1", ChatID: "chat-1", Session: sess2,
	}))
	f.orch.Wait()
}

func TestOrchestrator_DifferentUsersRunConcurrently(t *testing.T) {
	f := setup(t)
	f.tool.block = make(chan struct{})

	for _, chat := range []string{"chat-1", "chat-2"} {
		sess := testSession(t)
		f.store.Put(chat, sess)
		require.NoError(t, f.orch.Start(context.Background(), Request{
			UserID: "user-" + chat, ChatID: chat, Session: sess,
		}))
	}

	close(f.tool.block)
	f.orch.Wait()
	assert.Equal(t, 2, f.tool.calls)
}

func TestOrchestrator_MissingRecordStillDelivers(t *testing.T) {
	f := setup(t)
	f.repo.pending = nil
	sess := testSession(t)
	f.store.Put("chat-1", sess)

	require.NoError(t, f.orch.Start(context.Background(), Request{
		UserID: "user-1", ChatID: "chat-1", Session: sess,
	}))
	f.orch.Wait()

	assert.Empty(t, f.repo.Transitions())
	assert.Len(t, f.channel.sentFiles, 1)
}

func TestOrchestrator_NotReady(t *testing.T) {
	f := setup(t)
	info := &models.MediaInfo{ID: "x", VideoFormats: []models.StreamDescriptor{{FormatID: "22"}}}
	sess := session.New("https://youtu.be/x", info)

	err := f.orch.Start(context.Background(), Request{ChatID: "chat-1", Session: sess})
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestOrchestrator_Cancel(t *testing.T) {
	f := setup(t)
	f.tool.block = make(chan struct{})
	sess := testSession(t)
	f.store.Put("chat-1", sess)

	require.NoError(t, f.orch.Start(context.Background(), Request{
		UserID: "user-1", ChatID: "chat-1", Session: sess,
	}))

	assert.True(t, f.orch.Cancel("chat-1"))
	assert.False(t, f.orch.Cancel("chat-9"), "nothing in flight for unknown user")

	close(f.tool.block)
	f.orch.Wait()
}
