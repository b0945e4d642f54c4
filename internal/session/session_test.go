package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vidgrab/vidgrab/pkg/models"
)

func testInfo() *models.MediaInfo {
	return &models.MediaInfo{
		ID:       "dQw4w9WgXcQ",
		Title:    "Test Video",
		Duration: 212,
		VideoFormats: []models.StreamDescriptor{
			{FormatID: "22", Quality: "720p", Ext: "mp4", VideoCodec: "avc1", AudioCodec: "mp4a"},
			{FormatID: "18", Quality: "360p", Ext: "mp4", VideoCodec: "avc1", AudioCodec: "mp4a"},
		},
		AudioFormats: []models.StreamDescriptor{
			{FormatID: "140", Quality: "128kbps", Ext: "m4a", AudioCodec: "mp4a"},
		},
	}
}

func TestSession_FullFlow(t *testing.T) {
	sess := New("https://youtube.com/watch?v=dQw4w9WgXcQ", testInfo())
	assert.Equal(t, StateMetadataReady, sess.State())

	require.NoError(t, sess.ChooseType(models.TrackVideo))
	assert.Equal(t, StateTypeChosen, sess.State())

	require.NoError(t, sess.ChooseQuality(0))
	assert.Equal(t, StateQualityChosen, sess.State())

	trackType, format, ok := sess.Selection()
	require.True(t, ok)
	assert.Equal(t, models.TrackVideo, trackType)
	assert.Equal(t, "22", format.FormatID)
}

func TestSession_ChooseTypeEmptyList(t *testing.T) {
	info := testInfo()
	info.AudioFormats = nil
	sess := New("https://youtu.be/x", info)

	err := sess.ChooseType(models.TrackAudio)

	assert.ErrorIs(t, err, ErrNoFormats)
	assert.Equal(t, StateMetadataReady, sess.State())
}

func TestSession_ChooseQualityOutOfRange(t *testing.T) {
	sess := New("https://youtu.be/x", testInfo())
	require.NoError(t, sess.ChooseType(models.TrackAudio))

	assert.ErrorIs(t, sess.ChooseQuality(5), ErrInvalidSelection)
	assert.ErrorIs(t, sess.ChooseQuality(-1), ErrInvalidSelection)
	assert.Equal(t, StateTypeChosen, sess.State())

	_, _, ok := sess.Selection()
	assert.False(t, ok)
}

func TestSession_QualityBeforeType(t *testing.T) {
	sess := New("https://youtu.be/x", testInfo())

	assert.ErrorIs(t, sess.ChooseQuality(0), ErrInvalidSelection)
	assert.Equal(t, StateMetadataReady, sess.State())
}

func TestSession_Back(t *testing.T) {
	sess := New("https://youtu.be/x", testInfo())

	// back is only valid from TypeChosen
	assert.ErrorIs(t, sess.Back(), ErrInvalidSelection)

	require.NoError(t, sess.ChooseType(models.TrackVideo))
	require.NoError(t, sess.Back())
	assert.Equal(t, StateMetadataReady, sess.State())
	assert.Empty(t, sess.TrackType())

	// switching type after back works
	require.NoError(t, sess.ChooseType(models.TrackAudio))
	assert.Equal(t, models.TrackAudio, sess.TrackType())
}

func TestSession_InvalidType(t *testing.T) {
	sess := New("https://youtu.be/x", testInfo())

	assert.ErrorIs(t, sess.ChooseType("subtitles"), ErrInvalidSelection)
}
