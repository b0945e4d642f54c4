package models

// TrackType selects between the two deliverable track kinds
type TrackType string

const (
	TrackVideo TrackType = "video"
	TrackAudio TrackType = "audio"
)

// Valid reports whether t is one of the known track types
func (t TrackType) Valid() bool {
	return t == TrackVideo || t == TrackAudio
}

// StreamDescriptor is one selectable quality/format option reported by the
// extraction backend. All fields besides FormatID and Ext may be absent.
type StreamDescriptor struct {
	FormatID   string  `json:"format_id"`
	Quality    string  `json:"quality"`
	Ext        string  `json:"ext"`
	Filesize   int64   `json:"filesize,omitempty"`
	VideoCodec string  `json:"vcodec,omitempty"`
	AudioCodec string  `json:"acodec,omitempty"`
	Resolution string  `json:"resolution,omitempty"`
	FPS        float64 `json:"fps,omitempty"`
	Bitrate    float64 `json:"tbr,omitempty"`
}

// MediaInfo is an immutable snapshot of a resolved source: identity plus the
// ranked, size-capped candidate lists produced by the format classifier.
type MediaInfo struct {
	ID           string             `json:"id"`
	Title        string             `json:"title"`
	Duration     float64            `json:"duration"`
	Thumbnail    string             `json:"thumbnail,omitempty"`
	VideoFormats []StreamDescriptor `json:"video_formats"`
	AudioFormats []StreamDescriptor `json:"audio_formats"`
}

// Formats returns the candidate list for the given track type.
func (m *MediaInfo) Formats(t TrackType) []StreamDescriptor {
	if t == TrackAudio {
		return m.AudioFormats
	}
	return m.VideoFormats
}
