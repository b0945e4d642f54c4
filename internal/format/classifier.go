// Package format partitions and ranks the raw stream descriptors reported by
// the extraction backend into the candidate lists shown to the user.
package format

import (
	"sort"
	"strconv"

	"github.com/vidgrab/vidgrab/pkg/models"
)

const (
	// MaxVideoCandidates caps the ranked video list.
	MaxVideoCandidates = 10
	// MaxAudioCandidates caps the ranked audio list.
	MaxAudioCandidates = 5
)

// Classify splits raw descriptors into video-capable and audio-only
// candidates, ranks each list, and caps them. A descriptor is video-capable
// when it declares both a video and an audio codec; audio-only when it
// declares an audio codec and no video codec. Everything else (video-only DASH
// streams, storyboards) is dropped.
//
// Video candidates are ordered by vertical resolution parsed from the quality
// label, descending; audio candidates by declared bitrate, descending. Equal
// keys keep the backend's order.
func Classify(raw []models.StreamDescriptor) (video, audio []models.StreamDescriptor) {
	for _, d := range raw {
		switch {
		case hasCodec(d.VideoCodec) && hasCodec(d.AudioCodec):
			video = append(video, d)
		case hasCodec(d.AudioCodec) && !hasCodec(d.VideoCodec):
			audio = append(audio, d)
		}
	}

	sort.SliceStable(video, func(i, j int) bool {
		return ParseHeight(video[i].Quality) > ParseHeight(video[j].Quality)
	})
	sort.SliceStable(audio, func(i, j int) bool {
		return audio[i].Bitrate > audio[j].Bitrate
	})

	if len(video) > MaxVideoCandidates {
		video = video[:MaxVideoCandidates]
	}
	if len(audio) > MaxAudioCandidates {
		audio = audio[:MaxAudioCandidates]
	}

	return video, audio
}

// ParseHeight extracts the leading numeric height from a quality label such
// as "720p" or "1080p60". Labels with no leading number rank as 0.
func ParseHeight(quality string) int {
	end := 0
	for end < len(quality) && quality[end] >= '0' && quality[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	h, err := strconv.Atoi(quality[:end])
	if err != nil {
		return 0
	}
	return h
}

func hasCodec(codec string) bool {
	return codec != "" && codec != "none"
}
