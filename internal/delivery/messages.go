package delivery

import (
	"fmt"

	"github.com/vidgrab/vidgrab/pkg/models"
)

// maxQualityButtons caps the quality keyboard; the classifier may keep more
// candidates than fit comfortably in one prompt.
const maxQualityButtons = 8

// MediaSummary builds the text shown once metadata is resolved, above the
// type-choice keyboard.
func MediaSummary(info *models.MediaInfo) string {
	return fmt.Sprintf(
		"📹 <b>%s</b>\n\n"+
			"⏱ Duration: %s\n"+
			"🎬 Available formats:\n"+
			"• Video: %d\n"+
			"• Audio: %d\n\n"+
			"Choose a download type:",
		info.Title,
		FormatDuration(info.Duration),
		len(info.VideoFormats),
		len(info.AudioFormats),
	)
}

// FormatList builds the text shown above the quality keyboard for the chosen
// track type.
func FormatList(info *models.MediaInfo, track models.TrackType) string {
	formats := info.Formats(track)

	text := fmt.Sprintf("📹 <b>%s</b>\n\n", info.Title)
	if track == models.TrackVideo {
		text += "🎬 Available video formats:\n\n"
	} else {
		text += "🎵 Available audio formats:\n\n"
	}

	for i, f := range formats {
		if i >= maxQualityButtons {
			break
		}
		text += fmt.Sprintf("%d. %s (%s) - %s\n", i+1, f.Quality, f.Ext, FormatFileSize(f.Filesize))
	}

	text += "\nChoose a quality:"
	return text
}

// TypeKeyboard is the video/audio/cancel keyboard.
func TypeKeyboard() [][]Button {
	return [][]Button{
		{
			{Text: "🎬 Video", Data: TokenTypeVideo},
			{Text: "🎵 Audio", Data: TokenTypeAudio},
		},
		{
			{Text: "❌ Cancel", Data: TokenCancel},
		},
	}
}

// QualityKeyboard builds one button per candidate, capped, plus back and
// cancel rows.
func QualityKeyboard(formats []models.StreamDescriptor) [][]Button {
	var buttons [][]Button
	for i, f := range formats {
		if i >= maxQualityButtons {
			break
		}
		buttons = append(buttons, []Button{{
			Text: fmt.Sprintf("%s (%s) - %s", f.Quality, f.Ext, FormatFileSize(f.Filesize)),
			Data: fmt.Sprintf("%s%d", qualityPrefix, i),
		}})
	}

	buttons = append(buttons, []Button{{Text: "⬅️ Back", Data: TokenBackToType}})
	buttons = append(buttons, []Button{{Text: "❌ Cancel", Data: TokenCancel}})

	return buttons
}

// Caption builds the caption attached to the delivered file.
func Caption(title, quality string) string {
	return fmt.Sprintf("%s\n%s", title, quality)
}

// FormatFileSize renders a byte count for humans. Zero means the backend
// did not report a size.
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "size unknown"
	}

	units := []string{"B", "KB", "MB", "GB"}
	size := float64(bytes)
	unit := 0
	for size >= 1024 && unit < len(units)-1 {
		size /= 1024
		unit++
	}

	return fmt.Sprintf("%.2f %s", size, units[unit])
}

// FormatDuration renders seconds as H:MM:SS or M:SS.
func FormatDuration(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// User-facing status texts.
const (
	TextFetching        = "⏳ Fetching media information..."
	TextFetchFailed     = "❌ Could not fetch media information. Check the link and try again."
	TextDownloading     = "⏳ Downloading your file. This may take a while..."
	TextDownloadFailed  = "❌ Failed to download the file."
	TextCancelled       = "❌ Download cancelled."
	TextSessionExpired  = "❌ Session expired. Send the link again."
	TextNoFormats       = "❌ No formats available"
	TextInvalidChoice   = "❌ Invalid choice"
	TextCancelledShort  = "Cancelled"
	TextDownloadStarted = "⏳ Download started..."
	TextAlreadyRunning  = "⏳ A download is already running for you"
)
