package bot

import (
	"fmt"

	"github.com/vidgrab/vidgrab/pkg/models"
)

const (
	textUserUnknown     = "❌ You are not registered yet. Send /start first."
	textUnsupportedLink = "❌ This link is not supported. Send a YouTube video link."
)

func welcomeMessage(firstName string) string {
	name := firstName
	if name == "" {
		name = "there"
	}

	return fmt.Sprintf(
		"👋 Hi, %s!\n\n"+
			"I download videos and audio from YouTube.\n\n"+
			"📝 <b>How to use:</b>\n"+
			"1. Send me a YouTube link\n"+
			"2. Pick video or audio\n"+
			"3. Pick a quality\n"+
			"4. Get your file!\n\n"+
			"🔗 Supported link formats:\n"+
			"• youtube.com/watch?v=...\n"+
			"• youtu.be/...\n"+
			"• youtube.com/embed/...\n\n"+
			"💡 Just send a link to get started!",
		name,
	)
}

func helpMessage() string {
	return "❓ <b>Help</b>\n\n" +
		"<b>Commands:</b>\n" +
		"/start - Start using the bot\n" +
		"/help - Show this message\n" +
		"/stats - Your download history\n\n" +
		"<b>How to download:</b>\n" +
		"1. Send a YouTube video link\n" +
		"2. Choose video or audio\n" +
		"3. Choose a quality\n" +
		"4. Wait for the file\n\n" +
		"<b>Limits:</b>\n" +
		"• Maximum file size: 2 GB\n" +
		"• For long videos prefer the audio format"
}

func statsMessage(stats *models.DownloadStats, recent []*models.Download) string {
	text := "📊 <b>Your statistics</b>\n\n"
	text += fmt.Sprintf("✅ Completed: %d\n", stats.Completed)
	text += fmt.Sprintf("❌ Failed: %d\n", stats.Failed)
	text += fmt.Sprintf("📦 Total attempts: %d\n\n", stats.Total)

	if len(recent) > 0 {
		text += "<b>Recent downloads:</b>\n\n"
		for i, d := range recent {
			title := d.VideoTitle
			if title == "" {
				title = "Untitled"
			}
			text += fmt.Sprintf("%d. %s %s\n", i+1, statusEmoji(d.Status), title)
			text += fmt.Sprintf("   %s (%s)\n\n", d.Format, d.Quality)
		}
	}

	return text
}

func statusEmoji(status string) string {
	switch status {
	case models.DownloadStatusCompleted:
		return "✅"
	case models.DownloadStatusFailed:
		return "❌"
	default:
		return "⏳"
	}
}
