package bot

import "regexp"

// mediaURLPattern matches the supported link shapes: youtube.com/watch,
// youtu.be short links, embeds and shorts, with or without scheme and www.
var mediaURLPattern = regexp.MustCompile(
	`^(https?://)?(www\.)?(youtube\.com/(watch\?v=|embed/|shorts/)|youtu\.be/)[A-Za-z0-9_-]{6,}`,
)

// IsMediaURL reports whether the text is a downloadable media link.
func IsMediaURL(text string) bool {
	return mediaURLPattern.MatchString(text)
}
