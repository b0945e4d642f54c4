// Package downloader wraps the external yt-dlp tool: metadata extraction and
// the actual binary download. Both are plain subprocess invocations; a failure
// of either surfaces as a generic tool error.
package downloader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/vidgrab/vidgrab/internal/config"
	"github.com/vidgrab/vidgrab/internal/format"
	"github.com/vidgrab/vidgrab/pkg/models"
)

// Client invokes yt-dlp
type Client struct {
	ytDlpPath    string
	downloadsDir string
}

// NewClient creates a yt-dlp client and ensures the downloads directory exists
func NewClient(cfg config.DownloaderConfig) (*Client, error) {
	if err := os.MkdirAll(cfg.DownloadsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create downloads directory: %w", err)
	}

	return &Client{
		ytDlpPath:    cfg.YtDlpPath,
		downloadsDir: cfg.DownloadsDir,
	}, nil
}

// rawInfo mirrors the JSON yt-dlp prints with -J
type rawInfo struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Duration  float64     `json:"duration"`
	Thumbnail string      `json:"thumbnail"`
	Formats   []rawFormat `json:"formats"`
}

type rawFormat struct {
	FormatID       string  `json:"format_id"`
	FormatNote     string  `json:"format_note"`
	Ext            string  `json:"ext"`
	Height         int     `json:"height"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
	Resolution     string  `json:"resolution"`
	FPS            float64 `json:"fps"`
	TBR            float64 `json:"tbr"`
	ABR            float64 `json:"abr"`
}

// FetchMetadata resolves a URL into a classified, ranked media snapshot.
func (c *Client) FetchMetadata(ctx context.Context, url string) (*models.MediaInfo, error) {
	args := []string{
		"-J",
		"--no-playlist",
		url,
	}

	cmd := exec.CommandContext(ctx, c.ytDlpPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp metadata fetch failed: %w, stderr: %s", err, stderr.String())
	}

	return ParseMediaInfo(stdout.Bytes())
}

// ParseMediaInfo converts raw yt-dlp JSON into a MediaInfo with classified
// candidate lists.
func ParseMediaInfo(data []byte) (*models.MediaInfo, error) {
	var info rawInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}

	descriptors := make([]models.StreamDescriptor, 0, len(info.Formats))
	for _, f := range info.Formats {
		descriptors = append(descriptors, models.StreamDescriptor{
			FormatID:   f.FormatID,
			Quality:    qualityLabel(f),
			Ext:        f.Ext,
			Filesize:   pickSize(f),
			VideoCodec: f.VCodec,
			AudioCodec: f.ACodec,
			Resolution: f.Resolution,
			FPS:        f.FPS,
			Bitrate:    f.TBR,
		})
	}

	video, audio := format.Classify(descriptors)

	return &models.MediaInfo{
		ID:           info.ID,
		Title:        info.Title,
		Duration:     info.Duration,
		Thumbnail:    info.Thumbnail,
		VideoFormats: video,
		AudioFormats: audio,
	}, nil
}

// Download fetches the stream with the given format id into the downloads
// directory and returns the local file path.
func (c *Client) Download(ctx context.Context, url, formatID, outputName string) (string, error) {
	outputPath := filepath.Join(c.downloadsDir, outputName)

	args := []string{
		url,
		"-f", formatID,
		"-o", outputPath,
		"--no-playlist",
	}

	cmd := exec.CommandContext(ctx, c.ytDlpPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("yt-dlp download failed: %w, stderr: %s", err, stderr.String())
	}

	return outputPath, nil
}

// qualityLabel mirrors how the extraction backend names tracks: format note
// or "<height>p" for video-capable streams, "<abr>kbps" for audio.
func qualityLabel(f rawFormat) string {
	if f.VCodec != "" && f.VCodec != "none" {
		if f.FormatNote != "" {
			return f.FormatNote
		}
		if f.Height > 0 {
			return fmt.Sprintf("%dp", f.Height)
		}
		return "unknown"
	}

	if f.ABR > 0 {
		return fmt.Sprintf("%dkbps", int(math.Round(f.ABR)))
	}
	return "audio"
}

func pickSize(f rawFormat) int64 {
	if f.Filesize > 0 {
		return f.Filesize
	}
	return f.FilesizeApprox
}
