// Package youtube downloads YouTube media to a fixed file on disk.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	yt "github.com/kkdai/youtube/v2"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"piserver/logging"
)

// DefaultOutputPath is overwritten by every download.
const DefaultOutputPath = "/home/pi/youtube.flv"

// ErrNoFormat is returned when a video has no format carrying audio.
var ErrNoFormat = errors.New("no downloadable format with audio")

// Config holds downloader settings.
type Config struct {
	OutputPath string `yaml:"output_path"`
	Progress   bool   `yaml:"progress"` // draw a progress bar on stderr
}

// source is the part of the YouTube client the downloader needs.
type source interface {
	GetVideoContext(ctx context.Context, url string) (*yt.Video, error)
	GetStreamContext(ctx context.Context, video *yt.Video, format *yt.Format) (io.ReadCloser, int64, error)
}

// Downloader fetches a video's media stream and writes it to OutputPath.
// Downloads are serialized because they share one output file.
type Downloader struct {
	src      source
	output   string
	progress bool
	logger   *zap.Logger

	mu sync.Mutex
}

// New creates a Downloader backed by the YouTube client.
func New(cfg Config, logger *zap.Logger) *Downloader {
	return newDownloader(&yt.Client{}, cfg, logger)
}

func newDownloader(src source, cfg Config, logger *zap.Logger) *Downloader {
	output := cfg.OutputPath
	if output == "" {
		output = DefaultOutputPath
	}
	return &Downloader{
		src:      src,
		output:   output,
		progress: cfg.Progress,
		logger:   logging.OrNop(logger).Named("youtube"),
	}
}

// OutputPath returns the file every download is written to.
func (d *Downloader) OutputPath() string {
	return d.output
}

// Download writes the media behind url to the output file and returns its
// path once the file is complete.
func (d *Downloader) Download(ctx context.Context, url string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	video, err := d.src.GetVideoContext(ctx, url)
	if err != nil {
		return "", fmt.Errorf("get video %s: %w", url, err)
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return "", ErrNoFormat
	}
	format := &formats[0]

	stream, size, err := d.src.GetStreamContext(ctx, video, format)
	if err != nil {
		return "", fmt.Errorf("get stream %s: %w", url, err)
	}
	defer stream.Close()

	d.logger.Info("Downloading",
		zap.String("url", url),
		zap.String("title", video.Title),
		zap.Int("itag", format.ItagNo),
		zap.Int64("size", size))

	if err := d.writeFile(stream, size, video.Title); err != nil {
		return "", err
	}

	d.logger.Info("Download complete", zap.String("path", d.output))
	return d.output, nil
}

func (d *Downloader) writeFile(r io.Reader, size int64, title string) error {
	if err := os.MkdirAll(filepath.Dir(d.output), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp := d.output + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	var w io.Writer = file
	if d.progress {
		if size <= 0 {
			size = -1
		}
		bar := progressbar.NewOptions64(size,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription(title),
			progressbar.OptionShowBytes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
		w = io.MultiWriter(file, bar)
	}

	if _, err := io.Copy(w, r); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, d.output); err != nil {
		return fmt.Errorf("rename output file: %w", err)
	}
	return nil
}

// DownloadAsync starts a download in the background and returns its job id.
// done is called with the job id and the output path, or the error, when
// it finishes.
func (d *Downloader) DownloadAsync(ctx context.Context, url string, done func(job, path string, err error)) string {
	id := uuid.NewString()
	go func() {
		path, err := d.Download(ctx, url)
		if err != nil {
			d.logger.Warn("Download failed", zap.String("job", id), zap.Error(err))
		}
		if done != nil {
			done(id, path, err)
		}
	}()
	return id
}
