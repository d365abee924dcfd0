package export

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/captrail/server/transcript"
)

// ErrNoCaptions is returned when an export is requested with nothing
// captured. Surfaced to clients as a user-facing error, never a crash.
var ErrNoCaptions = errors.New("no captions were captured")

// Downloader writes formatted transcripts into the exports directory,
// the server-side stand-in for a browser download.
type Downloader struct {
	dir string
}

func NewDownloader(dataDir string) *Downloader {
	return &Downloader{dir: filepath.Join(dataDir, "exports")}
}

// Dir returns the directory exports are written to.
func (d *Downloader) Dir() string {
	return d.dir
}

// Save formats and writes the transcript, returning the full path of
// the written file.
func (d *Downloader) Save(entries []transcript.Entry, title, date string, style NameStyle) (string, error) {
	if len(entries) == 0 {
		return "", ErrNoCaptions
	}
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(d.dir, FileName(title, date))
	if err := os.WriteFile(path, []byte(Format(entries, date, style)), 0644); err != nil {
		return "", err
	}
	return path, nil
}
