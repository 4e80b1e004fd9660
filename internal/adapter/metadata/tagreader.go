// Package metadata reads tags from local audio files.
package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dhowden/tag"

	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/ports"
)

// extensions mpv can play that we expect to find in a music folder.
var extensions = []string{
	".mp3", ".mp2",
	".ogg", ".oga", ".opus",
	".wav", ".aif", ".aiff",
	".flac",
	".aac", ".m4a", ".m4b", ".mp4",
	".wma",
	".wv",
	".ape",
	".mpc",
	".tta",
	".ac3",
}

// TagReader implements ports.MetadataReader with dhowden/tag.
type TagReader struct{}

// NewTagReader creates a tag reader.
func NewTagReader() *TagReader {
	return &TagReader{}
}

// Supports reports whether the path has a known audio extension.
func (r *TagReader) Supports(path string) bool {
	return slices.Contains(extensions, strings.ToLower(filepath.Ext(path)))
}

// Extensions returns a copy of the supported extensions.
func (r *TagReader) Extensions() []string {
	return slices.Clone(extensions)
}

// ReadSong builds a local QueueSong for path. The catalog id and the stream
// locator are both the absolute path.
func (r *TagReader) ReadSong(path string) (domain.QueueSong, error) {
	if !r.Supports(path) {
		return domain.QueueSong{}, fmt.Errorf("%s: %w", path, domain.ErrUnsupportedFormat)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return domain.QueueSong{}, err
	}

	file, err := os.Open(abs)
	if err != nil {
		return domain.QueueSong{}, err
	}
	defer file.Close()

	song := domain.QueueSong{
		ID:        abs,
		ServerID:  domain.LocalServerID,
		Title:     strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs)),
		StreamURL: abs,
	}

	meta, err := tag.ReadFrom(file)
	if err != nil {
		// untagged or unparsable: keep the file name as title
		return song, nil
	}

	if title := strings.TrimSpace(meta.Title()); title != "" {
		song.Title = title
	}
	song.Artist = strings.TrimSpace(meta.Artist())
	if song.Artist == "" {
		song.Artist = strings.TrimSpace(meta.AlbumArtist())
	}
	song.Album = strings.TrimSpace(meta.Album())
	return song, nil
}

var _ ports.MetadataReader = (*TagReader)(nil)
