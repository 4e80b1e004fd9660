package ports

import "github.com/flightmansam/feishin/internal/domain"

// MetadataReader turns a local audio file into a queue entry.
type MetadataReader interface {
	// ReadSong reads the file's tags. Files without tags still produce a song
	// titled after the file name; only unreadable files return an error.
	ReadSong(path string) (domain.QueueSong, error)

	// Supports reports whether the file extension is a playable audio format.
	Supports(path string) bool

	// Extensions lists the supported lowercase extensions, dot included.
	Extensions() []string
}
