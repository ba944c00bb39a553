// ABOUTME: Tag and cover art extraction
// ABOUTME: Reads ID3, Vorbis comment, FLAC and MP4 metadata via dhowden/tag
package decode

import (
	"os"

	"github.com/dhowden/tag"
)

// Tags holds the descriptive metadata of a file
type Tags struct {
	Title     string
	Artist    string
	Album     string
	Cover     []byte
	CoverMIME string
}

// ReadTags returns whatever metadata the file carries. Files without tags yield a zero Tags.
func ReadTags(path string) Tags {
	f, err := os.Open(path)
	if err != nil {
		return Tags{}
	}
	defer func() { _ = f.Close() }()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return Tags{}
	}

	t := Tags{
		Title:  m.Title(),
		Artist: m.Artist(),
		Album:  m.Album(),
	}
	if pic := m.Picture(); pic != nil && len(pic.Data) > 0 {
		t.Cover = pic.Data
		t.CoverMIME = pic.MIMEType
	}
	return t
}
