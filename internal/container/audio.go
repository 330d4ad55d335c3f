package container

import (
	"io"
	"os"
	"strconv"

	"github.com/dhowden/tag"
)

// audioParser reads ID3, FLAC and Vorbis comment tags.
type audioParser struct {
	f *os.File
}

func newAudioParser(f *os.File) Parser {
	return &audioParser{f: f}
}

func (p *audioParser) Close() error {
	return p.f.Close()
}

func (p *audioParser) Metadata() (*Metadata, error) {
	if _, err := p.f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	m, err := tag.ReadFrom(p.f)
	if err == tag.ErrNoTagsFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	md := &Metadata{}
	addTags(md, m)
	md.Add("Tag format", string(m.Format()))
	md.Add("MIME type", audioMIMEType(m.FileType()))

	if md.Len() == 0 {
		return nil, nil
	}
	return md, nil
}

// addTags copies the common descriptive tags shared by every tag format.
func addTags(md *Metadata, m tag.Metadata) {
	md.Add("Title", m.Title())
	md.Add("Artist", m.Artist())
	md.Add("Album", m.Album())
	md.Add("Album artist", m.AlbumArtist())
	md.Add("Composer", m.Composer())
	md.Add("Genre", m.Genre())
	if y := m.Year(); y > 0 {
		md.Add("Year", strconv.Itoa(y))
	}
	if n, total := m.Track(); n > 0 {
		if total > 0 {
			md.Add("Track number", strconv.Itoa(n)+"/"+strconv.Itoa(total))
		} else {
			md.Add("Track number", strconv.Itoa(n))
		}
	}
	md.Add("Comment", m.Comment())
}

func audioMIMEType(ft tag.FileType) string {
	switch ft {
	case tag.MP3:
		return "audio/mpeg"
	case tag.FLAC:
		return "audio/flac"
	case tag.OGG:
		return "audio/ogg"
	case tag.M4A, tag.M4B, tag.M4P, tag.ALAC:
		return "audio/mp4"
	default:
		return ""
	}
}
