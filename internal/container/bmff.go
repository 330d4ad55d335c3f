package container

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abema/go-mp4"
	"github.com/dhowden/tag"
)

// appleEpochOffset is the number of seconds between 1904-01-01 and 1970-01-01.
const appleEpochOffset = 2082844800

const dateLayout = "2006-01-02 15:04:05"

// bmffParser reads ISO base media files: MP4, MOV, 3GP, M4A, M4V.
type bmffParser struct {
	f *os.File
}

func newBMFFParser(f *os.File) Parser {
	return &bmffParser{f: f}
}

func (p *bmffParser) Close() error {
	return p.f.Close()
}

type bmffTrack struct {
	width     uint32
	height    uint32
	timescale uint32
	duration  uint64
	language  string
	handler   string
}

func (p *bmffParser) Metadata() (*Metadata, error) {
	boxes, err := mp4.ExtractBoxesWithPayload(p.f, nil, []mp4.BoxPath{
		{mp4.BoxTypeFtyp()},
		{mp4.BoxTypeMoov(), mp4.BoxTypeMvhd()},
		{mp4.BoxTypeMoov(), mp4.BoxTypeTrak(), mp4.BoxTypeTkhd()},
		{mp4.BoxTypeMoov(), mp4.BoxTypeTrak(), mp4.BoxTypeMdia(), mp4.BoxTypeMdhd()},
		{mp4.BoxTypeMoov(), mp4.BoxTypeTrak(), mp4.BoxTypeMdia(), mp4.BoxTypeHdlr()},
	})
	if err != nil {
		return nil, fmt.Errorf("read mp4 structure: %w", err)
	}

	var (
		ftyp   *mp4.Ftyp
		mvhd   *mp4.Mvhd
		tracks []*bmffTrack
	)
	current := func() *bmffTrack {
		if len(tracks) == 0 {
			tracks = append(tracks, &bmffTrack{})
		}
		return tracks[len(tracks)-1]
	}

	for _, box := range boxes {
		switch payload := box.Payload.(type) {
		case *mp4.Ftyp:
			ftyp = payload
		case *mp4.Mvhd:
			mvhd = payload
		case *mp4.Tkhd:
			tracks = append(tracks, &bmffTrack{
				width:  payload.Width >> 16,
				height: payload.Height >> 16,
			})
		case *mp4.Mdhd:
			t := current()
			t.timescale = payload.Timescale
			t.duration = payload.GetDuration()
			t.language = mdhdLanguage(payload.Language)
		case *mp4.Hdlr:
			current().handler = string(payload.HandlerType[:])
		}
	}

	md := &Metadata{}
	if mvhd != nil {
		if mvhd.Timescale > 0 {
			md.Add("Duration", formatDuration(mvhd.GetDuration(), mvhd.Timescale))
		}
		md.Add("Creation date", formatAppleTime(mvhd.GetCreationTime()))
		md.Add("Last modification", formatAppleTime(mvhd.GetModificationTime()))
	}

	for _, t := range tracks {
		if t.handler == "vide" || (t.handler == "" && t.width > 0) {
			if t.width > 0 && t.height > 0 {
				md.Add("Image width", strconv.FormatUint(uint64(t.width), 10)+" pixels")
				md.Add("Image height", strconv.FormatUint(uint64(t.height), 10)+" pixels")
			}
			break
		}
	}

	for _, t := range tracks {
		if t.handler == "" {
			continue
		}
		label := handlerLabel(t.handler)
		md.Add(label+" track", formatDuration(t.duration, t.timescale))
		if t.language != "" && t.language != "und" {
			md.Add(label+" language", t.language)
		}
	}

	if ftyp != nil {
		brand := string(ftyp.MajorBrand[:])
		md.Add("Major brand", strings.TrimSpace(brand))
		var compat []string
		for _, b := range ftyp.CompatibleBrands {
			if s := strings.TrimSpace(string(b.CompatibleBrand[:])); s != "" {
				compat = append(compat, s)
			}
		}
		md.Add("Compatible brands", strings.Join(compat, ", "))
		md.Add("MIME type", bmffMIMEType(brand))
	} else {
		md.Add("MIME type", "video/quicktime")
	}

	if _, err := p.f.Seek(0, io.SeekStart); err == nil {
		if m, err := tag.ReadFrom(p.f); err == nil {
			addTags(md, m)
		}
	}

	if md.Len() == 0 {
		return nil, nil
	}
	return md, nil
}

// mdhdLanguage unpacks an ISO-639-2/T code stored as three 5-bit values.
func mdhdLanguage(code [3]byte) string {
	var b strings.Builder
	for _, c := range code {
		if c == 0 {
			return ""
		}
		b.WriteByte(c + 0x60)
	}
	return b.String()
}

func handlerLabel(handler string) string {
	switch handler {
	case "vide":
		return "Video"
	case "soun":
		return "Audio"
	case "text", "sbtl", "subt":
		return "Subtitle"
	case "meta":
		return "Metadata"
	default:
		return "Other"
	}
}

func bmffMIMEType(brand string) string {
	switch {
	case brand == "qt  ":
		return "video/quicktime"
	case strings.HasPrefix(brand, "3g2"):
		return "video/3gpp2"
	case strings.HasPrefix(brand, "3gp"):
		return "video/3gpp"
	case brand == "M4A " || brand == "M4B ":
		return "audio/mp4"
	default:
		return "video/mp4"
	}
}

func formatDuration(units uint64, timescale uint32) string {
	if timescale == 0 || units == 0 {
		return ""
	}
	ms := units * 1000 / uint64(timescale)
	return (time.Duration(ms) * time.Millisecond).String()
}

func formatAppleTime(secs uint64) string {
	if secs <= appleEpochOffset {
		return ""
	}
	return time.Unix(int64(secs)-appleEpochOffset, 0).UTC().Format(dateLayout)
}
