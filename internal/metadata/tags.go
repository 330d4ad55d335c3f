package metadata

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/geo"
)

// makerNotePrefix keys every tag loaded by a maker-note parser.
const makerNotePrefix = "MakerNote."

// extraExifFields are Exif sub-IFD tags goexif leaves unmapped.
var extraExifFields = map[uint16]exif.FieldName{
	0xA435: "LensSerialNumber",
}

func init() {
	parsers := []exif.Parser{extraExifParser{}}
	for _, p := range mknote.All {
		parsers = append(parsers, makerNoteParser{p})
	}
	exif.RegisterParsers(parsers...)
}

// extraExifParser loads extraExifFields from the Exif sub-IFD.
type extraExifParser struct{}

func (extraExifParser) Parse(x *exif.Exif) error {
	ptr, err := x.Get(exif.ExifIFDPointer)
	if err != nil {
		return nil
	}
	offset, err := ptr.Int64(0)
	if err != nil {
		return nil
	}

	r := bytes.NewReader(x.Raw)
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return nil
	}
	dir, _, err := tiff.DecodeDir(r, x.Tiff.Order)
	if err != nil {
		return nil
	}
	x.LoadTags(dir, extraExifFields, false)
	return nil
}

// makerNoteParser runs a goexif maker-note parser and re-keys what it loads
// under makerNotePrefix. Standard tags it overwrote get their values back.
type makerNoteParser struct {
	exif.Parser
}

// Parse never fails: a broken maker note keeps whatever was loaded before
// the error or panic.
func (p makerNoteParser) Parse(x *exif.Exif) error {
	before := loadedTags(x)
	defer func() {
		recover()
		for name, tag := range loadedTags(x) {
			prev, existed := before[name]
			if existed && prev == tag {
				continue
			}
			loadTag(x, tag, makerNotePrefix+name)
			if existed {
				loadTag(x, prev, name)
			}
		}
	}()

	p.Parser.Parse(x)
	return nil
}

func loadTag(x *exif.Exif, tag *tiff.Tag, name exif.FieldName) {
	x.LoadTags(&tiff.Dir{Tags: []*tiff.Tag{tag}}, map[uint16]exif.FieldName{tag.Id: name}, false)
}

type tagCollector map[exif.FieldName]*tiff.Tag

func (c tagCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if tag != nil {
		c[name] = tag
	}
	return nil
}

func loadedTags(x *exif.Exif) tagCollector {
	c := make(tagCollector)
	x.Walk(c)
	return c
}

// TagValue is one decoded embedded tag.
type TagValue interface {
	// String returns the display form of the value.
	String() string
	// Rationals returns numerator/denominator pairs for rational-typed tags.
	Rationals() ([]geo.Rational, bool)
}

// Tags maps group-qualified tag names ("Image Make", "EXIF FNumber",
// "GPS GPSLatitude", "MakerNote SerialNumber") to their values.
type Tags map[string]TagValue

// TagReader decodes embedded tags from an open file.
type TagReader interface {
	ReadTags(r io.ReadSeeker) (Tags, error)
}

// GoexifReader reads EXIF, GPS, interoperability and maker-note tags with goexif.
type GoexifReader struct{}

func NewGoexifReader() *GoexifReader {
	return &GoexifReader{}
}

func (g *GoexifReader) ReadTags(r io.ReadSeeker) (Tags, error) {
	x, err := exif.Decode(r)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return nil, err
	}

	loaded := loadedTags(x)
	tags := make(Tags, len(loaded))
	for name, tag := range loaded {
		// Maker-note only tags also stay under their bare name.
		if mn, ok := loaded[makerNotePrefix+name]; ok && mn == tag {
			continue
		}
		tags[qualifiedName(name)] = goexifTag{name: string(name), tag: tag}
	}
	return tags, nil
}

// imageFields are the IFD0 tags that goexif stores alongside the Exif sub-IFD.
var imageFields = map[string]bool{
	"ImageWidth":                true,
	"ImageLength":               true,
	"BitsPerSample":             true,
	"Compression":               true,
	"PhotometricInterpretation": true,
	"Orientation":               true,
	"SamplesPerPixel":           true,
	"PlanarConfiguration":       true,
	"YCbCrSubSampling":          true,
	"YCbCrPositioning":          true,
	"XResolution":               true,
	"YResolution":               true,
	"ResolutionUnit":            true,
	"DateTime":                  true,
	"ImageDescription":          true,
	"Make":                      true,
	"Model":                     true,
	"Software":                  true,
	"Artist":                    true,
	"Copyright":                 true,
}

func qualifiedName(name exif.FieldName) string {
	n := string(name)
	switch {
	case strings.HasPrefix(n, makerNotePrefix):
		return "MakerNote " + strings.TrimPrefix(n, makerNotePrefix)
	case strings.HasSuffix(n, "IFDPointer"):
		return "Image " + n
	case strings.HasPrefix(n, "GPS"):
		return "GPS " + n
	case strings.HasPrefix(n, "Thumb"):
		return "Thumbnail " + n
	case strings.HasPrefix(n, "Interoperability"):
		return "Interoperability " + n
	case imageFields[n]:
		return "Image " + n
	default:
		return "EXIF " + n
	}
}

// enumLabels gives printable names for enumerated single-value tags.
var enumLabels = map[string]map[int]string{
	"Orientation": {
		1: "Horizontal (normal)",
		2: "Mirrored horizontal",
		3: "Rotated 180",
		4: "Mirrored vertical",
		5: "Mirrored horizontal then rotated 90 CCW",
		6: "Rotated 90 CW",
		7: "Mirrored horizontal then rotated 90 CW",
		8: "Rotated 90 CCW",
	},
	"WhiteBalance": {
		0: "Auto",
		1: "Manual",
	},
	"MeteringMode": {
		0:   "Unidentified",
		1:   "Average",
		2:   "CenterWeightedAverage",
		3:   "Spot",
		4:   "MultiSpot",
		5:   "Pattern",
		6:   "Partial",
		255: "other",
	},
	"ExposureProgram": {
		0: "Unidentified",
		1: "Manual",
		2: "Program Normal",
		3: "Aperture Priority",
		4: "Shutter Priority",
		5: "Program Creative",
		6: "Program Action",
		7: "Portrait Mode",
		8: "Landscape Mode",
	},
	"ColorSpace": {
		1:     "sRGB",
		65535: "Uncalibrated",
	},
}

type goexifTag struct {
	name string
	tag  *tiff.Tag
}

func (t goexifTag) String() string {
	switch t.tag.Format() {
	case tiff.StringVal:
		s, err := t.tag.StringVal()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(strings.TrimRight(s, "\x00"))
	case tiff.RatVal:
		rats, ok := t.Rationals()
		if !ok {
			return ""
		}
		parts := make([]string, len(rats))
		for i, r := range rats {
			parts[i] = r.String()
		}
		return strings.Join(parts, ", ")
	case tiff.IntVal:
		parts := make([]string, 0, t.tag.Count)
		for i := 0; i < int(t.tag.Count); i++ {
			v, err := t.tag.Int(i)
			if err != nil {
				return ""
			}
			parts = append(parts, strconv.Itoa(v))
		}
		if len(parts) == 1 {
			if labels, ok := enumLabels[t.name]; ok {
				if v, _ := strconv.Atoi(parts[0]); labels[v] != "" {
					return labels[v]
				}
			}
		}
		return strings.Join(parts, ", ")
	default:
		return strings.Trim(t.tag.String(), `"`)
	}
}

func (t goexifTag) Rationals() ([]geo.Rational, bool) {
	if t.tag.Format() != tiff.RatVal {
		return nil, false
	}
	out := make([]geo.Rational, 0, t.tag.Count)
	for i := 0; i < int(t.tag.Count); i++ {
		num, den, err := t.tag.Rat2(i)
		if err != nil {
			return nil, false
		}
		out = append(out, geo.Rational{Num: num, Den: den})
	}
	return out, len(out) > 0
}
