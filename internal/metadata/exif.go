package metadata

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/geo"
	"github.com/NikitaAzmov/exif-meta-telegrambot/pkg/types"
)

var (
	ErrOpen   = errors.New("cannot open file")
	ErrDecode = errors.New("no EXIF data")
)

const (
	exifDateLayout    = "2006:01:02 15:04:05"
	displayDateLayout = "2006-01-02 15:04:05"
)

type embeddedField struct {
	tag    string
	key    string
	format func(TagValue) string
}

// embeddedFields maps group-qualified embedded tag names to canonical keys, in output order.
var embeddedFields = []embeddedField{
	{tag: "Image Make", key: KeyManufacturer},
	{tag: "Image Model", key: KeyModel},
	{tag: "Image Software", key: KeySoftware},
	{tag: "EXIF LensModel", key: KeyLens},
	{tag: "EXIF LensSerialNumber", key: KeyLensSerial},
	{tag: "EXIF FNumber", key: KeyAperture, format: formatFNumber},
	{tag: "EXIF ExposureTime", key: KeyShutterSpeed},
	{tag: "EXIF ISOSpeedRatings", key: KeyISO},
	{tag: "EXIF FocalLength", key: KeyFocalLength},
	{tag: "EXIF ExposureBiasValue", key: KeyExposureBias},
	{tag: "EXIF WhiteBalance", key: KeyWhiteBalance},
	{tag: "EXIF MeteringMode", key: KeyMeteringMode},
	{tag: "EXIF ExposureProgram", key: KeyShootingMode},
	{tag: "Image Orientation", key: KeyOrientation},
	{tag: "EXIF ColorSpace", key: KeyColorSpace},
	{tag: "EXIF DateTimeOriginal", key: KeyDateTaken, format: formatDateTaken},
	{tag: "EXIF DateTimeDigitized", key: KeyDigitizedDate},
	{tag: "Image DateTime", key: KeyFileModifiedDate},
}

// EXIFExtractor reads embedded tags directly from the file.
type EXIFExtractor struct {
	reader TagReader
}

func NewEXIFExtractor() *EXIFExtractor {
	return &EXIFExtractor{reader: NewGoexifReader()}
}

// NewEXIFExtractorWithReader uses reader instead of the goexif decoder.
func NewEXIFExtractorWithReader(reader TagReader) *EXIFExtractor {
	return &EXIFExtractor{reader: reader}
}

// Extract never fails: open and decode errors become an Error-only record.
func (e *EXIFExtractor) Extract(entry types.FileEntry) types.Metadata {
	md, err := e.extract(entry.Path)
	if err != nil {
		return types.ErrorMetadata(err.Error())
	}
	return md
}

func (e *EXIFExtractor) extract(path string) (md types.Metadata, err error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Metadata{}, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	defer f.Close()

	defer func() {
		if p := recover(); p != nil {
			md = types.Metadata{}
			err = fmt.Errorf("%w: panic: %v", ErrDecode, p)
		}
	}()

	tags, err := e.reader.ReadTags(f)
	if err != nil {
		return types.Metadata{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return mapEmbeddedTags(tags), nil
}

func mapEmbeddedTags(tags Tags) types.Metadata {
	md := types.NewMetadata()

	for _, f := range embeddedFields {
		v, ok := tags[f.tag]
		if !ok || v == nil {
			continue
		}
		if f.format != nil {
			md.Set(f.key, f.format(v))
		} else {
			md.Set(f.key, v.String())
		}
	}

	if w, ok := tags["EXIF PixelXDimension"]; ok {
		if h, ok := tags["EXIF PixelYDimension"]; ok {
			ws, hs := w.String(), h.String()
			if ws != "" && hs != "" {
				md.Set(KeyResolution, ws+" × "+hs)
			}
		}
	}

	if c, ok := embeddedCoordinate(tags); ok {
		md.Set(KeyGPSCoordinates, c.String())
		md.Set(KeyMapsLink, c.MapLink())
	}

	return md
}

// formatFNumber keeps the rational unreduced: 28/10 renders as f/28/10.
func formatFNumber(v TagValue) string {
	if rats, ok := v.Rationals(); ok && len(rats) > 0 {
		return fmt.Sprintf("%s%d/%d", aperturePrefix, rats[0].Num, rats[0].Den)
	}
	return v.String()
}

func formatDateTaken(v TagValue) string {
	return FormatEXIFDate(v.String())
}

// FormatEXIFDate rewrites "YYYY:MM:DD HH:MM:SS" as "YYYY-MM-DD HH:MM:SS".
// Anything else is returned unchanged.
func FormatEXIFDate(raw string) string {
	t, err := time.Parse(exifDateLayout, raw)
	if err != nil {
		return raw
	}
	return t.Format(displayDateLayout)
}

func embeddedCoordinate(tags Tags) (geo.Coordinate, bool) {
	lat, ok := embeddedDegrees(tags, "GPS GPSLatitude", "GPS GPSLatitudeRef")
	if !ok {
		return geo.Coordinate{}, false
	}
	lon, ok := embeddedDegrees(tags, "GPS GPSLongitude", "GPS GPSLongitudeRef")
	if !ok {
		return geo.Coordinate{}, false
	}

	c := geo.Coordinate{Lat: lat, Lon: lon}
	return c, c.Valid()
}

func embeddedDegrees(tags Tags, valueTag, refTag string) (float64, bool) {
	v, ok := tags[valueTag]
	if !ok || v == nil {
		return 0, false
	}
	rats, ok := v.Rationals()
	if !ok {
		return 0, false
	}
	deg, ok := geo.ToDegrees(rats)
	if !ok {
		return 0, false
	}

	ref := ""
	if r, ok := tags[refTag]; ok && r != nil {
		ref = r.String()
	}
	return geo.ApplyRef(deg, ref), true
}
