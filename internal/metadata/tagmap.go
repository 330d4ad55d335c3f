package metadata

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/geo"
	"github.com/NikitaAzmov/exif-meta-telegrambot/pkg/types"
)

// Canonical display keys shared by every extractor and the renderer.
const (
	KeyManufacturer     = "Manufacturer"
	KeyModel            = "Model"
	KeyLens             = "Lens"
	KeyLensID           = "Lens ID"
	KeyLensSerial       = "Lens Serial Number"
	KeySoftware         = "Software"
	KeyImageFormat      = "Image Format"
	KeyCompression      = "Compression"
	KeyAperture         = "Aperture"
	KeyShutterSpeed     = "Shutter Speed"
	KeyISO              = "ISO"
	KeyFocalLength      = "Focal Length"
	KeyFocalLength35mm  = "35mm Equivalent"
	KeyExposureBias     = "Exposure Bias"
	KeyWhiteBalance     = "White Balance"
	KeyMeteringMode     = "Metering Mode"
	KeyShootingMode     = "Shooting Mode"
	KeyLightSource      = "Light Source"
	KeyOrientation      = "Orientation"
	KeyColorSpace       = "Color Space"
	KeyDateTaken        = "Date Taken"
	KeyDigitizedDate    = "Digitized Date"
	KeyFileModifiedDate = "File Modified Date"
	KeyResolution       = "Resolution"
	KeyGPSCoordinates   = "GPS Coordinates"
	KeyGPSLatitude      = "GPS Latitude"
	KeyGPSLongitude     = "GPS Longitude"
	KeyMapsLink         = "Google Maps Link"
)

const aperturePrefix = "f/"

type fieldMapping struct {
	source string
	key    string
}

// toolFields maps exiftool field names to canonical keys, in output order.
var toolFields = []fieldMapping{
	{"Make", KeyManufacturer},
	{"Model", KeyModel},
	{"LensSpecification", KeyLens},
	{"LensID", KeyLensID},
	{"LensSerialNumber", KeyLensSerial},
	{"Software", KeySoftware},
	{"FileType", KeyImageFormat},
	{"Compression", KeyCompression},
	{"ApertureValue", KeyAperture},
	{"ShutterSpeedValue", KeyShutterSpeed},
	{"ISO", KeyISO},
	{"FocalLength", KeyFocalLength},
	{"FocalLengthIn35mmFormat", KeyFocalLength35mm},
	{"ExposureCompensation", KeyExposureBias},
	{"WhiteBalance", KeyWhiteBalance},
	{"MeteringMode", KeyMeteringMode},
	{"ExposureMode", KeyShootingMode},
	{"LightSource", KeyLightSource},
	{"Orientation", KeyOrientation},
	{"ColorSpace", KeyColorSpace},
	{"DateTimeOriginal", KeyDateTaken},
	{"CreateDate", KeyDigitizedDate},
	{"ModifyDate", KeyFileModifiedDate},
}

// FormatToolAttributes maps one exiftool record into the canonical schema.
func FormatToolAttributes(raw types.RawAttributes) types.Metadata {
	md := types.NewMetadata()

	for _, f := range toolFields {
		v, ok := raw[f.source]
		if !ok {
			continue
		}
		md.Set(f.key, displayValue(v))
	}

	if w, ok := raw["ImageWidth"]; ok {
		if h, ok := raw["ImageHeight"]; ok {
			ws, hs := displayValue(w), displayValue(h)
			if ws != "" && hs != "" {
				md.Set(KeyResolution, ws+" × "+hs)
			}
		}
	}

	setToolGPS(&md, raw)

	if v, ok := md.Get(KeyAperture); ok {
		md.Set(KeyAperture, aperturePrefix+v)
	}

	return md
}

func setToolGPS(md *types.Metadata, raw types.RawAttributes) {
	latRaw, ok := raw["GPSLatitude"]
	if !ok {
		return
	}
	lonRaw, ok := raw["GPSLongitude"]
	if !ok {
		return
	}

	lat, ok := numericValue(latRaw)
	if !ok {
		return
	}
	lon, ok := numericValue(lonRaw)
	if !ok {
		return
	}

	c := geo.Coordinate{
		Lat: geo.ApplyRef(lat, displayValue(raw["GPSLatitudeRef"])),
		Lon: geo.ApplyRef(lon, displayValue(raw["GPSLongitudeRef"])),
	}
	if !c.Valid() {
		return
	}

	md.Set(KeyGPSCoordinates, c.String())
	md.Set(KeyGPSLatitude, displayValue(latRaw))
	md.Set(KeyGPSLongitude, displayValue(lonRaw))
}

// displayValue renders a decoded JSON value the way the tool emitted it.
func displayValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := displayValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

func numericValue(v any) (float64, bool) {
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
