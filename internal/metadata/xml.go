package metadata

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/NikitaAzmov/exif-meta-telegrambot/pkg/types"
)

// SidecarExtractor reads the NonRealTimeMeta XML file that Sony cameras
// write next to each clip (C0001.MP4 -> C0001M01.XML).
type SidecarExtractor struct{}

func NewSidecarExtractor() *SidecarExtractor {
	return &SidecarExtractor{}
}

type nonRealTimeMeta struct {
	XMLName  xml.Name `xml:"NonRealTimeMeta"`
	Duration struct {
		Frames string `xml:"value,attr"`
	} `xml:"Duration"`
	CreationDate struct {
		Value string `xml:"value,attr"`
	} `xml:"CreationDate"`
	VideoFormat struct {
		VideoFrame struct {
			Codec      string `xml:"videoCodec,attr"`
			CaptureFps string `xml:"captureFps,attr"`
		} `xml:"VideoFrame"`
		VideoLayout struct {
			Pixel       string `xml:"pixel,attr"`
			Lines       string `xml:"numOfVerticalLine,attr"`
			AspectRatio string `xml:"aspectRatio,attr"`
		} `xml:"VideoLayout"`
	} `xml:"VideoFormat"`
	Device struct {
		Manufacturer string `xml:"manufacturer,attr"`
		ModelName    string `xml:"modelName,attr"`
		SerialNo     string `xml:"serialNo,attr"`
	} `xml:"Device"`
}

// Extract returns an empty record when there is no readable sidecar.
func (e *SidecarExtractor) Extract(entry types.FileEntry) types.Metadata {
	xmlPath := e.findXMLPath(entry.Path)
	if xmlPath == "" {
		return types.NewMetadata()
	}

	data, err := os.ReadFile(xmlPath)
	if err != nil {
		return types.NewMetadata()
	}

	var meta nonRealTimeMeta
	if err := xml.Unmarshal(data, &meta); err != nil {
		return types.NewMetadata()
	}

	md := types.NewMetadata()
	md.Set(KeyManufacturer, strings.TrimSpace(meta.Device.Manufacturer))
	md.Set(KeyModel, strings.TrimSpace(meta.Device.ModelName))
	md.Set("Serial Number", strings.TrimSpace(meta.Device.SerialNo))

	if v := meta.CreationDate.Value; v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			md.Set(KeyDateTaken, t.Format(displayDateLayout))
		} else {
			md.Set(KeyDateTaken, v)
		}
	}

	layout := meta.VideoFormat.VideoLayout
	if layout.Pixel != "" && layout.Lines != "" {
		md.Set(KeyResolution, layout.Pixel+" × "+layout.Lines)
	}
	md.Set("Aspect Ratio", layout.AspectRatio)
	md.Set("Duration", sidecarDuration(meta.Duration.Frames, meta.VideoFormat.VideoFrame.CaptureFps))
	md.Set("Frame Rate", meta.VideoFormat.VideoFrame.CaptureFps)
	md.Set("Video Codec", meta.VideoFormat.VideoFrame.Codec)

	return md
}

// sidecarDuration converts a frame count at captureFps ("25p", "59.94i")
// to a duration, or falls back to the raw frame count.
func sidecarDuration(frames, captureFps string) string {
	n, err := strconv.ParseInt(strings.TrimSpace(frames), 10, 64)
	if err != nil || n <= 0 {
		return ""
	}
	fps, err := strconv.ParseFloat(strings.TrimRight(captureFps, "pi"), 64)
	if err != nil || fps <= 0 {
		return fmt.Sprintf("%d frames", n)
	}
	ms := int64(float64(n) / fps * 1000)
	return (time.Duration(ms) * time.Millisecond).String()
}

func (e *SidecarExtractor) findXMLPath(videoPath string) string {
	dir := filepath.Dir(videoPath)
	basename := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))

	for _, name := range []string{basename + "M01.XML", basename + "M01.xml"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
