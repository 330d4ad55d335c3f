package scanner

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/container"
	"github.com/NikitaAzmov/exif-meta-telegrambot/pkg/types"
)

// Scanner turns local files into classified entries.
type Scanner struct {
	imageExt map[string]bool
	videoExt map[string]bool
}

func New(imageExtensions, videoExtensions []string) *Scanner {
	return &Scanner{
		imageExt: extensionSet(imageExtensions),
		videoExt: extensionSet(videoExtensions),
	}
}

func extensionSet(exts []string) map[string]bool {
	m := make(map[string]bool, len(exts))
	for _, ext := range exts {
		m[strings.TrimPrefix(strings.ToLower(ext), ".")] = true
	}
	return m
}

// Extension returns the lowercase extension of name without the dot.
func Extension(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

// Entry stats path and classifies it. A non-empty declared class wins;
// otherwise the extension decides, then the file's magic bytes.
func (s *Scanner) Entry(path string, declared types.MediaClass) (types.FileEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return types.FileEntry{}, err
	}

	ext := Extension(path)
	class := declared
	if class == "" {
		class = s.classify(path, ext)
	}

	return types.FileEntry{
		Path:      path,
		Name:      filepath.Base(path),
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		Extension: ext,
		Class:     class,
	}, nil
}

func (s *Scanner) classify(path, ext string) types.MediaClass {
	switch {
	case s.videoExt[ext]:
		return types.MediaClassVideo
	case s.imageExt[ext]:
		return types.MediaClassImage
	}

	if sniffContainer(path) {
		return types.MediaClassVideo
	}
	return types.MediaClassImage
}

func sniffContainer(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	header := make([]byte, 16)
	n, _ := io.ReadFull(f, header)
	return container.Detect(header[:n]) != ""
}
