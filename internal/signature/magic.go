package signature

import (
	"fmt"
	"image"
	"math"
	"runtime"

	// Image format decoders for dimension probing
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"  // BMP format support
	_ "golang.org/x/image/tiff" // TIFF format support
	_ "golang.org/x/image/webp" // WebP format support

	"hashdrop/internal/filesystem"
	"hashdrop/internal/logging"
)

// Detector classifies file content. MIME returns a MIME type including
// parameters such as the charset of text; Describe returns a human-readable
// type description.
type Detector interface {
	MIME(path string) (string, error)
	Describe(path string) (string, error)
}

// LargeFileLimit returns the largest file the content sniffer can address
// directly on this platform. Zero means unlimited.
func LargeFileLimit() int64 {
	if runtime.GOOS == "windows" {
		return math.MaxInt32
	}
	return 0
}

// Magic is the default Detector, built on content sniffing of the leading
// bytes of a file.
type Magic struct {
	// Dimensions appends "W x H" to the description of decodable raster
	// images.
	Dimensions bool
}

// NewMagic returns a detector that reports image dimensions.
func NewMagic() *Magic {
	return &Magic{Dimensions: true}
}

// MIME sniffs the file and returns its MIME type, e.g.
// "text/plain; charset=utf-8" or "image/png".
func (m *Magic) MIME(path string) (string, error) {
	mt, err := m.detect(path)
	if err != nil {
		return "", err
	}
	return mt.String(), nil
}

// Describe sniffs the file and returns a description such as
// "PNG image data, 640 x 480".
func (m *Magic) Describe(path string) (string, error) {
	mt, err := m.detect(path)
	if err != nil {
		return "", err
	}

	desc := Describe(mt.String())
	if m.Dimensions && CategoryOf(mt.String()) == CategoryImage {
		if w, h, err := Dimensions(path); err == nil {
			desc = fmt.Sprintf("%s, %d x %d", desc, w, h)
		} else {
			logging.Debug("No dimensions for %s: %v", path, err)
		}
	}
	return desc, nil
}

func (m *Magic) detect(path string) (*mimetype.MIME, error) {
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("couldn't open file %s: %w", path, err)
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to detect type of %s: %w", path, err)
	}
	return mt, nil
}

// Dimensions decodes only the image header and returns width and height.
func Dimensions(path string) (width, height int, err error) {
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logging.Warn("failed to close image file %s: %v", path, cerr)
		}
	}()

	config, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return config.Width, config.Height, nil
}
