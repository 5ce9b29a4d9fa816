package signature

import "strings"

// Category is a coarse grouping of MIME types.
type Category string

const (
	// CategoryImage is a raster or vector image
	CategoryImage Category = "image"
	// CategoryVideo is a video container
	CategoryVideo Category = "video"
	// CategoryAudio is an audio container
	CategoryAudio Category = "audio"
	// CategoryText is human-readable text
	CategoryText Category = "text"
	// CategoryArchive is a compressed or archive format
	CategoryArchive Category = "archive"
	// CategoryDocument is an office or print document
	CategoryDocument Category = "document"
	// CategoryExecutable is native code
	CategoryExecutable Category = "executable"
	// CategoryOther is anything else
	CategoryOther Category = "other"
)

// descriptors maps a bare MIME type (no parameters) to a human-readable
// type description.
var descriptors = map[string]string{
	// Images
	"image/jpeg":    "JPEG image data",
	"image/png":     "PNG image data",
	"image/gif":     "GIF image data",
	"image/bmp":     "PC bitmap",
	"image/webp":    "Web/P image",
	"image/tiff":    "TIFF image data",
	"image/svg+xml": "SVG Scalable Vector Graphics image",
	"image/x-icon":  "MS Windows icon resource",
	"image/heic":    "HEIF image data",
	"image/heif":    "HEIF image data",
	"image/avif":    "AVIF image data",

	// Videos
	"video/mp4":        "ISO Media, MP4 video",
	"video/x-matroska": "Matroska data",
	"video/webm":       "WebM video",
	"video/x-msvideo":  "RIFF (little-endian) data, AVI",
	"video/quicktime":  "ISO Media, Apple QuickTime movie",
	"video/x-flv":      "Macromedia Flash Video",
	"video/mpeg":       "MPEG sequence",
	"video/3gpp":       "ISO Media, 3GPP video",

	// Audio
	"audio/mpeg":   "Audio file with ID3 or MPEG frames",
	"audio/flac":   "FLAC audio bitstream data",
	"audio/wav":    "RIFF (little-endian) data, WAVE audio",
	"audio/ogg":    "Ogg data",
	"audio/x-m4a":  "ISO Media, Apple iTunes audio",
	"audio/aac":    "ADTS AAC audio",
	"audio/x-aiff": "IFF data, AIFF audio",

	// Archives
	"application/zip":                       "Zip archive data",
	"application/gzip":                      "gzip compressed data",
	"application/x-tar":                     "POSIX tar archive",
	"application/x-7z-compressed":           "7-zip archive data",
	"application/x-rar-compressed":          "RAR archive data",
	"application/x-bzip2":                   "bzip2 compressed data",
	"application/x-xz":                      "XZ compressed data",
	"application/zstd":                      "Zstandard compressed data",
	"application/java-archive":              "Java archive data (JAR)",
	"application/vnd.debian.binary-package": "Debian binary package",
	"application/x-rpm":                     "RPM package",
	"application/x-iso9660-image":           "ISO 9660 CD-ROM filesystem data",

	// Documents
	"application/pdf":                                                           "PDF document",
	"application/msword":                                                        "Composite Document File V2 Document",
	"application/rtf":                                                           "Rich Text Format data",
	"application/epub+zip":                                                      "EPUB document",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   "Microsoft Word 2007+",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         "Microsoft Excel 2007+",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": "Microsoft PowerPoint 2007+",
	"application/vnd.oasis.opendocument.text":                                   "OpenDocument Text",
	"application/vnd.oasis.opendocument.spreadsheet":                            "OpenDocument Spreadsheet",

	// Executables
	"application/x-elf":                             "ELF",
	"application/x-executable":                      "ELF executable",
	"application/x-sharedlib":                       "ELF shared object",
	"application/x-object":                          "ELF relocatable",
	"application/x-coredump":                        "ELF core file",
	"application/vnd.microsoft.portable-executable": "PE32 executable (MS Windows)",
	"application/x-mach-binary":                     "Mach-O binary",
	"application/wasm":                              "WebAssembly (wasm) binary module",
	"application/x-sqlite3":                         "SQLite 3.x database",

	// Text
	"text/plain":                "text",
	"text/html":                 "HTML document",
	"text/xml":                  "XML document",
	"application/json":          "JSON data",
	"text/csv":                  "CSV text",
	"text/tab-separated-values": "TSV text",
	"text/rtf":                  "Rich Text Format data",
	"text/x-python":             "Python script",
	"text/x-shellscript":        "shell script",
	"text/x-perl":               "Perl script",
	"text/x-php":                "PHP script",
	"text/x-lua":                "Lua script",
	"text/javascript":           "JavaScript source",
	"application/javascript":    "JavaScript source",

	"application/octet-stream": "data",
}

// Describe returns the human-readable description for a MIME type. The
// charset parameter of text types is folded into the description, so
// "text/plain; charset=utf-8" reads "UTF-8 text".
func Describe(mimeType string) string {
	base, params := splitMIME(mimeType)

	desc, ok := descriptors[base]
	if !ok {
		switch CategoryOf(base) {
		case CategoryText:
			desc = "text"
		case CategoryOther:
			desc = "data"
		default:
			desc = string(CategoryOf(base)) + " data"
		}
	}

	if charset := params["charset"]; charset != "" && CategoryOf(base) == CategoryText {
		if desc == "text" {
			return strings.ToUpper(charset) + " text"
		}
		return desc + ", " + strings.ToUpper(charset) + " text"
	}
	return desc
}

// CategoryOf groups a MIME type.
func CategoryOf(mimeType string) Category {
	base, _ := splitMIME(mimeType)

	switch {
	case strings.HasPrefix(base, "image/"):
		return CategoryImage
	case strings.HasPrefix(base, "video/"):
		return CategoryVideo
	case strings.HasPrefix(base, "audio/"):
		return CategoryAudio
	case strings.HasPrefix(base, "text/"), base == "application/json", base == "application/javascript":
		return CategoryText
	}

	desc := strings.ToLower(descriptors[base])
	switch {
	case strings.Contains(desc, "archive"), strings.Contains(desc, "compressed"), strings.Contains(desc, "package"):
		return CategoryArchive
	case strings.Contains(desc, "document"), strings.Contains(desc, "microsoft"):
		return CategoryDocument
	case strings.Contains(desc, "elf"), strings.Contains(desc, "executable"), strings.Contains(desc, "binary"):
		return CategoryExecutable
	}
	return CategoryOther
}

// splitMIME separates "type/subtype; k=v" into the base type and its
// parameters, all lower-cased.
func splitMIME(mimeType string) (string, map[string]string) {
	parts := strings.Split(mimeType, ";")
	base := strings.ToLower(strings.TrimSpace(parts[0]))

	params := make(map[string]string)
	for _, p := range parts[1:] {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		params[strings.ToLower(strings.TrimSpace(k))] = strings.ToLower(strings.Trim(strings.TrimSpace(v), `"`))
	}
	return base, params
}
