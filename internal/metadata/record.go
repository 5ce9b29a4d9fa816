package metadata

import (
	"strconv"
	"strings"

	"hashdrop/internal/digest"
)

// ErrorPlaceholder marks a field that could not be determined.
const ErrorPlaceholder = "error"

// Record is everything known about one file of a batch. Path is the key
// and is unique within a batch. Row is the discovery ordinal, starting at
// zero.
type Record struct {
	Row            int                         `json:"row"`
	Path           string                      `json:"path"`
	Filename       string                      `json:"filename"`
	Size           uint64                      `json:"size"`
	Extension      string                      `json:"extension"`
	MIMEType       string                      `json:"mimeType"`
	TypeDescriptor string                      `json:"typeDescriptor"`
	DirectoryLabel string                      `json:"directoryLabel"`
	Digests        map[digest.Algorithm]string `json:"digests"`
	// ScanMatches is nil when content scanning was not requested.
	ScanMatches []string `json:"scanMatches"`

	// SizeUnknown is set when the file could not be stat'ed; Size is then 0.
	SizeUnknown bool `json:"sizeUnknown,omitempty"`
}

// Clone returns a deep copy that shares nothing with r.
func (r Record) Clone() Record {
	c := r
	if r.Digests != nil {
		c.Digests = make(map[digest.Algorithm]string, len(r.Digests))
		for k, v := range r.Digests {
			c.Digests[k] = v
		}
	}
	if r.ScanMatches != nil {
		c.ScanMatches = append([]string{}, r.ScanMatches...)
	}
	return c
}

// SizeText renders Size, or ErrorPlaceholder when it is unknown.
func (r Record) SizeText() string {
	if r.SizeUnknown {
		return ErrorPlaceholder
	}
	return strconv.FormatUint(r.Size, 10)
}

// Digest returns the value for alg, or "" when it has not arrived.
func (r Record) Digest(alg digest.Algorithm) string {
	return r.Digests[alg]
}

// Matches renders the scan matches joined with " | ".
func (r Record) Matches() string {
	return strings.Join(r.ScanMatches, " | ")
}
