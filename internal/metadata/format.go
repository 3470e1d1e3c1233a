package metadata

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// SupportedExtensions lists the audio containers the scanner catalogs.
var SupportedExtensions = []string{".mp3", ".flac", ".wav", ".m4a", ".aac", ".ogg", ".wma"}

// IsSupported reports whether path has a supported audio extension.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, candidate := range SupportedExtensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

var asfHeaderGUID = []byte{0x30, 0x26, 0xB2, 0x75, 0x8E, 0x66, 0xCF, 0x11}

// detectFormat identifies the container from its leading bytes and falls back
// to the lower-cased extension.
func detectFormat(path string) string {
	if format := sniffContainer(path); format != "" {
		return format
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

func sniffContainer(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	header := make([]byte, 12)
	n, err := io.ReadFull(f, header)
	if err != nil && n < 4 {
		return ""
	}
	header = header[:n]

	switch {
	case bytes.HasPrefix(header, []byte("fLaC")):
		return "flac"
	case bytes.HasPrefix(header, []byte("ID3")):
		return "mp3"
	case bytes.HasPrefix(header, []byte("OggS")):
		return "ogg"
	case bytes.HasPrefix(header, asfHeaderGUID):
		return "wma"
	case n >= 12 && bytes.HasPrefix(header, []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WAVE")):
		return "wav"
	case n >= 8 && bytes.Equal(header[4:8], []byte("ftyp")):
		return "m4a"
	case header[0] == 0xFF && header[1]&0xF6 == 0xF0:
		return "aac"
	case header[0] == 0xFF && header[1]&0xE0 == 0xE0:
		return "mp3"
	}
	return ""
}
