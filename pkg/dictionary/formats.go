package dictionary

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// FileFormat represents different dictionary file formats.
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	FormatIndex              // Persisted SFTI trie/map index
	FormatChunk              // Chunked staging format written by the chunker
	FormatText               // Plain text, one "word<TAB>rank" per line
)

// sftiMagic is the four-byte header sft.Trie/sft.MapTrie persistence writes
// at the start of every stream; see pkg/sft/persist.go.
var sftiMagic = [4]byte{'S', 'F', 'T', 'I'}

// FormatInfo contains metadata about a dictionary file format.
type FormatInfo struct {
	Format      FileFormat
	Description string
	Extensions  []string
	MinSize     int64
}

var supportedFormats = map[FileFormat]FormatInfo{
	FormatIndex: {
		Format:      FormatIndex,
		Description: "Persisted SFTI Index",
		Extensions:  []string{".bin", ".sft"},
		MinSize:     12, // magic + version + tag bytes
	},
	FormatChunk: {
		Format:      FormatChunk,
		Description: "Chunked Dictionary Staging File",
		Extensions:  []string{".bin"},
		MinSize:     4, // at least the entry-count header
	},
	FormatText: {
		Format:      FormatText,
		Description: "Plain Text Dictionary",
		Extensions:  []string{".txt"},
		MinSize:     1,
	},
}

// ValidateFileFormat checks if a file matches the expected format.
func ValidateFileFormat(filename string, expectedFormat FileFormat) error {
	fileInfo, err := os.Stat(filename)
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", filename, err)
	}

	formatInfo, exists := supportedFormats[expectedFormat]
	if !exists {
		return fmt.Errorf("unknown format: %v", expectedFormat)
	}

	if fileInfo.Size() < formatInfo.MinSize {
		return fmt.Errorf("file %s is too small (%d bytes) for format %s (minimum: %d bytes)",
			filename, fileInfo.Size(), formatInfo.Description, formatInfo.MinSize)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	validExt := false
	for _, validExtension := range formatInfo.Extensions {
		if ext == validExtension {
			validExt = true
			break
		}
	}
	if !validExt {
		return fmt.Errorf("file %s has invalid extension %s for format %s (expected: %v)",
			filename, ext, formatInfo.Description, formatInfo.Extensions)
	}

	switch expectedFormat {
	case FormatIndex:
		return validateIndexFormat(filename)
	case FormatChunk:
		return validateChunkFormat(filename)
	case FormatText:
		return validateTextFormat(filename)
	}
	return nil
}

// validateIndexFormat checks for the SFTI magic header without parsing the
// rest of the stream; the real parse happens in sft.LoadTrie/LoadMap.
func validateIndexFormat(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer file.Close()

	var magic [4]byte
	if _, err := file.Read(magic[:]); err != nil {
		return fmt.Errorf("failed to read header from %s: %w", filename, err)
	}
	if magic != sftiMagic {
		return fmt.Errorf("%s is not an SFTI index: bad magic %q", filename, magic)
	}
	return nil
}

// validateChunkFormat validates a chunk staging file's entry-count header.
func validateChunkFormat(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer file.Close()

	count, err := readChunkHeader(bufio.NewReader(file))
	if err != nil {
		return fmt.Errorf("failed to read chunk header from %s: %w", filename, err)
	}
	if count < 0 {
		return fmt.Errorf("invalid entry count in %s: %d (negative)", filename, count)
	}
	if count > 1_000_000 {
		return fmt.Errorf("suspicious entry count in %s: %d (too large)", filename, count)
	}
	log.Debugf("chunk file %s validated: %d entries", filename, count)
	return nil
}

func validateTextFormat(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer file.Close()

	buffer := make([]byte, 1024)
	if _, err := file.Read(buffer); err != nil {
		return fmt.Errorf("failed to read from text file %s: %w", filename, err)
	}
	log.Debugf("text file %s validated", filename)
	return nil
}

// DetectFileFormat attempts to detect the format of a file by name and
// content.
func DetectFileFormat(filename string) (FileFormat, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	basename := strings.ToLower(filepath.Base(filename))

	if strings.HasPrefix(basename, "dict_") && ext == ".bin" {
		if err := ValidateFileFormat(filename, FormatChunk); err == nil {
			return FormatChunk, nil
		}
	}

	if ext == ".bin" || ext == ".sft" {
		if err := ValidateFileFormat(filename, FormatIndex); err == nil {
			return FormatIndex, nil
		}
	}

	if ext == ".txt" {
		if err := ValidateFileFormat(filename, FormatText); err == nil {
			return FormatText, nil
		}
	}

	return FormatUnknown, fmt.Errorf("unable to detect format for file %s", filename)
}

// GetFormatInfo returns information about a specific format.
func GetFormatInfo(format FileFormat) (FormatInfo, bool) {
	info, exists := supportedFormats[format]
	return info, exists
}

// ListSupportedFormats returns all supported formats.
func ListSupportedFormats() []FormatInfo {
	var formats []FormatInfo
	for _, info := range supportedFormats {
		formats = append(formats, info)
	}
	return formats
}
