package validation

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/el-kamal/auctify/backend/src/logger"
)

// AllowedResultContentTypes is a map for quick lookup of allowed
// client-declared MIME types on the results upload endpoint. Results
// exports arrive as CSV in varying encodings.
var AllowedResultContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"application/vnd.ms-excel": true, // Often used for CSV by older Excel
	"text/plain":               true, // CSVs are often plain text
	"application/octet-stream": true, // Fallback, but be more cautious
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": false, // .xlsx, wrong endpoint
}

// AllowedMappingContentTypes covers the mapping workbook upload, which
// must be an xlsx file.
var AllowedMappingContentTypes = map[string]bool{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/octet-stream": true,
	"application/zip":          true, // xlsx is a zip container
}

// ValidateResultContentType checks the Content-Type header declared by
// the client on a results upload.
func ValidateResultContentType(contentType string) error {
	if allowed, exists := AllowedResultContentTypes[strings.ToLower(contentType)]; !exists || !allowed {
		logger.L.Warn("Disallowed client-declared Content-Type", "contentType", contentType)
		return fmt.Errorf("client-declared file type '%s' is not allowed for results upload", contentType)
	}
	return nil
}

// ValidateMappingContentType checks the Content-Type header declared by
// the client on a mapping workbook upload.
func ValidateMappingContentType(contentType string) error {
	if allowed, exists := AllowedMappingContentTypes[strings.ToLower(contentType)]; !exists || !allowed {
		logger.L.Warn("Disallowed client-declared Content-Type", "contentType", contentType)
		return fmt.Errorf("client-declared file type '%s' is not allowed for mapping upload", contentType)
	}
	return nil
}

// ValidateResultContentByMagicBytes checks the actual file content
// signature of a results upload. It returns the detected content type
// and an error if the content is clearly not a text export.
func ValidateResultContentByMagicBytes(file io.ReadSeeker) (string, error) {
	detectedContentType, err := sniff(file)
	if err != nil {
		return "", err
	}

	// Encodings like latin-1 routinely sniff as octet-stream; the
	// parser's encoding cascade is the real gate afterwards.
	allowedDetectedTypes := map[string]bool{
		"text/plain":               true,
		"text/csv":                 true,
		"application/csv":          true,
		"application/octet-stream": true,
	}

	if !allowedDetectedTypes[detectedContentType] {
		logger.L.Warn("Disallowed detected file content type (magic bytes)", "detectedContentType", detectedContentType)
		return detectedContentType, fmt.Errorf("detected file content type '%s' is not consistent with a results export", detectedContentType)
	}

	logger.L.Debug("File content type (magic bytes) validated", "detectedContentType", detectedContentType)
	return detectedContentType, nil
}

// xlsxMagic is the zip local-file-header signature every xlsx starts with.
var xlsxMagic = []byte{'P', 'K', 0x03, 0x04}

// ValidateMappingContentByMagicBytes checks that a mapping upload is a
// zip container, which every xlsx workbook is.
func ValidateMappingContentByMagicBytes(file io.ReadSeeker) error {
	if file == nil {
		return fmt.Errorf("file is nil")
	}

	header := make([]byte, len(xlsxMagic))
	n, err := io.ReadFull(file, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return fmt.Errorf("failed to read file for content type checking: %w", err)
	}
	if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil {
		return fmt.Errorf("failed to reset file read pointer: %w", seekErr)
	}

	if n < len(xlsxMagic) || !bytes.Equal(header, xlsxMagic) {
		logger.L.Warn("Mapping upload does not start with a zip signature")
		return fmt.Errorf("file content is not a valid xlsx workbook")
	}
	return nil
}

func sniff(file io.ReadSeeker) (string, error) {
	if file == nil {
		return "", fmt.Errorf("file is nil")
	}

	buffer := make([]byte, 512) // Read first 512 bytes for MIME detection
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file for content type checking: %w", err)
	}

	// Reset the read pointer so the actual parser sees the full file.
	if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil {
		return "", fmt.Errorf("failed to reset file read pointer: %w", seekErr)
	}

	detectedContentType := http.DetectContentType(buffer[:n])
	return strings.ToLower(strings.Split(detectedContentType, ";")[0]), nil
}
