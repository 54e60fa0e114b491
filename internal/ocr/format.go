package ocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

const (
	// MaxFileSizeBytes is the maximum document size accepted for OCR (20MB)
	MaxFileSizeBytes = 20 * 1024 * 1024

	// MaxPagesSync is the maximum number of PDF pages for synchronous Vision processing
	MaxPagesSync = 5
)

// Supported MIME types.
const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeBMP  = "image/bmp"
	MimeGIF  = "image/gif"
	MimeTIFF = "image/tiff"
	MimePDF  = "application/pdf"
)

var imageMimeTypes = map[string]string{
	"jpeg": MimeJPEG,
	"png":  MimePNG,
	"bmp":  MimeBMP,
	"gif":  MimeGIF,
	"tiff": MimeTIFF,
}

var allowedExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
	".tiff": true,
	".tif":  true,
	".pdf":  true,
}

// Document is a label file ready for OCR.
type Document struct {
	Name     string
	MimeType string
	Data     []byte

	// Width and Height are set for images.
	Width  int
	Height int
}

// IsPDF reports whether the document is a PDF.
func (d *Document) IsPDF() bool {
	return d.MimeType == MimePDF
}

// ValidateFilename rejects names whose extension is not a supported format.
func ValidateFilename(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return WrapOCRError("ValidateFilename", ErrUnsupportedFormat, fmt.Sprintf("extension %q", ext))
	}
	return nil
}

// DetectFormat identifies the document type from its content, ignoring the
// file name. Images must decode far enough to yield their dimensions.
func DetectFormat(data []byte) (string, error) {
	mime, _, err := detect(data)
	return mime, err
}

func detect(data []byte) (string, image.Config, error) {
	const op = "DetectFormat"

	if bytes.HasPrefix(data, []byte("%PDF")) {
		return MimePDF, image.Config{}, nil
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", image.Config{}, WrapOCRError(op, ErrUnsupportedFormat, err.Error())
	}
	mime, ok := imageMimeTypes[format]
	if !ok {
		return "", image.Config{}, WrapOCRError(op, ErrUnsupportedFormat, fmt.Sprintf("image format %q", format))
	}
	return mime, cfg, nil
}

// ReadDocument reads at most MaxFileSizeBytes from r and identifies its format.
func ReadDocument(name string, r io.Reader) (*Document, error) {
	const op = "ReadDocument"

	data, err := io.ReadAll(io.LimitReader(r, MaxFileSizeBytes+1))
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to read document data")
	}
	if len(data) > MaxFileSizeBytes {
		return nil, WrapOCRError(op, ErrDocumentTooLarge, fmt.Sprintf("file size exceeds %d bytes", MaxFileSizeBytes))
	}
	if len(data) == 0 {
		return nil, WrapOCRError(op, ErrEmptyDocument, "file is empty")
	}

	mime, cfg, err := detect(data)
	if err != nil {
		return nil, err
	}
	return &Document{
		Name:     name,
		MimeType: mime,
		Data:     data,
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}
