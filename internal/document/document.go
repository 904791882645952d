package document

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MIMEPDF  = "application/pdf"
	MIMEDoc  = "application/msword"
	MIMEDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEText = "text/plain"

	mimeOctetStream = "application/octet-stream"
)

// extensionTypes is consulted when content sniffing only finds a container format.
var extensionTypes = map[string]string{
	".pdf":  MIMEPDF,
	".doc":  MIMEDoc,
	".docx": MIMEDocx,
	".txt":  MIMEText,
}

// File is a file handle selected by the user: the name and type it was
// offered with plus its content.
type File struct {
	Name     string
	Size     int64
	MIMEType string

	data []byte
}

// New wraps in-memory content. An empty mimeType is detected from the content.
func New(name, mimeType string, data []byte) *File {
	mimeType = normalizeType(mimeType)
	if mimeType == "" || mimeType == mimeOctetStream {
		mimeType = Detect(name, data)
	}

	return &File{
		Name:     name,
		Size:     int64(len(data)),
		MIMEType: mimeType,
		data:     data,
	}
}

// Open reads a local file. Local files carry no declared type, so it is sniffed.
func Open(path string) (*File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}

	return New(filepath.Base(path), "", data), nil
}

// FromUpload converts a multipart upload, trusting the Content-Type the browser sent.
func FromUpload(fh *multipart.FileHeader) (*File, error) {
	if fh == nil {
		return nil, nil
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload %q: %w", fh.Filename, err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("reading upload %q: %w", fh.Filename, err)
	}

	return New(fh.Filename, fh.Header.Get("Content-Type"), data), nil
}

// Detect returns the MIME type of the content without parameters.
func Detect(name string, data []byte) string {
	detected := normalizeType(mimetype.Detect(data).String())

	switch detected {
	case "", mimeOctetStream, "application/zip", "application/x-ole-storage":
		if byExt, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]; ok {
			return byExt
		}
	}

	if detected == "" {
		return mimeOctetStream
	}
	return detected
}

// Reader returns a fresh reader over the content.
func (f *File) Reader() *bytes.Reader {
	return bytes.NewReader(f.data)
}

func (f *File) Bytes() []byte {
	return f.data
}

func normalizeType(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	parsed, _, err := mime.ParseMediaType(value)
	if err != nil {
		return strings.ToLower(value)
	}
	return parsed
}
