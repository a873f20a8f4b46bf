package session

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// UploadFile is a document about to be sent.
type UploadFile struct {
	Name string
	Size int64
	Body io.Reader
}

// OpenFile opens path for upload. The caller closes the returned file.
func OpenFile(path string) (UploadFile, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return UploadFile{}, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return UploadFile{}, nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return UploadFile{}, nil, fmt.Errorf("%s is a directory", path)
	}
	return UploadFile{Name: filepath.Base(path), Size: info.Size(), Body: f}, f, nil
}

// UploadLimits are the checks applied before any bytes leave the machine.
type UploadLimits struct {
	MaxBytes   int64
	Extensions []string // lower-case, with the leading dot
}

// DefaultUploadLimits accepts PDFs up to 50 MiB.
func DefaultUploadLimits() UploadLimits {
	return UploadLimits{MaxBytes: 50 * 1024 * 1024, Extensions: []string{".pdf"}}
}

// RejectError reports a file refused before upload. Message is meant for
// the user; Reason is ErrInvalidFileType or ErrFileTooLarge.
type RejectError struct {
	Reason  error
	Message string
}

func (e *RejectError) Error() string { return e.Message }
func (e *RejectError) Unwrap() error { return e.Reason }

// Check validates name and size, returning a *RejectError on refusal.
func (l UploadLimits) Check(name string, size int64) error {
	ext := strings.ToLower(filepath.Ext(name))
	allowed := false
	for _, e := range l.Extensions {
		if ext == strings.ToLower(e) {
			allowed = true
			break
		}
	}
	if !allowed {
		return &RejectError{Reason: ErrInvalidFileType, Message: MsgInvalidFile}
	}
	if size > l.MaxBytes {
		return &RejectError{
			Reason:  ErrFileTooLarge,
			Message: fmt.Sprintf("File too large (max %s)", humanize.IBytes(uint64(l.MaxBytes))),
		}
	}
	return nil
}

// FileInfo is a local preview of a document before upload.
type FileInfo struct {
	Name  string
	Size  string
	Pages int // 0 when the page count could not be read
}

// Inspect describes the PDF at path for display. Reading the page count is
// best effort; a malformed PDF still gets a size.
func Inspect(path string, size int64) FileInfo {
	info := FileInfo{
		Name: filepath.Base(path),
		Size: humanize.IBytes(uint64(size)),
	}
	if pages, err := api.PageCountFile(path); err == nil {
		info.Pages = pages
	}
	return info
}

func (f FileInfo) String() string {
	if f.Pages > 0 {
		return fmt.Sprintf("%s (%d pages, %s)", f.Name, f.Pages, f.Size)
	}
	return fmt.Sprintf("%s (%s)", f.Name, f.Size)
}
