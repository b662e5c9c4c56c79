// Package storage puts listing and profile images into object storage and
// hands back the public URL that is attached to the post payload.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	ErrInvalidFile  = errors.New("invalid file")
	ErrFileTooLarge = errors.New("file too large")
	ErrUploadFailed = errors.New("file upload failed")
)

var allowedTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/webp": ".webp",
}

// Progress receives the bytes sent so far and the total size.
type Progress func(sent, total int64)

// Uploader stores one image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, in Upload) (Result, error)
}

type Upload struct {
	OwnerID     string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	OnProgress  Progress
}

type Result struct {
	Key          string `json:"key"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// Validate checks the declared type and size.
func Validate(contentType string, size, maxBytes int64) error {
	if _, ok := allowedTypes[strings.ToLower(contentType)]; !ok {
		return ErrInvalidFile
	}
	if size <= 0 {
		return ErrInvalidFile
	}
	if maxBytes > 0 && size > maxBytes {
		return ErrFileTooLarge
	}
	return nil
}

// ObjectKey builds prefix/owner/uuid.ext.
func ObjectKey(prefix, ownerID, filename, contentType string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = allowedTypes[strings.ToLower(contentType)]
	}
	owner := ownerID
	if owner == "" {
		owner = "anonymous"
	}
	return path.Join(prefix, owner, uuid.NewString()+ext)
}

// progressReader reports cumulative bytes read.
type progressReader struct {
	r     io.Reader
	total int64
	sent  atomic.Int64
	fn    Progress
}

func newProgressReader(r io.Reader, total int64, fn Progress) io.Reader {
	if fn == nil {
		return r
	}
	return &progressReader{r: r, total: total, fn: fn}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.fn(p.sent.Add(int64(n)), p.total)
	}
	return n, err
}
