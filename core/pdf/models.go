package pdf

import (
	"io"
	"strings"
	"time"
)

// MaxFileSize is the upload ceiling: 25 MiB.
const MaxFileSize = 25 << 20

const mimePDF = "application/pdf"

// PDF is the metadata record describing one uploaded file, owned by one User.
// The blob itself lives in Storage under StoredName.
type PDF struct {
	ID           int       `json:"id"`
	UserID       int       `json:"userId"`
	OriginalName string    `json:"originalName"`
	StoredName   string    `json:"storedName"`
	SizeBytes    int64     `json:"sizeBytes"`
	MimeType     string    `json:"mimeType"`
	UploadedAt   time.Time `json:"uploadedAt"` // UTC
}

// Descriptor is a PDF annotated with its derived retrieval URL.
type Descriptor struct {
	PDF
	URL string `json:"url"`
}

func (p PDF) Descriptor() Descriptor {
	return Descriptor{PDF: p, URL: "/files/" + p.StoredName}
}

// Upload contains everything needed to create a new PDF record and its blob.
type Upload struct {
	UserID       int
	OriginalName string
	MimeType     string
	SizeBytes    int64
	Content      io.Reader
}

// Validate checks the upload before any byte is persisted.
// The type check is deliberately permissive: a declared application/pdf
// content type OR a .pdf filename suffix is enough. Neither signal is
// authoritative (no magic-byte sniffing), matching the client contract.
func (up *Upload) Validate() error {
	if up.UserID <= 0 {
		return ErrInvalidOwner
	}
	if up.Content == nil {
		return ErrMissingFile
	}
	if up.SizeBytes > MaxFileSize {
		return ErrFileTooLarge
	}
	if up.MimeType != mimePDF && !strings.HasSuffix(strings.ToLower(up.OriginalName), ".pdf") {
		return ErrNotPDF
	}
	return nil
}
