package authoring

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"go.uber.org/zap"
)

var uploadTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
	".ico":  "image/x-icon",
	".pdf":  "application/pdf",
}

// UploadKind narrows the file types an upload accepts.  The zero value accepts images and PDFs.
type UploadKind string

const (
	AnyUpload   UploadKind = ""
	ImageUpload UploadKind = "image"
	PDFUpload   UploadKind = "pdf"
)

func ParseUploadKind(s string) (UploadKind, error) {
	switch kind := UploadKind(strings.ToLower(strings.TrimSpace(s))); kind {
	case AnyUpload, ImageUpload, PDFUpload:
		return kind, nil
	}
	return "", invalid("file_type", "%s is not one of image, pdf", quote(s))
}

func (k UploadKind) allows(contentType string) bool {
	switch k {
	case ImageUpload:
		return strings.HasPrefix(contentType, "image/")
	case PDFUpload:
		return contentType == "application/pdf"
	}
	return true
}

func (k UploadKind) describe() string {
	switch k {
	case ImageUpload:
		return "an image"
	case PDFUpload:
		return "a PDF"
	}
	return "an image or PDF"
}

// Upload is one file headed for the DAM.
type Upload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// UploadAssets stores images and PDFs in a DAM folder, which is resolved underneath the DAM root
// when it isn't already.  Files of any other type, or not of the given kind, are refused one by one.
func (b *Builder) UploadAssets(ctx context.Context, folder string, kind UploadKind, files []Upload) (*Outcome, error) {
	if strings.TrimSpace(folder) == "" {
		return nil, invalid("folder", "is required")
	}
	if strings.Contains(folder, "..") {
		return nil, invalid("folder", "%s must not contain relative segments", quote(folder))
	}
	if _, err := ParseUploadKind(string(kind)); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, invalid("files", "needs at least one file")
	}

	results := make([]TargetResult, 0, len(files))
	for _, f := range files {
		name := path.Base(strings.ReplaceAll(f.Name, "\\", "/"))
		contentType, err := uploadType(name, f.ContentType, kind)
		if err != nil {
			results = append(results, failed(name, "", err))
			continue
		}

		p, err := b.CMS.UploadAsset(ctx, folder, name, contentType, f.Body)
		if err != nil {
			b.Logger.Warn("upload failed", zap.String("file", name), zap.Error(err))
			results = append(results, failed(name, "", err))
			continue
		}
		b.Logger.Info("uploaded asset", zap.String("path", p))
		results = append(results, succeeded(name, p))
	}

	return newOutcome("files", results), nil
}

func uploadType(name, declared string, kind UploadKind) (string, error) {
	ext := strings.ToLower(path.Ext(name))
	known, ok := uploadTypes[ext]
	if !ok || !kind.allows(known) {
		return "", fmt.Errorf("authoring: %s is not %s", quote(name), kind.describe())
	}
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil && mediaType != "application/octet-stream" {
		return mediaType, nil
	}
	return known, nil
}
