// Package media handles image hosting for post attachments.
package media

import (
	"context"
	"fmt"
	"io"

	"inkwell/internal/observability"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Attachment is a stored media asset. URL is what clients render; Ref is the
// host-side identifier needed to release the asset later.
type Attachment struct {
	URL string
	Ref string
}

// Store uploads and releases media assets.
type Store interface {
	Upload(ctx context.Context, r io.Reader, filename string) (Attachment, error)
	Release(ctx context.Context, ref string) error
}

// CloudinaryStore stores assets on Cloudinary.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStore builds a store from a cloudinary:// credential URL.
func NewCloudinaryStore(credentialURL, folder string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(credentialURL)
	if err != nil {
		return nil, fmt.Errorf("invalid cloudinary credentials: %w", err)
	}
	cld.Config.URL.Secure = true
	return &CloudinaryStore{cld: cld, folder: folder}, nil
}

// Upload stores the image and returns its public URL and release reference.
func (s *CloudinaryStore) Upload(ctx context.Context, r io.Reader, filename string) (Attachment, error) {
	res, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:           s.folder,
		FilenameOverride: filename,
		ResourceType:     "image",
	})
	if err != nil {
		return Attachment{}, fmt.Errorf("media upload failed: %w", err)
	}
	return Attachment{URL: res.SecureURL, Ref: res.PublicID}, nil
}

// Release deletes the asset identified by ref. Callers treat failures as
// best effort; the owning record is already gone.
func (s *CloudinaryStore) Release(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	res, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: ref})
	if err != nil {
		observability.MediaReleaseFailures.Inc()
		return fmt.Errorf("media release failed: %w", err)
	}
	if res.Result != "ok" && res.Result != "not found" {
		observability.MediaReleaseFailures.Inc()
		return fmt.Errorf("media release rejected: %s", res.Result)
	}
	return nil
}
