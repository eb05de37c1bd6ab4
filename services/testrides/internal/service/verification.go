package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/diagnosis/testride-bookings/pkg/storage"
	"github.com/diagnosis/testride-bookings/services/testrides/internal/waiver"
)

var (
	ErrEmptyPhoto    = errors.New("photo is empty")
	ErrPhotoTooLarge = errors.New("photo is too large")
	ErrNotAnImage    = errors.New("file is not a supported image")
	ErrUploadFailed  = errors.New("upload failed")
)

var photoExt = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// VerificationService produces the stored artifacts of the verification step.
type VerificationService interface {
	PrepareIDPhoto(data []byte) (storage.Object, error)
	UploadIDPhoto(ctx context.Context, obj storage.Object) (string, error)
	RenderWaiver(doc waiver.Document) ([]byte, error)
	UploadWaiver(ctx context.Context, pdf []byte) (string, error)
	ProduceWaiver(ctx context.Context, doc waiver.Document) (string, error)
}

type verificationService struct {
	uploader storage.Uploader
	maxBytes int64
}

func NewVerificationService(uploader storage.Uploader, maxPhotoBytes int64) VerificationService {
	return &verificationService{uploader: uploader, maxBytes: maxPhotoBytes}
}

// PrepareIDPhoto checks size and sniffs the content type; the client's
// declared type is ignored.
func (v *verificationService) PrepareIDPhoto(data []byte) (storage.Object, error) {
	if len(data) == 0 {
		return storage.Object{}, ErrEmptyPhoto
	}
	if v.maxBytes > 0 && int64(len(data)) > v.maxBytes {
		return storage.Object{}, ErrPhotoTooLarge
	}
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ext, ok := photoExt[ct]
	if !ok {
		return storage.Object{}, ErrNotAnImage
	}
	return storage.Object{
		Prefix:      storage.PrefixIDPhotos,
		Ext:         ext,
		ContentType: ct,
		Body:        data,
	}, nil
}

func (v *verificationService) UploadIDPhoto(ctx context.Context, obj storage.Object) (string, error) {
	url, err := v.uploader.Upload(ctx, obj)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return url, nil
}

func (v *verificationService) RenderWaiver(doc waiver.Document) ([]byte, error) {
	return waiver.Render(doc)
}

func (v *verificationService) UploadWaiver(ctx context.Context, pdf []byte) (string, error) {
	url, err := v.uploader.Upload(ctx, storage.Object{
		Prefix:      storage.PrefixWaivers,
		Ext:         "pdf",
		ContentType: "application/pdf",
		Body:        pdf,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return url, nil
}

// ProduceWaiver renders and uploads in one call.
func (v *verificationService) ProduceWaiver(ctx context.Context, doc waiver.Document) (string, error) {
	pdf, err := v.RenderWaiver(doc)
	if err != nil {
		return "", err
	}
	return v.UploadWaiver(ctx, pdf)
}
