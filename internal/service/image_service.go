package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"lokal/internal/config"
	"lokal/internal/models"
	"lokal/internal/repository"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaDir   = "/tmp/lokal/media"
	DefaultImageMaxMB = 10
	MasterMaxSize     = 2048
	ThumbnailSize     = 256
	JPEGQuality       = 82
	WebPQuality       = 70
)

type UploadImageInput struct {
	UserID      uint
	Filename    string
	ContentType string
	Content     []byte
}

// ImageService normalizes uploaded photos into a master JPEG plus a WebP
// thumbnail on disk, with metadata in the relational database.
type ImageService struct {
	repo      repository.ImageRepository
	mediaDir  string
	baseURL   string
	maxUpload int64
}

func NewImageService(repo repository.ImageRepository, cfg *config.Config) *ImageService {
	mediaDir := DefaultMediaDir
	baseURL := "/media"
	maxMB := DefaultImageMaxMB

	if cfg != nil {
		if cfg.MediaDir != "" {
			mediaDir = cfg.MediaDir
		}
		if cfg.MediaBaseURL != "" {
			baseURL = cfg.MediaBaseURL
		}
		if cfg.ImageMaxMB > 0 {
			maxMB = cfg.ImageMaxMB
		}
	}

	return &ImageService{
		repo:      repo,
		mediaDir:  mediaDir,
		baseURL:   strings.TrimRight(baseURL, "/"),
		maxUpload: int64(maxMB) * 1024 * 1024,
	}
}

// Upload validates, normalizes, and stores one image. Repeat uploads of the
// same bytes by the same user return the existing record.
func (s *ImageService) Upload(ctx context.Context, in UploadImageInput) (*models.Image, error) {
	if in.UserID == 0 {
		return nil, models.NewValidationError("Invalid user")
	}
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUpload {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUpload/(1024*1024)))
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detectedType) {
		return nil, models.NewValidationError("Only image files can be uploaded")
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	if !isSupportedDecodedFormat(format) {
		return nil, models.NewValidationError("Unsupported image format")
	}

	hash := buildImageHash(in.UserID, in.Content)
	if existing, err := s.repo.GetByHash(ctx, hash); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	master := resizeToFit(decoded, MasterMaxSize, MasterMaxSize)
	masterBytes, err := encodeJPEG(master, JPEGQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	thumb := resizeToFit(decoded, ThumbnailSize, ThumbnailSize)
	thumbBytes, err := encodeWebP(thumb, WebPQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	masterRel := filepath.ToSlash(filepath.Join(hash, "master.jpg"))
	thumbRel := filepath.ToSlash(filepath.Join(hash, "thumb.webp"))
	written := []string{filepath.Join(s.mediaDir, masterRel), filepath.Join(s.mediaDir, thumbRel)}

	if err := writeBytesToFile(written[0], masterBytes); err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := writeBytesToFile(written[1], thumbBytes); err != nil {
		cleanupImageFiles(written)
		return nil, models.NewInternalError(err)
	}

	mb := master.Bounds()
	record := &models.Image{
		Hash:      hash,
		UserID:    in.UserID,
		Format:    "jpeg",
		Width:     mb.Dx(),
		Height:    mb.Dy(),
		SizeBytes: int64(len(masterBytes)),
		Path:      masterRel,
		ThumbPath: thumbRel,
		URL:       s.buildURL(masterRel),
		ThumbURL:  s.buildURL(thumbRel),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		cleanupImageFiles(written)
		return nil, err
	}

	return record, nil
}

// UploadResult pairs a filename with its outcome in a batch upload.
type UploadResult struct {
	Filename string        `json:"filename"`
	Image    *models.Image `json:"image,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// BatchResult is the outcome of a multi-file upload.
type BatchResult struct {
	Results []UploadResult `json:"results"`
	// Warning is set when files beyond the per-pin cap were dropped.
	Warning string `json:"warning,omitempty"`
}

// UploadBatch stores files best effort: one bad file does not sink the rest.
// Files beyond MaxPinImages are dropped with a warning rather than failing
// the whole request. If no file succeeds the batch is a validation error.
func (s *ImageService) UploadBatch(ctx context.Context, userID uint, files []UploadImageInput) (*BatchResult, error) {
	if len(files) == 0 {
		return nil, models.NewValidationError("No files uploaded")
	}

	out := &BatchResult{}
	if len(files) > models.MaxPinImages {
		out.Warning = fmt.Sprintf("You can only upload a maximum of %d images", models.MaxPinImages)
		files = files[:models.MaxPinImages]
	}

	succeeded := 0
	for _, f := range files {
		f.UserID = userID
		img, err := s.Upload(ctx, f)
		if err != nil {
			out.Results = append(out.Results, UploadResult{Filename: f.Filename, Error: err.Error()})
			continue
		}
		succeeded++
		out.Results = append(out.Results, UploadResult{Filename: f.Filename, Image: img})
	}
	if succeeded == 0 {
		return nil, models.NewValidationError("No valid image files in upload")
	}
	return out, nil
}

// ResolveForServing maps a validated hash and variant to the file on disk.
func (s *ImageService) ResolveForServing(ctx context.Context, hash, variant string) (*models.Image, string, error) {
	if !isValidImageHash(hash) {
		return nil, "", models.NewValidationError("Invalid image hash")
	}
	img, err := s.repo.GetByHash(ctx, hash)
	if err != nil {
		return nil, "", err
	}
	if img == nil {
		return nil, "", models.NewNotFoundError("Image", hash)
	}

	rel := img.Path
	if variant == "thumb" && img.ThumbPath != "" {
		rel = img.ThumbPath
	}
	fullPath := filepath.Join(s.mediaDir, rel)
	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil, "", models.NewNotFoundError("Image", hash)
		}
		return nil, "", models.NewInternalError(err)
	}
	return img, fullPath, nil
}

func (s *ImageService) buildURL(rel string) string {
	return s.baseURL + "/" + rel
}

// isValidImageHash checks that the hash is strictly lowercase hex (SHA-256 style).
// This prevents path traversal attacks via crafted hash parameters.
func isValidImageHash(hash string) bool {
	if len(hash) == 0 || len(hash) > 128 {
		return false
	}
	for _, c := range hash {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

func buildImageHash(userID uint, content []byte) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%d:", userID)
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

func writeBytesToFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func cleanupImageFiles(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
