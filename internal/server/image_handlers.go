package server

import (
	"io"
	"mime/multipart"
	"strings"

	"lokal/internal/models"
	"lokal/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadImages handles POST /api/images
// Accepts a multipart form with one or more "images" files. Files are
// processed best effort: a bad file fails individually, extra files past the
// per-pin cap are dropped with a warning.
func (s *Server) UploadImages(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	form, err := c.MultipartForm()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid multipart form"))
	}

	headers := form.File["images"]
	if len(headers) == 0 {
		// Single-file clients use the "image" field
		headers = form.File["image"]
	}
	if len(headers) == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No file uploaded"))
	}

	inputs := make([]service.UploadImageInput, 0, len(headers))
	for _, h := range headers {
		content, err := readMultipartFile(h)
		if err != nil {
			inputs = append(inputs, service.UploadImageInput{Filename: h.Filename})
			continue
		}
		inputs = append(inputs, service.UploadImageInput{
			Filename:    h.Filename,
			ContentType: h.Header.Get("Content-Type"),
			Content:     content,
		})
	}

	batch, err := s.imageService.UploadBatch(c.UserContext(), userID, inputs)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(batch)
}

// ServeImage handles GET /media/:hash/:file
// The file segment selects the variant: thumb.webp or the master image.
func (s *Server) ServeImage(c *fiber.Ctx) error {
	hash := strings.TrimSpace(c.Params("hash"))
	variant := ""
	if strings.HasPrefix(c.Params("file"), "thumb") {
		variant = "thumb"
	}

	_, path, err := s.imageService.ResolveForServing(c.Context(), hash, variant)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.SendFile(path)
}

func readMultipartFile(h *multipart.FileHeader) ([]byte, error) {
	src, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()
	return io.ReadAll(src)
}
