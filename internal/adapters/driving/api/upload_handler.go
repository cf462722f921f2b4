package api

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// UploadHandler stages uploaded files and indexes them.
type UploadHandler struct {
	index   driving.IndexService
	stager  driven.FileStager
	tempDir string
}

// NewUploadHandler creates an UploadHandler. Uploads are spooled to
// tempDir (os.TempDir when empty) before staging.
func NewUploadHandler(index driving.IndexService, stager driven.FileStager, tempDir string) *UploadHandler {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &UploadHandler{index: index, stager: stager, tempDir: tempDir}
}

// HandleUpload accepts a multipart "file" field, stages it into the
// documents directory and indexes it. A form value replace=true removes
// older generations of the same name.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return ErrMissingFile()
	}

	replace, _ := strconv.ParseBool(c.FormValue("replace")) //nolint:errcheck // absent means false

	tmp := filepath.Join(h.tempDir, "docqa-upload-"+uuid.NewString()+filepath.Ext(fileHeader.Filename))
	if err := c.SaveFile(fileHeader, tmp); err != nil {
		return err
	}
	defer os.Remove(tmp)

	ctx := c.UserContext()
	finalPath, name, err := h.stager.Stage(ctx, tmp, fileHeader.Filename)
	if err != nil {
		return err
	}

	var progress []domain.Progress
	sink := driven.ProgressFunc(func(message string, value float64) {
		progress = append(progress, domain.Progress{Message: message, Value: value})
	})

	result, err := h.index.IndexDocumentWithOptions(ctx, finalPath, name, sink,
		driving.IndexOptions{ReplaceExisting: replace})
	if err != nil {
		if rmErr := h.stager.Remove(name); rmErr != nil {
			logger.Warn("Could not remove staged %s: %v", name, rmErr)
		}
		return NewError(statusFor(err), failureMessage(progress, err))
	}

	return c.Status(fiber.StatusCreated).JSON(UploadResponse{
		DocID:    result.DocID,
		Filename: name,
		Chunks:   result.Chunks,
		Replaced: result.Replaced,
		Progress: progress,
	})
}

// failureMessage returns the last failure update, or err's text.
func failureMessage(progress []domain.Progress, err error) string {
	for i := len(progress) - 1; i >= 0; i-- {
		if progress[i].Failed() {
			return progress[i].Message
		}
	}
	return err.Error()
}
