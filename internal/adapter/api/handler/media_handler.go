package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"barterhub/internal/usecase"
	"barterhub/pkg/errors"
	"barterhub/pkg/logger"
	"barterhub/pkg/response"
	"barterhub/pkg/utils"
)

type MediaHandler struct {
	mediaUseCase *usecase.MediaUseCase
}

func NewMediaHandler(mediaUseCase *usecase.MediaUseCase) *MediaHandler {
	return &MediaHandler{mediaUseCase: mediaUseCase}
}

// UploadMedia stores a multipart "file" field. Optional form fields:
// listing_id, region.
func (h *MediaHandler) UploadMedia(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return response.Error(c, err)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return response.Error(c, errors.BadRequest("Missing or invalid file", err))
	}
	logger.Debug("Received file: %s, size: %d bytes", file.Filename, file.Size)

	src, err := file.Open()
	if err != nil {
		return response.Error(c, errors.BadRequest("Failed to read file", err))
	}
	defer src.Close()

	input := usecase.UploadMediaInput{
		FileName: file.Filename,
		Size:     file.Size,
		Region:   c.FormValue("region"),
		Body:     src,
	}
	if listingID := c.FormValue("listing_id"); listingID != "" {
		input.ListingID = &listingID
	}

	media, err := h.mediaUseCase.Upload(c.Request().Context(), userID, input)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, media)
}

func (h *MediaHandler) ListMyMedia(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return response.Error(c, err)
	}

	p := utils.GetPaginationParams(c)
	items, total, err := h.mediaUseCase.ListMine(c.Request().Context(), userID, p.Page, p.PageSize)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, items, total, p.Page, p.PageSize)
}

func (h *MediaHandler) GetMedia(c echo.Context) error {
	media, err := h.mediaUseCase.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, media)
}

// GetMediaContent streams the stored bytes.
func (h *MediaHandler) GetMediaContent(c echo.Context) error {
	media, rc, err := h.mediaUseCase.Open(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	defer rc.Close()

	c.Response().Header().Set("Cache-Control", "private, max-age=3600")
	return c.Stream(http.StatusOK, media.MimeType, rc)
}

func (h *MediaHandler) DeleteMedia(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.mediaUseCase.Delete(c.Request().Context(), c.Param("id"), user); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"message": "Media deleted successfully"})
}
