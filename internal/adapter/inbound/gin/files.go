package gin

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/uniedit/enhancer/internal/port/outbound"
	apperrors "github.com/uniedit/enhancer/internal/utils/errors"
)

// FilesHandler serves stored originals and results by object key.
type FilesHandler struct {
	objects outbound.ObjectStorePort
}

// NewFilesHandler creates a new file serving handler.
func NewFilesHandler(objects outbound.ObjectStorePort) *FilesHandler {
	return &FilesHandler{objects: objects}
}

// RegisterRoutes mounts GET /files/*key under r.
func (h *FilesHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/files/*key", h.Get)
}

// Get handles GET /files/*key.
//
//	@Summary		Get a stored image
//	@Description	Serve an uploaded original or a generated result by object key
//	@Tags			Files
//	@Produce		image/png,image/jpeg,image/webp
//	@Param			key	path	string	true	"Object key"
//	@Success		200	{file}	binary
//	@Failure		404	"Not found"
//	@Router			/files/{key} [get]
func (h *FilesHandler) Get(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" || strings.Contains(key, "..") {
		c.Status(http.StatusNotFound)
		return
	}

	data, contentType, err := h.objects.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, outbound.ErrObjectNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		handleError(c, apperrors.ServerError("", err))
		return
	}

	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, contentType, data)
}
