package gin

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "github.com/uniedit/enhancer/internal/utils/errors"
)

// handleError writes err as an error envelope. Errors that are not AppErrors
// are reported as a generic server error.
func handleError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.ServerError("", err)
	}
	_ = c.Error(err)
	c.JSON(appErr.StatusCode, appErr.ToResponse())
}
