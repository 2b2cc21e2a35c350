package gin

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/uniedit/enhancer/internal/model"
	"github.com/uniedit/enhancer/internal/port/inbound"
	"github.com/uniedit/enhancer/internal/port/outbound"
	apperrors "github.com/uniedit/enhancer/internal/utils/errors"
)

const (
	// UserIDKey is the context key set by upstream authentication.
	UserIDKey = "user_id"
	// GuestIDHeader carries the guest identity for anonymous callers.
	GuestIDHeader = "X-Guest-ID"
)

// EnhanceHandler serves the image enhancement endpoints.
type EnhanceHandler struct {
	domain         inbound.EnhanceDomain
	catalog        outbound.ModelCatalogPort
	maxUploadBytes int64
}

// NewEnhanceHandler creates a new enhancement HTTP handler.
func NewEnhanceHandler(domain inbound.EnhanceDomain, catalog outbound.ModelCatalogPort, maxUploadBytes int64) *EnhanceHandler {
	return &EnhanceHandler{domain: domain, catalog: catalog, maxUploadBytes: maxUploadBytes}
}

// RegisterRoutes mounts the handler under r.
func (h *EnhanceHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/enhance", h.Enhance)
	r.GET("/models", h.ListModels)
}

// Enhance handles POST /enhance with a multipart upload.
//
//	@Summary		Enhance an image
//	@Description	Upscale or restore an uploaded image with a catalog model. The charge is taken from the monthly allowance first, then from credits.
//	@Tags			Enhance
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			X-Guest-ID		header		string	false	"Guest identity when no user is authenticated"
//	@Param			file			formData	file	true	"Source image"
//	@Param			model			formData	string	true	"Model slug"
//	@Param			scale			formData	int		false	"Upscale factor"
//	@Param			face_enhance	formData	bool	false	"Enable face enhancement"
//	@Param			prompt			formData	string	false	"Prompt for prompt-driven models"
//	@Param			negative_prompt	formData	string	false	"Negative prompt"
//	@Param			steps			formData	int		false	"Inference steps"
//	@Param			strength		formData	number	false	"Img2img strength"
//	@Param			guidance		formData	number	false	"Guidance scale"
//	@Success		200				{object}	model.GenerationResult
//	@Failure		402				{object}	errors.ErrorResponse	"Quota exceeded"
//	@Failure		403				{object}	errors.ErrorResponse	"Model not available to guests"
//	@Failure		422				{object}	errors.ErrorResponse	"Invalid request"
//	@Failure		500				{object}	errors.ErrorResponse	"Internal server error"
//	@Router			/api/v1/enhance [post]
func (h *EnhanceHandler) Enhance(c *gin.Context) {
	req, err := h.bindRequest(c)
	if err != nil {
		handleError(c, err)
		return
	}

	result, err := h.domain.Generate(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListModels handles GET /models.
//
//	@Summary		List models
//	@Description	List the enhancement models in the catalog with their pricing
//	@Tags			Enhance
//	@Produce		json
//	@Success		200	{object}	map[string][]model.ModelDescriptor
//	@Router			/api/v1/models [get]
func (h *EnhanceHandler) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": h.catalog.All()})
}

func (h *EnhanceHandler) bindRequest(c *gin.Context) (*model.GenerationRequest, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, apperrors.ValidationError("file is required")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, apperrors.ValidationError("file could not be read")
	}
	defer f.Close()

	// One byte past the limit lets validation report the oversize upload.
	var r io.Reader = f
	if h.maxUploadBytes > 0 {
		r = io.LimitReader(f, h.maxUploadBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.ValidationError("file could not be read")
	}

	req := &model.GenerationRequest{
		Owner:     ownerOf(c),
		ModelSlug: c.PostForm("model"),
		File: model.UploadedFile{
			Name:         fh.Filename,
			Data:         data,
			DeclaredType: fh.Header.Get("Content-Type"),
		},
		RequestOrigin:  requestOrigin(c.Request),
		Prompt:         c.PostForm("prompt"),
		NegativePrompt: c.PostForm("negative_prompt"),
	}

	if req.Scale, err = formInt(c, "scale"); err != nil {
		return nil, err
	}
	if req.Steps, err = formInt(c, "steps"); err != nil {
		return nil, err
	}
	if req.Strength, err = formFloat(c, "strength"); err != nil {
		return nil, err
	}
	if req.Guidance, err = formFloat(c, "guidance"); err != nil {
		return nil, err
	}
	if v, ok := c.GetPostForm("face_enhance"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, apperrors.ValidationError("face_enhance must be a boolean")
		}
		req.FaceEnhance = &b
	}

	return req, nil
}

// ownerOf resolves the billing identity: an authenticated user when upstream
// auth set user_id, otherwise the guest named by the X-Guest-ID header.
func ownerOf(c *gin.Context) model.Owner {
	if v, ok := c.Get(UserIDKey); ok {
		if id := fmt.Sprint(v); id != "" {
			return model.Owner{Type: model.OwnerTypeUser, ID: id}
		}
	}
	return model.Owner{Type: model.OwnerTypeGuest, ID: strings.TrimSpace(c.GetHeader(GuestIDHeader))}
}

func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

func formInt(c *gin.Context, key string) (*int, error) {
	v, ok := c.GetPostForm(key)
	if !ok || v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, apperrors.ValidationError(key + " must be an integer")
	}
	return &n, nil
}

func formFloat(c *gin.Context, key string) (*float64, error) {
	v, ok := c.GetPostForm(key)
	if !ok || v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, apperrors.ValidationError(key + " must be a number")
	}
	return &f, nil
}
