package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"oiko/internal/images"
)

const uploadField = "image"

var errImageRequired = errors.New("image file is required")

/*
=======================
  POST /api/upload
=======================
*/

func UploadImage(host ImageHost) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/upload"
		defer handlePanic(c, route)

		if !strings.HasPrefix(c.GetHeader("Content-Type"), "multipart/form-data") {
			respondWithError(c, http.StatusUnsupportedMediaType, route, "multipart/form-data required")
			return
		}

		// allow the multipart envelope on top of the image ceiling
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, images.MaxUploadBytes+1<<20)

		data, err := readImage(c)
		if err != nil {
			respondMultipartError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*requestTimeout)
		defer cancel()

		uploaded, err := host.Upload(ctx, data)
		if err != nil {
			switch {
			case errors.Is(err, images.ErrTooLarge), errors.Is(err, images.ErrNotImage), errors.Is(err, images.ErrEmpty):
				respondMultipartError(c, err)
			case errors.Is(err, images.ErrNotConfigured):
				respondWithError(c, http.StatusServiceUnavailable, route, err.Error())
			default:
				respondInternal(c, route, err)
			}
			return
		}

		zap.L().Info("image uploaded", zap.String("component", "uploads"), zap.String("publicId", uploaded.PublicID))
		respondData(c, http.StatusCreated, uploaded)
	}
}

/*
=======================
  DELETE /api/upload/:publicId
=======================
*/

func DeleteImage(host ImageHost) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/upload/:publicId"

		publicID := strings.TrimSpace(c.Param("publicId"))
		if !images.ValidPublicID(publicID) {
			respondWithError(c, http.StatusBadRequest, route, images.ErrInvalidPublicID.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := host.Delete(ctx, publicID); err != nil {
			if errors.Is(err, images.ErrNotConfigured) {
				respondWithError(c, http.StatusServiceUnavailable, route, err.Error())
				return
			}
			respondInternal(c, route, err)
			return
		}
		respondMessage(c, "image deleted", nil)
	}
}

/*
=======================
  HELPERS
=======================
*/

func readImage(c *gin.Context) ([]byte, error) {
	file, err := c.FormFile(uploadField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, images.ErrTooLarge
		}
		return nil, errImageRequired
	}
	if file.Size > images.MaxUploadBytes {
		return nil, images.ErrTooLarge
	}

	in, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer in.Close()

	data, err := io.ReadAll(io.LimitReader(in, images.MaxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	if _, err := images.Detect(data); err != nil {
		return nil, err
	}
	return data, nil
}

func respondMultipartError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, images.ErrTooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": err.Error()})
}
