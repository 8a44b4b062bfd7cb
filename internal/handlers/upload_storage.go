package handlers

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"oiko/internal/images"
)

// ImageHost stores and removes uploaded images.
type ImageHost interface {
	Upload(ctx context.Context, data []byte) (*images.Uploaded, error)
	Delete(ctx context.Context, publicID string) error
}

// safeDeleteUpload removes a hosted image and logs instead of failing. Ids
// that were not issued by the host are skipped.
func safeDeleteUpload(ctx context.Context, host ImageHost, publicID string) {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" || host == nil {
		return
	}
	if !images.ValidPublicID(publicID) {
		zap.L().Warn("skipping delete of foreign image id", zap.String("component", "uploads"), zap.String("publicId", publicID))
		return
	}
	if err := host.Delete(ctx, publicID); err != nil {
		zap.L().Warn("image delete failed", zap.String("component", "uploads"), zap.String("publicId", publicID), zap.Error(err))
	}
}
