package metadata

import (
	"context"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/quest-chains/qc-indexer/internal/adapter"
	"github.com/quest-chains/qc-indexer/internal/logger"
)

// detectMimeType detects the MIME type of the token media. It prefers
// animation_url over image_url and returns nil if no URL is available or
// detection fails.
func detectMimeType(
	ctx context.Context,
	httpClient adapter.HTTPClient,
	animationURL, imageURL *string,
) *string {
	var targetURL string
	if animationURL != nil && *animationURL != "" {
		targetURL = *animationURL
	} else if imageURL != nil && *imageURL != "" {
		targetURL = *imageURL
	} else {
		return nil
	}

	content, err := httpClient.GetBytes(ctx, targetURL)
	if err != nil {
		logger.WarnCtx(ctx, "failed to download content for mime type detection",
			zap.String("url", targetURL),
			zap.Error(err))
		return nil
	}

	mtype := mimetype.Detect(content)
	if mtype == nil {
		return nil
	}

	mimeTypeStr := mtype.String()
	return &mimeTypeStr
}
