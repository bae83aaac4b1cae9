package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"chat-relay/internal/bridge"
)

// ImageFetcher is the fetch-by-identifier slice of the bridge API.
type ImageFetcher interface {
	GetFile(ctx context.Context, fileID string) (bridge.File, error)
	DownloadFile(ctx context.Context, filePath string) ([]byte, error)
}

// imageProxy resolves a bridge file id and streams the bytes back.
// Any failure is a 404 to the client, never a crash.
func imageProxy(fetcher ImageFetcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileID := c.Param("file_id")
		ctx := c.Request.Context()

		f, err := fetcher.GetFile(ctx, fileID)
		if err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Str("file_id", fileID).Msg("image resolve failed")
			c.Status(http.StatusNotFound)
			return
		}
		data, err := fetcher.DownloadFile(ctx, f.FilePath)
		if err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Str("file_id", fileID).Msg("image download failed")
			c.Status(http.StatusNotFound)
			return
		}
		c.Data(http.StatusOK, contentTypeFor(f.FilePath, data), data)
	}
}

func contentTypeFor(path string, data []byte) string {
	switch {
	case strings.HasSuffix(path, ".png"):
		return "image/png"
	case strings.HasSuffix(path, ".jpg"), strings.HasSuffix(path, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(path, ".gif"):
		return "image/gif"
	}
	if mt := mimetype.Detect(data); strings.HasPrefix(mt.String(), "image/") {
		return mt.String()
	}
	return "image/jpeg"
}
