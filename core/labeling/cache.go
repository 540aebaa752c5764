package labeling

import (
	"context"
	"fmt"
	"os"
	"strings"

	"loraset/logger"
	"loraset/model"
)

// CodesStore remembers audio codes between runs.
type CodesStore interface {
	// GetCodes returns the cached codes and whether they were found.
	GetCodes(ctx context.Context, key string) (string, bool, error)
	SetCodes(ctx context.Context, key, codes string) error
}

// CachingEncoder skips re-encoding files whose content has not changed since
// their codes were stored.
type CachingEncoder struct {
	next  AudioEncoder
	store CodesStore
}

// NewCachingEncoder wraps next with store.
func NewCachingEncoder(next AudioEncoder, store CodesStore) *CachingEncoder {
	return &CachingEncoder{next: next, store: store}
}

// CodesKey identifies one version of an audio file.
func CodesKey(path string, size, modUnixNano int64) string {
	return fmt.Sprintf("%s:%d:%d", path, size, modUnixNano)
}

func (c *CachingEncoder) ConvertToCodes(ctx context.Context, audioPath string) (string, error) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return c.next.ConvertToCodes(ctx, audioPath)
	}
	key := CodesKey(audioPath, info.Size(), info.ModTime().UnixNano())

	codes, ok, err := c.store.GetCodes(ctx, key)
	if err != nil {
		logger.Warn("codes cache read failed", logger.String("path", audioPath), logger.ErrorField(err))
	} else if ok && codes != "" {
		logger.Debug("codes cache hit", logger.String("path", audioPath))
		return codes, nil
	}

	codes, err = c.next.ConvertToCodes(ctx, audioPath)
	if err != nil || codes == "" || strings.HasPrefix(codes, model.FailureMark) {
		return codes, err
	}
	if err := c.store.SetCodes(ctx, key, codes); err != nil {
		logger.Warn("codes cache write failed", logger.String("path", audioPath), logger.ErrorField(err))
	}
	return codes, nil
}
