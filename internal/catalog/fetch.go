package catalog

import (
	"context"

	"github.com/mmcdole/crate/internal/domain"
)

// fetchAll pages through a remote listing until total is reached or a page
// comes back empty.
func fetchAll[T any](
	ctx context.Context,
	fetch func(ctx context.Context, offset, limit int) ([]T, int, error),
	chunkSize int,
	onProgress domain.ProgressFunc,
) ([]T, error) {
	if chunkSize <= 0 {
		chunkSize = defaultPageSize
	}

	var all []T
	offset := 0

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		items, total, err := fetch(ctx, offset, chunkSize)
		if err != nil {
			return nil, err
		}

		all = append(all, items...)

		if onProgress != nil {
			onProgress(len(all), total)
		}

		if len(all) >= total || len(items) == 0 {
			break
		}
		offset += len(items)
	}

	return all, nil
}
