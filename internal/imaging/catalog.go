package imaging

import (
	"context"
	"fmt"
	"log/slog"

	"imaging-backend/internal/storage"
	"imaging-backend/pkg/api"
)

// Catalog produces a metadata summary for every recognized imaging file in
// the store. The listing is recomputed on every call so it always reflects
// the current contents; a file that fails to parse is skipped and logged
// rather than aborting the scan.
func Catalog(ctx context.Context, store storage.ObjectStore) ([]api.ImageMetadata, error) {
	objects, err := store.ListObjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored images: %w", err)
	}

	var results []api.ImageMetadata
	for _, obj := range objects {
		if Classify(obj.Name) == KindUnsupported {
			continue
		}

		data, err := store.GetObject(ctx, obj.Name)
		if err != nil {
			slog.Error("unable to read stored image", "filename", obj.Name, "error", err)
			continue
		}

		meta, err := Validate(obj.Name, data)
		if err != nil {
			slog.Error("unable to parse stored image", "filename", obj.Name, "error", err)
			continue
		}

		results = append(results, meta)
	}

	return results, nil
}
