package api

import (
	"context"
	"net/http"
)

const metadataPath = "/metadata.json"

// Get returns the metadata of an image. Images without metadata yield an
// empty map.
func (s MetadataService) Get(ctx context.Context, identifier string) (map[string]any, error) {
	return s.do(ctx, http.MethodGet, s.imagePath(identifier, metadataPath), nil)
}

// Edit merges fields into the existing metadata.
func (s MetadataService) Edit(ctx context.Context, identifier string, fields map[string]any) (map[string]any, error) {
	return writeMetadata(ctx, s, http.MethodPost, identifier, fields)
}

// Replace overwrites all metadata with fields.
func (s MetadataService) Replace(ctx context.Context, identifier string, fields map[string]any) (map[string]any, error) {
	return writeMetadata(ctx, s, http.MethodPut, identifier, fields)
}

// Delete removes all metadata from the image.
func (s MetadataService) Delete(ctx context.Context, identifier string) error {
	_, err := s.do(ctx, http.MethodDelete, s.imagePath(identifier, metadataPath), nil)
	return err
}

func writeMetadata(ctx context.Context, r Requester, method, identifier string, fields map[string]any) (map[string]any, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	return r.do(ctx, method, r.imagePath(identifier, metadataPath), fields)
}
