// Package blob loads collected weather documents stored one JSON blob per
// collection under a "<location>/" prefix, either from a local directory or
// from a Google Cloud Storage bucket.
package blob

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/couchcryptid/solar-forecast-etl/internal/domain"
)

// Source lists and reads raw documents for one location.
type Source interface {
	Load(ctx context.Context, location string) ([]domain.RawDocument, error)
}

// objectStore is the minimal listing/reading surface shared by the backends.
type objectStore interface {
	list(ctx context.Context, prefix string) ([]string, error)
	read(ctx context.Context, name string) ([]byte, error)
}

// prefixSource loads every .json object under "<location>/" in name order.
type prefixSource struct {
	store  objectStore
	logger *slog.Logger
}

func (s *prefixSource) Load(ctx context.Context, location string) ([]domain.RawDocument, error) {
	location = strings.Trim(location, "/")
	if location == "" {
		return nil, fmt.Errorf("load documents: location is required")
	}
	prefix := location + "/"

	names, err := s.store.list(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	sort.Strings(names)

	var docs []domain.RawDocument
	for _, name := range names {
		if path.Ext(name) != ".json" {
			continue
		}
		data, err := s.store.read(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		batch, err := domain.DecodeDocuments(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		docs = append(docs, batch...)
	}

	s.logger.Info("documents loaded", "location", location, "blobs", len(names), "documents", len(docs))
	return docs, nil
}

// LoadAll concatenates the documents of every location in order.
func LoadAll(ctx context.Context, src Source, locations []string) ([]domain.RawDocument, error) {
	var docs []domain.RawDocument
	for _, loc := range locations {
		batch, err := src.Load(ctx, loc)
		if err != nil {
			return nil, err
		}
		docs = append(docs, batch...)
	}
	return docs, nil
}
