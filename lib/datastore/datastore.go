package datastore

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("cbslwatch.lib.datastore")

// Store owns the flat-file data directory the persisted families write
// into. files are plain csv/json so they stay inspectable and editable
// by hand.
type Store struct {
	root string
}

func NewStore(root string) (Store, error) {
	err := os.MkdirAll(root, 0755)
	if err != nil {
		return Store{}, err
	}
	return Store{root: root}, nil
}

func (s Store) Root() string {
	return s.root
}

func (s Store) Path(parts ...string) string {
	return filepath.Join(append([]string{s.root}, parts...)...)
}

// EnsureDir creates (if needed) and returns a directory under the
// store root. used by the families that keep one directory per
// upstream document.
func (s Store) EnsureDir(parts ...string) (string, error) {
	dir := s.Path(parts...)
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return "", err
	}
	return dir, nil
}

func (s Store) WriteFile(data []byte, parts ...string) error {
	path := s.Path(parts...)
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Codec serializes one cached family to and from its flat file.
type Codec[T any] struct {
	Encode func(w io.Writer, value T) error
	Decode func(r io.Reader) (T, error)
}

// LoadOrRefresh returns the cached rendition of file when it decodes
// and passes valid, otherwise runs refresh and overwrites the file
// wholesale. force skips the cache read entirely. staleness is decided
// by the valid predicate, never by file age.
//
// two processes refreshing the same cold file at once will both scrape
// and the later write wins. refreshes are idempotent so this only
// costs a redundant upstream visit.
func LoadOrRefresh[T any](
	ctx context.Context,
	s Store,
	file string,
	codec Codec[T],
	valid func(T) bool,
	force bool,
	refresh func(context.Context) (T, error),
) (T, error) {
	ctx, span := tracer.Start(ctx, "LoadOrRefresh")
	defer span.End()
	span.SetAttributes(
		attribute.String("file", file),
		attribute.Bool("force", force),
	)

	var zero T
	path := s.Path(file)

	if !force {
		cached, err := readThrough(path, codec)
		if err == nil && (valid == nil || valid(cached)) {
			span.AddEvent("cache hit")
			return cached, nil
		}
		if err != nil && !os.IsNotExist(err) {
			slog.WarnContext(ctx, "discarding unusable cache file", "file", path, "err", err)
		}
	}

	value, err := refresh(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh failed")
		return zero, err
	}

	err = writeThrough(path, codec, value)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write cache file")
		return zero, err
	}
	return value, nil
}

func readThrough[T any](path string, codec Codec[T]) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()
	return codec.Decode(f)
}

func writeThrough[T any](path string, codec Codec[T], value T) error {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = codec.Encode(f, value)
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
