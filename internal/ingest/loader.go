package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"sync"

	ferrors "github.com/framekit/framekit/internal/errors"
	"github.com/framekit/framekit/internal/frame"
	"github.com/framekit/framekit/internal/storage"
	"github.com/framekit/framekit/pkg/types"
	"github.com/golang/snappy"
	"golang.org/x/sync/semaphore"
)

// Loader reads CSV objects from object storage into frames. Objects whose
// key ends in .sz are snappy framed streams; .snappy objects are a single
// snappy block.
type Loader struct {
	store       storage.ObjectStorage
	delimiter   rune
	concurrency int
}

// NewLoader creates a loader. concurrency bounds the number of objects
// LoadAll reads at once.
func NewLoader(store storage.ObjectStorage, delimiter rune, concurrency int) *Loader {
	if concurrency < 1 {
		concurrency = 1
	}
	if delimiter == 0 {
		delimiter = ','
	}
	return &Loader{
		store:       store,
		delimiter:   delimiter,
		concurrency: concurrency,
	}
}

// Load reads one object.
func (l *Loader) Load(ctx context.Context, objectPath string, kinds []types.Kind) (*frame.Frame, error) {
	rc, err := l.store.Open(ctx, objectPath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r, err := decode(objectPath, rc)
	if err != nil {
		return nil, err
	}

	f, err := ReadCSV(r, l.delimiter, kinds)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", objectPath, err)
	}
	return f, nil
}

// LoadAll reads several objects concurrently and merges them in the order
// given. Every object must carry a header and the same kinds. The first
// failing object, in that order, decides the returned error.
func (l *Loader) LoadAll(ctx context.Context, objectPaths []string, kinds []types.Kind) (*frame.Frame, error) {
	if len(objectPaths) == 0 {
		return nil, ferrors.NewIngestError(ferrors.CodeEmptySource, "no objects to load", nil)
	}

	paths := objectPaths

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make([]*frame.Frame, len(paths))
	errs := make([]error, len(paths))
	sem := semaphore.NewWeighted(int64(l.concurrency))
	var wg sync.WaitGroup

	for i, p := range paths {
		if err := sem.Acquire(ctx, 1); err != nil {
			errs[i] = err
			break
		}

		wg.Add(1)
		go func(i int, p string) {
			defer sem.Release(1)
			defer wg.Done()

			f, err := l.Load(ctx, p, kinds)
			if err != nil {
				errs[i] = err
				cancel()
				return
			}
			frames[i] = f
		}(i, p)
	}

	wg.Wait()

	if err := firstError(errs); err != nil {
		return nil, err
	}

	out := frames[0]
	for i := 1; i < len(frames); i++ {
		merged, err := frame.Merge(out, frames[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", paths[i], err)
		}
		out = merged
	}

	log.Printf("ingest: loaded %d objects (%d rows)", len(paths), out.NumRows())
	return out, nil
}

// LoadPrefix lists every object under prefix and loads them with LoadAll in
// key order.
func (l *Loader) LoadPrefix(ctx context.Context, prefix string, kinds []types.Kind) (*frame.Frame, error) {
	paths, err := l.store.ListObjects(ctx, prefix)
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return l.LoadAll(ctx, paths, kinds)
}

// firstError prefers a real failure over the cancellations it caused.
func firstError(errs []error) error {
	var cancelled error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) {
			if cancelled == nil {
				cancelled = err
			}
			continue
		}
		return err
	}
	return cancelled
}

func decode(objectPath string, r io.Reader) (io.Reader, error) {
	switch {
	case strings.HasSuffix(objectPath, ".sz"):
		return snappy.NewReader(r), nil
	case strings.HasSuffix(objectPath, ".snappy"):
		compressed, err := io.ReadAll(r)
		if err != nil {
			return nil, ferrors.NewStorageError(ferrors.CodeDownloadFailed,
				fmt.Sprintf("reading object %q", objectPath), err)
		}
		data, err := snappy.Decode(nil, compressed)
		if err != nil {
			return nil, ferrors.NewIngestError(ferrors.CodeParseError,
				fmt.Sprintf("decompressing %q", objectPath), err)
		}
		return bytes.NewReader(data), nil
	default:
		return r, nil
	}
}
