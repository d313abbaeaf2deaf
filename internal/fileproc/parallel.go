// Package fileproc runs per-file analysis functions across a worker pool.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/refract-sh/refract/pkg/parser"
)

// ProcessingError records a file that failed analysis.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// ProcessingErrors collects per-file failures from a batch. Safe for
// concurrent use.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends a failure to the collection.
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors reports whether any failures were collected.
func (e *ProcessingErrors) HasErrors() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed (first: %v)", len(e.Errors), e.Errors[0])
}

// DefaultWorkerMultiplier scales NumCPU to the worker count. Parsing mixes
// file I/O with CGO calls into tree-sitter, so 2x keeps cores busy.
const DefaultWorkerMultiplier = 2

// ProgressFunc is called once per completed file.
type ProgressFunc func()

// MapFiles runs fn over files in parallel, giving each call a dedicated
// parser, and returns results in arbitrary order together with any per-file
// failures. A canceled context stops scheduling new files; files already
// in flight finish, and each unprocessed file is recorded with the context
// error.
func MapFiles[T any](ctx context.Context, files []string, fn func(*parser.Parser, string) (T, error), onProgress ProgressFunc) ([]T, *ProcessingErrors) {
	if len(files) == 0 {
		return nil, nil
	}

	maxWorkers := runtime.NumCPU() * DefaultWorkerMultiplier
	results := make([]T, 0, len(files))
	errs := &ProcessingErrors{}
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(maxWorkers).WithContext(ctx)
	for _, path := range files {
		path := path
		p.Go(func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				errs.Add(path, ctx.Err())
				return ctx.Err()
			default:
			}

			psr := parser.New()
			defer psr.Close()

			result, err := fn(psr, path)
			if onProgress != nil {
				onProgress()
			}
			if err != nil {
				// one bad file never stops the batch
				errs.Add(path, err)
				return nil
			}

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}
	_ = p.Wait() // context errors are already in errs

	if !errs.HasErrors() {
		return results, nil
	}
	return results, errs
}
