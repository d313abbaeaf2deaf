package fileproc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/refract-sh/refract/pkg/parser"
)

func TestMapFilesCollectsResults(t *testing.T) {
	files := []string{"a.go", "b.go", "c.go"}

	results, errs := MapFiles(context.Background(), files, func(p *parser.Parser, path string) (string, error) {
		if p == nil {
			t.Error("expected a dedicated parser per call")
		}
		return "saw:" + path, nil
	}, nil)

	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	sort.Strings(results)
	if results[0] != "saw:a.go" || results[2] != "saw:c.go" {
		t.Errorf("unexpected results: %v", results)
	}
}

func TestMapFilesEmptyInput(t *testing.T) {
	results, errs := MapFiles(context.Background(), nil, func(p *parser.Parser, path string) (int, error) {
		return 0, nil
	}, nil)

	if results != nil || errs != nil {
		t.Errorf("got (%v, %v), want (nil, nil)", results, errs)
	}
}

func TestMapFilesCollectsErrorsWithoutStopping(t *testing.T) {
	files := []string{"good.go", "bad.go", "also-good.go"}

	results, errs := MapFiles(context.Background(), files, func(p *parser.Parser, path string) (string, error) {
		if path == "bad.go" {
			return "", errors.New("unreadable")
		}
		return path, nil
	}, nil)

	if len(results) != 2 {
		t.Errorf("got %d results, want 2: %v", len(results), results)
	}
	if errs == nil || !errs.HasErrors() {
		t.Fatal("expected collected errors")
	}
	if len(errs.Errors) != 1 || errs.Errors[0].Path != "bad.go" {
		t.Errorf("unexpected errors: %v", errs.Errors)
	}
}

func TestMapFilesCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files := make([]string, 8)
	for i := range files {
		files[i] = fmt.Sprintf("%d.go", i)
	}

	results, errs := MapFiles(ctx, files, func(p *parser.Parser, path string) (string, error) {
		return path, nil
	}, nil)

	if errs == nil || !errs.HasErrors() {
		t.Fatal("expected context errors for unprocessed files")
	}
	for _, pe := range errs.Errors {
		if !errors.Is(pe.Err, context.Canceled) {
			t.Errorf("%s: got %v, want context.Canceled", pe.Path, pe.Err)
		}
	}
	if len(results)+len(errs.Errors) != len(files) {
		t.Errorf("results %d + errors %d != files %d", len(results), len(errs.Errors), len(files))
	}
}

func TestMapFilesProgressCallback(t *testing.T) {
	files := []string{"a.go", "b.go", "c.go", "d.go"}

	var ticks atomic.Int64
	_, errs := MapFiles(context.Background(), files, func(p *parser.Parser, path string) (int, error) {
		return 0, nil
	}, func() {
		ticks.Add(1)
	})

	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if got := ticks.Load(); got != int64(len(files)) {
		t.Errorf("got %d progress ticks, want %d", got, len(files))
	}
}

func TestProcessingErrorsMessages(t *testing.T) {
	errs := &ProcessingErrors{}
	if errs.HasErrors() {
		t.Error("new collection should have no errors")
	}
	if errs.Error() != "no errors" {
		t.Errorf("got %q", errs.Error())
	}

	errs.Add("a.go", errors.New("boom"))
	if errs.Error() != "a.go: boom" {
		t.Errorf("got %q", errs.Error())
	}

	errs.Add("b.go", errors.New("bang"))
	if got := errs.Error(); got != "2 files failed (first: a.go: boom)" {
		t.Errorf("got %q", got)
	}
}
