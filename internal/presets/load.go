package presets

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/amdu/internal/models"
	"golang.org/x/sync/errgroup"
)

// LoadError is a preset file that could not be loaded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load preset %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadResult holds the presets that loaded and the files that did not, both in argument order.
type LoadResult struct {
	Sets   []models.KeepSet
	Errors []*LoadError
}

// Err joins the per-file errors, or returns nil when every file loaded.
func (r *LoadResult) Err() error {
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// LoadFiles parses paths concurrently. A bad file never prevents the others from loading; the
// returned error is only set when ctx ends first.
func LoadFiles(ctx context.Context, paths []string, logger *log.Logger) (*LoadResult, error) {
	sets := make([]*models.KeepSet, len(paths))
	errs := make([]*LoadError, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			set, err := ParseFile(path, logger)
			if err != nil {
				errs[i] = &LoadError{Path: path, Err: err}
				return nil
			}
			sets[i] = &set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &LoadResult{}
	for i := range paths {
		if sets[i] != nil {
			result.Sets = append(result.Sets, *sets[i])
		}
		if errs[i] != nil {
			result.Errors = append(result.Errors, errs[i])
		}
	}
	return result, nil
}
