package storage

import (
	"context"
	"errors"

	"github.com/rendis/yelptap/internal/model"
)

// Sink persists a finished run.
type Sink interface {
	SaveRun(ctx context.Context, run model.Run, entries []model.Entry) error
}

// MultiSink saves to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) SaveRun(ctx context.Context, run model.Run, entries []model.Entry) error {
	var errs []error
	for _, s := range m {
		if err := s.SaveRun(ctx, run, entries); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
