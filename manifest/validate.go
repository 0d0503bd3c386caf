package manifest

import (
	"context"
	"errors"
	"fmt"

	"github.com/stevecastle/stereoprep/sample"
	"github.com/stevecastle/stereoprep/storage"
)

// Drop is a record rejected by Validate.
type Drop struct {
	Index  int
	Entry  Entry
	Reason string
}

// Report is the outcome of Validate. Kept is the compacted manifest, with
// derived NIR paths written into each record.
type Report struct {
	Total   int
	Kept    []Entry
	Dropped []Drop
	Errors  int
}

// Validate checks that every path of every record exists and that the
// first disparity map decodes. Failing records are dropped and counted.
// Nothing is written; persisting Kept is up to the caller. onRecord, when
// set, is called once per record.
func Validate(ctx context.Context, store storage.Store, entries []Entry, onRecord func(index int, ok bool)) (Report, error) {
	rep := Report{Total: len(entries)}
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		err := validateEntry(ctx, store, e)
		if err != nil {
			rep.Errors++
			rep.Dropped = append(rep.Dropped, Drop{Index: i, Entry: e, Reason: err.Error()})
		} else {
			e.NIRPaths = e.NIR()
			rep.Kept = append(rep.Kept, e)
		}
		if onRecord != nil {
			onRecord(i, err == nil)
		}
	}
	return rep, nil
}

func validateEntry(ctx context.Context, store storage.Store, e Entry) error {
	if err := e.check(); err != nil {
		return err
	}
	var missing []error
	for _, p := range e.Paths() {
		if !store.Exists(ctx, p) {
			missing = append(missing, fmt.Errorf("missing %s", p))
		}
	}
	if len(missing) > 0 {
		return errors.Join(missing...)
	}
	if _, err := sample.Load(ctx, store, e.Disparity[0]); err != nil {
		return err
	}
	return nil
}
