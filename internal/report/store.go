package report

import (
	"context"
	"encoding/json"
	"fmt"

	"dqcheck/internal/storage"
	"dqcheck/internal/validation"
)

// Store persists runs in a SQL result store.
type Store struct {
	repo storage.Repository
}

// NewStore writes to repo. The caller owns repo and its schema.
func NewStore(repo storage.Repository) *Store { return &Store{repo: repo} }

func (s *Store) Name() string { return "store" }

func (s *Store) Emit(ctx context.Context, res *validation.Result) error {
	run, checks, err := Records(res)
	if err != nil {
		return err
	}
	return s.repo.SaveRun(ctx, run, checks)
}

// Records converts res into result store rows.
func Records(res *validation.Result) (storage.RunRecord, []storage.CheckRecord, error) {
	run := storage.RunRecord{
		RunID:              res.RunID,
		Suite:              res.Suite,
		Success:            res.Success,
		ResultFormat:       string(res.Format),
		StartedAt:          res.StartedAt,
		FinishedAt:         res.FinishedAt,
		DatasetLocation:    res.Dataset.Location,
		DatasetFingerprint: res.Dataset.Fingerprint,
		RowCount:           res.Dataset.Rows,
		ColumnCount:        res.Dataset.Columns,
		Evaluated:          res.Statistics.Evaluated,
		Successful:         res.Statistics.Successful,
		SuccessPercent:     res.Statistics.SuccessPercent,
	}

	checks := make([]storage.CheckRecord, 0, len(res.Results))
	for _, c := range res.Results {
		kwargs, err := json.Marshal(c.Kwargs)
		if err != nil {
			return run, nil, fmt.Errorf("encode kwargs of check %d: %w", c.Index, err)
		}
		var observed string
		if c.ObservedValue != nil {
			b, err := json.Marshal(c.ObservedValue)
			if err != nil {
				return run, nil, fmt.Errorf("encode observed value of check %d: %w", c.Index, err)
			}
			observed = string(b)
		}
		checks = append(checks, storage.CheckRecord{
			RunID:           res.RunID,
			Index:           c.Index,
			ExpectationType: string(c.Type),
			Target:          c.Target,
			Description:     c.Description,
			Success:         c.Success,
			Reason:          string(c.Reason),
			Message:         c.Message,
			Kwargs:          string(kwargs),
			Observed:        observed,
		})
	}
	return run, checks, nil
}
