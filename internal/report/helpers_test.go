package report

import (
	"time"

	"dqcheck/internal/expectation"
	"dqcheck/internal/validation"
)

func sampleResult(suite string, success bool) *validation.Result {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rowCount := expectation.RowCountEquals(15)
	notNull := expectation.ColumnNotNull("rating")

	res := &validation.Result{
		RunID:      "run-" + suite,
		Suite:      suite,
		Success:    success,
		Format:     validation.FormatComplete,
		StartedAt:  start,
		FinishedAt: start.Add(42 * time.Millisecond),
		Dataset:    validation.DatasetInfo{Location: "testdata/movies.csv", Fingerprint: "abc123", Rows: 15, Columns: 4},
		Results: []validation.CheckResult{
			{
				Index: 0, Expectation: rowCount, Type: rowCount.Kind, Target: rowCount.Target(),
				Kwargs: rowCount.Parameters(), Description: rowCount.String(),
				Success: true, ObservedValue: 15,
			},
		},
		Statistics: validation.Statistics{Evaluated: 1, Successful: 1, SuccessPercent: 100},
	}
	if !success {
		res.Results = append(res.Results, validation.CheckResult{
			Index: 1, Expectation: notNull, Type: notNull.Kind, Target: notNull.Target(),
			Kwargs: notNull.Parameters(), Description: notNull.String(),
			Reason: validation.ReasonUnknownColumn, Message: `column "rating" not found`,
		})
		res.Statistics = validation.Statistics{Evaluated: 2, Successful: 1, Unsuccessful: 1, SuccessPercent: 50}
	}
	return res
}
