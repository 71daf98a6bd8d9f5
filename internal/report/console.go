package report

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"dqcheck/internal/validation"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Console prints a table of checks and a one-line verdict.
type Console struct {
	w        io.Writer
	markdown bool
}

// NewConsole writes to w. markdown switches the table to GitHub markdown.
func NewConsole(w io.Writer, markdown bool) *Console {
	return &Console{w: w, markdown: markdown}
}

func (c *Console) Name() string { return "console" }

func (c *Console) Emit(_ context.Context, res *validation.Result) error {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Expectation", "Status", "Observed", "Reason"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, WidthMax: 60},
		{Number: 5, WidthMax: 60},
	})
	for _, r := range res.Results {
		t.AppendRow(table.Row{r.Index + 1, r.Description, status(r.Success), FormatObserved(r.ObservedValue), reason(r)})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d/%d", res.Statistics.Successful, res.Statistics.Evaluated), "", ""})

	var out string
	if c.markdown {
		out = t.RenderMarkdown()
	} else {
		out = t.Render()
	}
	if _, err := fmt.Fprintln(c.w, out); err != nil {
		return err
	}
	_, err := fmt.Fprintln(c.w, Verdict(res))
	return err
}

// Verdict is the one-line summary of a run.
func Verdict(res *validation.Result) string {
	word := "PASSED"
	if !res.Success {
		word = "FAILED"
	}
	return fmt.Sprintf("%s suite %q: %d of %d expectations met (%.1f%%) on %s rows in %s",
		word, res.Suite,
		res.Statistics.Successful, res.Statistics.Evaluated, res.Statistics.SuccessPercent,
		humanize.Comma(int64(res.Dataset.Rows)), res.Duration().Round(time.Millisecond))
}

func status(ok bool) string {
	if ok {
		return "pass"
	}
	return "FAIL"
}

func reason(r validation.CheckResult) string {
	if r.Success {
		return ""
	}
	if r.Reason != "" {
		return string(r.Reason) + ": " + r.Message
	}
	return r.Message
}

// FormatObserved renders an observed value for humans; nil is empty.
func FormatObserved(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int:
		return humanize.Comma(int64(x))
	case int64:
		return humanize.Comma(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
