package report

import (
	"context"
	"fmt"
	"strings"

	"dqcheck/internal/validation"
)

// Summary is what a Notifier is told about a run.
type Summary struct {
	RunID      string
	Suite      string
	Success    bool
	Evaluated  int
	Successful int
	Rows       int
	Dataset    string
	// Failed describes the unsuccessful checks in suite order.
	Failed []string
	// SiteURL links to the suite page when the site is published.
	SiteURL string
}

// Summarize builds the notification Summary of res.
func Summarize(res *validation.Result, siteURL string) Summary {
	s := Summary{
		RunID:      res.RunID,
		Suite:      res.Suite,
		Success:    res.Success,
		Evaluated:  res.Statistics.Evaluated,
		Successful: res.Statistics.Successful,
		Rows:       res.Dataset.Rows,
		Dataset:    res.Dataset.Location,
	}
	for _, c := range res.Failed() {
		line := c.Description
		if c.Reason != "" {
			line += " (" + string(c.Reason) + ")"
		}
		s.Failed = append(s.Failed, line)
	}
	if siteURL != "" {
		s.SiteURL = strings.TrimRight(siteURL, "/") + "/" + SuitePath(res.Suite, ".html")
	}
	return s
}

// Notifier delivers a Summary to people, e.g. a chat channel.
type Notifier interface {
	Notify(ctx context.Context, s Summary) error
}

// NotifyOn selects which runs trigger a notification.
type NotifyOn string

const (
	NotifyAll     NotifyOn = "all"
	NotifyFailure NotifyOn = "failure"
	NotifySuccess NotifyOn = "success"
)

// ParseNotifyOn accepts all, failure or success; empty means all.
func ParseNotifyOn(s string) (NotifyOn, error) {
	switch NotifyOn(strings.ToLower(strings.TrimSpace(s))) {
	case "", NotifyAll:
		return NotifyAll, nil
	case NotifyFailure:
		return NotifyFailure, nil
	case NotifySuccess:
		return NotifySuccess, nil
	}
	return "", fmt.Errorf("report: notify_on must be all, failure or success, got %q", s)
}

func (p NotifyOn) matches(success bool) bool {
	switch p {
	case NotifyFailure:
		return !success
	case NotifySuccess:
		return success
	default:
		return true
	}
}

// Notification is the sink that forwards runs to a Notifier.
type Notification struct {
	notifier Notifier
	policy   NotifyOn
	siteURL  string
}

// NewNotification notifies n about runs matching policy. siteURL, when set,
// is the public base URL of the html site.
func NewNotification(n Notifier, policy NotifyOn, siteURL string) *Notification {
	return &Notification{notifier: n, policy: policy, siteURL: siteURL}
}

func (n *Notification) Name() string { return "notification" }

func (n *Notification) Emit(ctx context.Context, res *validation.Result) error {
	if !n.policy.matches(res.Success) {
		return nil
	}
	return n.notifier.Notify(ctx, Summarize(res, n.siteURL))
}
