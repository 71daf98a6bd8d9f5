package report

import (
	"context"
	"fmt"
	"strings"

	"dqcheck/internal/datasource/httpds"

	"github.com/dustin/go-humanize"
)

// maxListedFailures bounds the failures listed in one message.
const maxListedFailures = 10

// Slack posts to a Slack-compatible incoming webhook.
type Slack struct {
	webhookURL string
	client     *httpds.Client
}

// NewSlack posts to webhookURL through client.
func NewSlack(webhookURL string, client *httpds.Client) *Slack {
	return &Slack{webhookURL: webhookURL, client: client}
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackMessage struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

func (s *Slack) Notify(ctx context.Context, sum Summary) error {
	if err := s.client.PostJSON(ctx, s.webhookURL, slackPayload(sum)); err != nil {
		return fmt.Errorf("slack: %w", err)
	}
	return nil
}

func slackPayload(sum Summary) slackMessage {
	emoji, word := ":white_check_mark:", "passed"
	if !sum.Success {
		emoji, word = ":x:", "failed"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s* suite `%s`\n", emoji, word, sum.Suite)
	fmt.Fprintf(&b, "%d of %d expectations met on %s rows", sum.Successful, sum.Evaluated, humanize.Comma(int64(sum.Rows)))
	if sum.Dataset != "" {
		fmt.Fprintf(&b, " of `%s`", sum.Dataset)
	}
	b.WriteString("\n")
	for i, f := range sum.Failed {
		if i == maxListedFailures {
			fmt.Fprintf(&b, "• … and %d more\n", len(sum.Failed)-maxListedFailures)
			break
		}
		fmt.Fprintf(&b, "• %s\n", f)
	}
	fmt.Fprintf(&b, "Run `%s`", sum.RunID)

	msg := slackMessage{
		Text:   fmt.Sprintf("Validation of suite %s %s", sum.Suite, word),
		Blocks: []slackBlock{{Type: "section", Text: &slackText{Type: "mrkdwn", Text: b.String()}}},
	}
	if sum.SiteURL != "" {
		msg.Blocks = append(msg.Blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: fmt.Sprintf("<%s|View results>", sum.SiteURL)},
		})
	}
	return msg
}
