package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SlackNotifier sends notifications to Slack via webhook
type SlackNotifier struct {
	webhookURL string
	channel    string
	username   string
	iconEmoji  string
	client     *http.Client
}

// SlackOption is a functional option for SlackNotifier
type SlackOption func(*SlackNotifier)

// WithSlackChannel sets the Slack channel
func WithSlackChannel(channel string) SlackOption {
	return func(s *SlackNotifier) {
		s.channel = channel
	}
}

func WithSlackUsername(username string) SlackOption {
	return func(s *SlackNotifier) {
		s.username = username
	}
}

// NewSlackNotifier creates a new Slack notifier
func NewSlackNotifier(webhookURL string, opts ...SlackOption) *SlackNotifier {
	s := &SlackNotifier{
		webhookURL: webhookURL,
		username:   "shopspec",
		iconEmoji:  ":toolbox:",
		client:     &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *SlackNotifier) Name() string {
	return "slack"
}

type slackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text,omitempty"`
	Fields []slackField `json:"fields,omitempty"`
	Footer string       `json:"footer,omitempty"`
	TS     int64        `json:"ts,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// Notify sends a notification to Slack
func (s *SlackNotifier) Notify(summary *RunSummary) error {
	color := "good"
	emoji := ":white_check_mark:"
	switch {
	case summary.Failed > 0:
		color = "danger"
		emoji = ":x:"
	case summary.IsRecovery:
		emoji = ":tada:"
	case summary.Drifted > 0:
		color = "warning"
		emoji = ":warning:"
	}

	fields := []slackField{
		{Title: "Steps", Value: fmt.Sprintf("%d in %d suite(s)", summary.TotalSteps, summary.Suites), Short: true},
		{Title: "Passed", Value: fmt.Sprintf("%d", summary.Passed), Short: true},
		{Title: "Failed", Value: fmt.Sprintf("%d", summary.Failed), Short: true},
		{Title: "Duration", Value: summary.Duration.Round(time.Millisecond).String(), Short: true},
	}
	if summary.Drifted > 0 {
		fields = append(fields, slackField{Title: "Status drift", Value: fmt.Sprintf("%d", summary.Drifted), Short: true})
	}
	if summary.Environment != "" {
		fields = append(fields, slackField{Title: "Environment", Value: summary.Environment, Short: true})
	}

	msg := slackMessage{
		Channel:   s.channel,
		Username:  s.username,
		IconEmoji: s.iconEmoji,
		Attachments: []slackAttachment{{
			Color:  color,
			Title:  fmt.Sprintf("%s %s", emoji, headline(summary)),
			Text:   slackFailures(summary.Failures),
			Fields: fields,
			Footer: "shopspec",
			TS:     time.Now().Unix(),
		}},
	}

	return s.send(msg)
}

func slackFailures(failures []FailedStep) string {
	if len(failures) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("*Failed steps:*\n")
	for i, f := range failures {
		if i == maxListedFailures {
			fmt.Fprintf(&sb, "…and %d more\n", len(failures)-maxListedFailures)
			break
		}
		fmt.Fprintf(&sb, "• `%s › %s` [%s]\n", f.Suite, f.Step, f.Outcome)
		for _, err := range f.Errors {
			fmt.Fprintf(&sb, "    %s\n", err)
		}
	}
	return sb.String()
}

func (s *SlackNotifier) send(msg slackMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal Slack message: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.webhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Slack notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("slack webhook returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
