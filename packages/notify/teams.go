package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TeamsNotifier sends Adaptive Cards to a Microsoft Teams webhook.
type TeamsNotifier struct {
	webhookURL string
	client     *http.Client
}

func NewTeamsNotifier(webhookURL string) *TeamsNotifier {
	return &TeamsNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TeamsNotifier) Name() string {
	return "teams"
}

type teamsMessage struct {
	Type        string      `json:"type"`
	Attachments []teamsCard `json:"attachments"`
}

type teamsCard struct {
	ContentType string           `json:"contentType"`
	ContentURL  *string          `json:"contentUrl"`
	Content     teamsCardContent `json:"content"`
}

type teamsCardContent struct {
	Schema  string       `json:"$schema"`
	Type    string       `json:"type"`
	Version string       `json:"version"`
	Body    []teamsBlock `json:"body"`
}

type teamsBlock struct {
	Type      string      `json:"type"`
	Size      string      `json:"size,omitempty"`
	Weight    string      `json:"weight,omitempty"`
	Text      string      `json:"text,omitempty"`
	Color     string      `json:"color,omitempty"`
	Wrap      bool        `json:"wrap,omitempty"`
	Facts     []teamsFact `json:"facts,omitempty"`
	Spacing   string      `json:"spacing,omitempty"`
	Separator bool        `json:"separator,omitempty"`
}

type teamsFact struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// Notify sends a notification to Microsoft Teams
func (t *TeamsNotifier) Notify(summary *RunSummary) error {
	color := "good"
	switch {
	case summary.Failed > 0:
		color = "attention"
	case summary.Drifted > 0:
		color = "warning"
	}

	facts := []teamsFact{
		{Title: "Steps", Value: fmt.Sprintf("%d in %d suite(s)", summary.TotalSteps, summary.Suites)},
		{Title: "Passed", Value: fmt.Sprintf("%d", summary.Passed)},
		{Title: "Failed", Value: fmt.Sprintf("%d", summary.Failed)},
		{Title: "Skipped", Value: fmt.Sprintf("%d", summary.Skipped)},
		{Title: "Status drift", Value: fmt.Sprintf("%d", summary.Drifted)},
		{Title: "Duration", Value: summary.Duration.Round(time.Millisecond).String()},
	}
	if summary.Environment != "" {
		facts = append(facts, teamsFact{Title: "Environment", Value: summary.Environment})
	}

	body := []teamsBlock{
		{Type: "TextBlock", Size: "Large", Weight: "Bolder", Text: headline(summary), Color: color, Wrap: true},
		{Type: "FactSet", Facts: facts, Separator: true, Spacing: "Medium"},
	}

	for i, f := range summary.Failures {
		if i == maxListedFailures {
			body = append(body, teamsBlock{
				Type: "TextBlock",
				Text: fmt.Sprintf("…and %d more", len(summary.Failures)-maxListedFailures),
				Wrap: true,
			})
			break
		}
		text := fmt.Sprintf("**%s › %s** [%s]", f.Suite, f.Step, f.Outcome)
		for _, err := range f.Errors {
			text += "\n\n" + err
		}
		body = append(body, teamsBlock{Type: "TextBlock", Text: text, Wrap: true, Separator: i == 0})
	}

	msg := teamsMessage{
		Type: "message",
		Attachments: []teamsCard{{
			ContentType: "application/vnd.microsoft.card.adaptive",
			Content: teamsCardContent{
				Schema:  "http://adaptivecards.io/schemas/adaptive-card.json",
				Type:    "AdaptiveCard",
				Version: "1.2",
				Body:    body,
			},
		}},
	}

	return t.send(msg)
}

func (t *TeamsNotifier) send(msg teamsMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal Teams message: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, t.webhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Teams notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("teams webhook returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
