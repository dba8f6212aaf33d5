/*
Package notify pushes operational alerts to the field crew.

PURPOSE:
  Two scheduled checks keep the depot honest: a pressure-inspection
  deadline sweep and a daily did-anyone-actually-lend-anything check.
  Both produce a plain-text message and hand it to a Notifier.

KEY CONCEPTS:
  - Notifier: one-method push interface; the LINE Messaging API client
    is the production implementation, a log writer the fallback
  - Messages are Japanese plain text, expired items marked with ●

SEE ALSO:
  - inventory/maintenance.go: produces the inspection-due list
  - api/scheduler.go: drives the periodic checks
*/
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/smtp"
	"strings"
	"time"
)

// Notifier delivers one text message to the configured channel.
type Notifier interface {
	Push(ctx context.Context, message string) error
}

// =============================================================================
// LINE MESSAGING API CLIENT
// =============================================================================

const linePushEndpoint = "https://api.line.me/v2/bot/message/push"

// LineNotifier pushes to a LINE group through the Messaging API.
type LineNotifier struct {
	Token   string
	GroupID string
	Client  *http.Client
}

func NewLineNotifier(token, groupID string) *LineNotifier {
	return &LineNotifier{
		Token:   token,
		GroupID: groupID,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type linePush struct {
	To       string        `json:"to"`
	Messages []lineMessage `json:"messages"`
}

type lineMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (n *LineNotifier) Push(ctx context.Context, message string) error {
	payload, err := json.Marshal(linePush{
		To:       n.GroupID,
		Messages: []lineMessage{{Type: "text", Text: message}},
	})
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, linePushEndpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.Token)

	resp, err := n.Client.Do(req)
	if err != nil {
		return fmt.Errorf("push to LINE: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("LINE push rejected: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

// =============================================================================
// LOG FALLBACK
// =============================================================================

// LogNotifier writes messages to the process log. Used when no LINE
// credentials are configured so scheduled checks still leave a trace.
type LogNotifier struct{}

func (LogNotifier) Push(_ context.Context, message string) error {
	log.Printf("[Notify] %s", message)
	return nil
}

// =============================================================================
// EMAIL
// =============================================================================

// EmailNotifier sends the message body to a recipient list through an
// unauthenticated SMTP relay.
type EmailNotifier struct {
	Addr    string // relay host:port
	From    string
	To      []string
	Subject string
}

func (n EmailNotifier) Push(_ context.Context, message string) error {
	if n.Addr == "" || len(n.To) == 0 {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(n.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", n.Subject)
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(message)

	if err := smtp.SendMail(n.Addr, nil, n.From, n.To, []byte(b.String())); err != nil {
		return fmt.Errorf("send alert mail: %w", err)
	}
	return nil
}

// =============================================================================
// FAN-OUT
// =============================================================================

// Multi delivers one message through every wrapped notifier. Delivery
// is attempted on all channels even when one fails; the first error is
// returned.
type Multi []Notifier

func (m Multi) Push(ctx context.Context, message string) error {
	var first error
	for _, n := range m {
		if err := n.Push(ctx, message); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// =============================================================================
// MESSAGE BUILDERS
// =============================================================================

// DueItem is one tank in an inspection alert.
type DueItem struct {
	ID    string
	Label string
}

// BuildInspectionAlert renders the deadline sweep message. Returns ""
// when there is nothing to report.
func BuildInspectionAlert(items []DueItem) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("【耐圧検査 期限通知】\n")
	fmt.Fprintf(&b, "対象: %d本\n\n", len(items))
	for _, item := range items {
		fmt.Fprintf(&b, "%s %s\n", item.ID, item.Label)
	}
	b.WriteString("\n検査の手配をお願いします。")
	return b.String()
}

// BuildNoLendingAlert renders the daily zero-activity message.
func BuildNoLendingAlert(day time.Time) string {
	return fmt.Sprintf("【貸出確認】\n%s は貸出の記録がありません。入力漏れがないか確認してください。", day.Format("2006/01/02"))
}
