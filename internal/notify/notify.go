// Package notify pushes worker-facing notifications to chat platforms
// (Slack, Discord) or nowhere at all.
//
// The notifier is an optional capability: when no platform is configured
// the agent runs with Noop and every call degrades to a no-op. All calls
// are best-effort; a failed notification is logged by the caller and never
// alters session state.
package notify

import (
	"context"
	"fmt"

	"github.com/jspencer/fieldlink/internal/models"
)

// Notifier is the worker-notification capability.
type Notifier interface {
	// IncomingJob announces a new job offer.
	IncomingJob(ctx context.Context, job *models.Job) error

	// JobInvalid withdraws an earlier offer announcement (offer expired,
	// taken by another worker, or rejected here).
	JobInvalid(ctx context.Context, jobID int64) error

	// Disconnected warns that the realtime link dropped and is retrying.
	Disconnected(ctx context.Context) error

	// ClearDisconnected withdraws the disconnect warning after the link
	// recovers or the worker triggers a manual reconnect.
	ClearDisconnected(ctx context.Context) error

	// Digest delivers a periodic summary of finished jobs.
	Digest(ctx context.Context, d Summary) error
}

// Summary is the digest payload.
type Summary struct {
	Period    string
	Completed int
	Cancelled int
	Earnings  float64
}

// Message is a platform-neutral notification, translated by each adapter
// into its native rich format.
type Message struct {
	Title    string
	Body     string
	Severity string // "info", "warning", "success"
	Color    string // sidebar color hint
	Fields   []Field
}

// Field is a key-value pair displayed alongside a message.
type Field struct {
	Name  string
	Value string
	Short bool
}

// Severity colors shared by the adapters.
const (
	ColorInfo    = "#439fe0"
	ColorWarning = "#e0a343"
	ColorSuccess = "#36a64f"
)

// FormatIncomingJob renders the offer announcement.
func FormatIncomingJob(job *models.Job) Message {
	msg := Message{
		Title:    fmt.Sprintf("New job offer #%d", job.ID),
		Body:     job.Problem,
		Severity: "info",
		Color:    ColorInfo,
	}
	if job.VehicleType != "" {
		msg.Fields = append(msg.Fields, Field{Name: "Vehicle", Value: job.VehicleType, Short: true})
	}
	if job.Price > 0 {
		msg.Fields = append(msg.Fields, Field{Name: "Price", Value: fmt.Sprintf("%.2f", job.Price), Short: true})
	}
	if job.Address != "" {
		msg.Fields = append(msg.Fields, Field{Name: "Location", Value: job.Address})
	}
	return msg
}

// FormatJobInvalid renders the offer withdrawal.
func FormatJobInvalid(jobID int64) Message {
	return Message{
		Title:    fmt.Sprintf("Offer #%d withdrawn", jobID),
		Body:     "The offer is no longer available.",
		Severity: "info",
		Color:    ColorInfo,
	}
}

// FormatDisconnected renders the link-down warning.
func FormatDisconnected() Message {
	return Message{
		Title:    "Dispatch link down",
		Body:     "Lost the realtime connection; reconnecting. New offers will not arrive until the link recovers.",
		Severity: "warning",
		Color:    ColorWarning,
	}
}

// FormatReconnected renders the link-recovered notice.
func FormatReconnected() Message {
	return Message{
		Title:    "Dispatch link restored",
		Body:     "Back online and receiving offers.",
		Severity: "success",
		Color:    ColorSuccess,
	}
}

// FormatSummary renders the digest.
func FormatSummary(d Summary) Message {
	return Message{
		Title:    fmt.Sprintf("Job summary (%s)", d.Period),
		Severity: "info",
		Color:    ColorInfo,
		Fields: []Field{
			{Name: "Completed", Value: fmt.Sprintf("%d", d.Completed), Short: true},
			{Name: "Cancelled", Value: fmt.Sprintf("%d", d.Cancelled), Short: true},
			{Name: "Earnings", Value: fmt.Sprintf("%.2f", d.Earnings), Short: true},
		},
	}
}

// Noop is the Notifier used when no platform is configured.
type Noop struct{}

func (Noop) IncomingJob(context.Context, *models.Job) error { return nil }
func (Noop) JobInvalid(context.Context, int64) error        { return nil }
func (Noop) Disconnected(context.Context) error             { return nil }
func (Noop) ClearDisconnected(context.Context) error        { return nil }
func (Noop) Digest(context.Context, Summary) error          { return nil }
