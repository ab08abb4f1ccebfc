package notify

import (
	"context"
	"strings"
	"testing"

	"github.com/jspencer/fieldlink/internal/models"
)

func TestFormatIncomingJob(t *testing.T) {
	job := &models.Job{
		ID:          5,
		Problem:     "dead battery",
		VehicleType: "sedan",
		Price:       80,
		Address:     "5th and Main",
	}
	msg := FormatIncomingJob(job)

	if !strings.Contains(msg.Title, "#5") {
		t.Errorf("title %q does not carry the job id", msg.Title)
	}
	if msg.Body != "dead battery" {
		t.Errorf("body = %q, want problem text", msg.Body)
	}
	if len(msg.Fields) != 3 {
		t.Fatalf("len(fields) = %d, want 3", len(msg.Fields))
	}
	if msg.Fields[1].Value != "80.00" {
		t.Errorf("price field = %q, want 80.00", msg.Fields[1].Value)
	}
}

func TestFormatIncomingJob_SparseJob(t *testing.T) {
	msg := FormatIncomingJob(&models.Job{ID: 9})
	if len(msg.Fields) != 0 {
		t.Errorf("len(fields) = %d, want 0 for a sparse job", len(msg.Fields))
	}
}

func TestFormatDisconnected_Severity(t *testing.T) {
	if got := FormatDisconnected().Severity; got != "warning" {
		t.Errorf("severity = %q, want warning", got)
	}
	if got := FormatReconnected().Severity; got != "success" {
		t.Errorf("reconnected severity = %q, want success", got)
	}
}

func TestFormatSummary(t *testing.T) {
	msg := FormatSummary(Summary{Period: "daily", Completed: 4, Cancelled: 1, Earnings: 312.5})
	if len(msg.Fields) != 3 {
		t.Fatalf("len(fields) = %d, want 3", len(msg.Fields))
	}
	if msg.Fields[2].Value != "312.50" {
		t.Errorf("earnings field = %q, want 312.50", msg.Fields[2].Value)
	}
}

func TestNoop_AllCallsSucceed(t *testing.T) {
	var n Notifier = Noop{}
	ctx := context.Background()
	if err := n.IncomingJob(ctx, &models.Job{ID: 1}); err != nil {
		t.Errorf("IncomingJob: %v", err)
	}
	if err := n.JobInvalid(ctx, 1); err != nil {
		t.Errorf("JobInvalid: %v", err)
	}
	if err := n.Disconnected(ctx); err != nil {
		t.Errorf("Disconnected: %v", err)
	}
	if err := n.ClearDisconnected(ctx); err != nil {
		t.Errorf("ClearDisconnected: %v", err)
	}
	if err := n.Digest(ctx, Summary{}); err != nil {
		t.Errorf("Digest: %v", err)
	}
}
