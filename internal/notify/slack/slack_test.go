package slack

import (
	"context"
	"fmt"
	"sync"
	"testing"

	slackapi "github.com/slack-go/slack"

	"github.com/jspencer/fieldlink/internal/models"
	"github.com/jspencer/fieldlink/internal/notify"
)

type mockClient struct {
	mu       sync.Mutex
	channels []string
	options  [][]slackapi.MsgOption
	err      error
}

func (m *mockClient) PostMessageContext(_ context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", "", m.err
	}
	m.channels = append(m.channels, channelID)
	m.options = append(m.options, options)
	return channelID, "ts", nil
}

func TestNew_RequiresToken(t *testing.T) {
	if _, err := New(Opts{ChannelID: "C1"}); err == nil {
		t.Fatal("expected error for missing token, got nil")
	}
}

func TestNew_RequiresChannel(t *testing.T) {
	if _, err := New(Opts{Client: &mockClient{}}); err == nil {
		t.Fatal("expected error for missing channel, got nil")
	}
}

func TestIncomingJob_PostsToChannel(t *testing.T) {
	client := &mockClient{}
	n, err := New(Opts{Client: client, ChannelID: "C42"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := n.IncomingJob(context.Background(), &models.Job{ID: 3, Problem: "no spark"}); err != nil {
		t.Fatalf("IncomingJob: %v", err)
	}
	if len(client.channels) != 1 || client.channels[0] != "C42" {
		t.Errorf("channels = %v, want one post to C42", client.channels)
	}
}

func TestSend_ErrorPropagates(t *testing.T) {
	client := &mockClient{err: fmt.Errorf("channel_not_found")}
	n, _ := New(Opts{Client: client, ChannelID: "C42"})
	if err := n.Disconnected(context.Background()); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestToAttachment(t *testing.T) {
	att := toAttachment(notify.FormatIncomingJob(&models.Job{ID: 5, Problem: "no spark", VehicleType: "van"}))
	if att.Title != "New job offer #5" {
		t.Errorf("title = %q", att.Title)
	}
	if len(att.Fields) != 1 {
		t.Fatalf("len(fields) = %d, want 1", len(att.Fields))
	}
	if att.Fields[0].Title != "Vehicle" || !att.Fields[0].Short {
		t.Errorf("field = %+v, want short Vehicle field", att.Fields[0])
	}
}
