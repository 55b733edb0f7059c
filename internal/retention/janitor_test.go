package retention

import (
	"context"
	"testing"
	"time"

	"github.com/framerhq/framer/internal/config"
	"github.com/framerhq/framer/internal/store"
	"github.com/framerhq/framer/pkg/models"
)

func TestSweep_AbandonsStaleThenPurges(t *testing.T) {
	s := store.NewMemoryStore("")
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	conv := &models.Conversation{
		ID:      models.NewConversationID(),
		Owner:   "alice",
		Purpose: models.PurposeAuthoring,
		Status:  models.ConversationActive,
		State:   models.NewConversationState(),
	}
	s.CreateConversation(ctx, conv)

	j := NewJanitor(s, nil, config.RetentionConfig{
		StaleAfter: time.Millisecond,
		PurgeAfter: time.Millisecond,
		Schedule:   "@hourly",
	})

	time.Sleep(5 * time.Millisecond)
	stats := j.Sweep(ctx)
	if stats.Abandoned != 1 {
		t.Fatalf("Sweep() abandoned = %d, want 1", stats.Abandoned)
	}
	got, _ := s.GetConversation(ctx, conv.ID)
	if got.Status != models.ConversationAbandoned {
		t.Errorf("Status = %q, want abandoned", got.Status)
	}

	// The second pass purges it once it ages past the purge window.
	time.Sleep(5 * time.Millisecond)
	stats = j.Sweep(ctx)
	if stats.Purged != 1 {
		t.Fatalf("Sweep() purged = %d, want 1", stats.Purged)
	}
	if _, err := s.GetConversation(ctx, conv.ID); err == nil {
		t.Error("conversation still present after purge")
	}
}

func TestSweep_LeavesFreshConversationsAlone(t *testing.T) {
	s := store.NewMemoryStore("")
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	conv := &models.Conversation{
		ID:      models.NewConversationID(),
		Owner:   "alice",
		Purpose: models.PurposeAuthoring,
		Status:  models.ConversationActive,
		State:   models.NewConversationState(),
	}
	s.CreateConversation(ctx, conv)

	j := NewJanitor(s, nil, config.RetentionConfig{
		StaleAfter: time.Hour,
		PurgeAfter: 24 * time.Hour,
		Schedule:   "@hourly",
	})

	stats := j.Sweep(ctx)
	if stats.Abandoned != 0 || stats.Purged != 0 {
		t.Errorf("Sweep() = %+v, want no action on fresh conversation", stats)
	}
	got, _ := s.GetConversation(ctx, conv.ID)
	if got.Status != models.ConversationActive {
		t.Errorf("Status = %q, want active", got.Status)
	}
}

func TestJanitor_StartStop(t *testing.T) {
	s := store.NewMemoryStore("")
	t.Cleanup(func() { s.Close() })

	j := NewJanitor(s, nil, config.RetentionConfig{
		StaleAfter: time.Hour,
		PurgeAfter: 24 * time.Hour,
		Schedule:   "@hourly",
	})
	if err := j.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	j.Stop()
}

func TestJanitor_BadScheduleRejected(t *testing.T) {
	s := store.NewMemoryStore("")
	t.Cleanup(func() { s.Close() })

	j := NewJanitor(s, nil, config.RetentionConfig{Schedule: "not a cron expr"})
	if err := j.Start(); err == nil {
		t.Error("Start() with invalid schedule: error = nil, want error")
		j.Stop()
	}
}
