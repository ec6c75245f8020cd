package session

import (
	"testing"

	"github.com/voxloop/vox-core/core/backend"
)

func TestConversationAppendAssignsIdentityAndTimestamp(t *testing.T) {
	log := newConversationLog()

	entry := log.append(SenderUser, "hello", StatusSending)
	if entry.ID == "" {
		t.Fatalf("expected a generated entry id")
	}
	if entry.Timestamp.IsZero() {
		t.Fatalf("expected a timestamp on append")
	}
	if log.len() != 1 {
		t.Fatalf("expected one entry, got %d", log.len())
	}
}

func TestConversationUpdateLastPendingTargetsMostRecentSending(t *testing.T) {
	log := newConversationLog()
	log.append(SenderUser, "first", StatusSent)
	log.append(SenderUser, "second", StatusSending)

	updated := log.updateLastPending(func(entry *ConversationEntry) {
		entry.Status = StatusSent
		entry.Content = "second, transcribed"
	})
	if !updated {
		t.Fatalf("expected a pending entry to be found")
	}

	entries := log.Snapshot()
	if entries[1].Content != "second, transcribed" || entries[1].Status != StatusSent {
		t.Fatalf("pending entry not updated in place: %+v", entries[1])
	}
	if entries[0].Content != "first" {
		t.Fatalf("settled entry must not be touched: %+v", entries[0])
	}
}

func TestConversationUpdateLastPendingWithoutPendingIsNoop(t *testing.T) {
	log := newConversationLog()
	log.append(SenderUser, "settled", StatusSent)

	if log.updateLastPending(func(*ConversationEntry) {}) {
		t.Fatalf("expected no pending entry to match")
	}
}

func TestConversationSnapshotIsDetached(t *testing.T) {
	log := newConversationLog()
	log.append(SenderUser, "original", StatusSent)

	snapshot := log.Snapshot()
	snapshot[0].Content = "mutated"

	if log.Snapshot()[0].Content != "original" {
		t.Fatalf("snapshot mutation leaked into the log")
	}
}

func TestSettledExchangesExcludePendingAndFailed(t *testing.T) {
	log := newConversationLog()
	log.append(SenderUser, "kept question", StatusSent)
	log.append(SenderAssistant, "kept answer", StatusSent)
	log.append(SenderUser, "failed one", StatusError)
	log.append(SenderUser, "in flight", StatusSending)

	history := log.settledExchanges()
	if len(history) != 2 {
		t.Fatalf("expected two settled exchanges, got %d", len(history))
	}
	if history[0].Role != backend.RoleUser || history[1].Role != backend.RoleAssistant {
		t.Fatalf("roles not mapped: %+v", history)
	}
}
