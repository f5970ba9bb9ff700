package core

import (
	"testing"
	"time"
)

func TestNewDocument(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	doc := NewDocument("u1", now)

	if doc.Metadata.UserID != "u1" {
		t.Errorf("UserID = %q, want %q", doc.Metadata.UserID, "u1")
	}
	if doc.Metadata.Version != DocumentVersion {
		t.Errorf("Version = %q, want %q", doc.Metadata.Version, DocumentVersion)
	}
	if doc.Metadata.BackupCount != 0 {
		t.Errorf("BackupCount = %d, want 0", doc.Metadata.BackupCount)
	}
	if len(doc.Clients) != 0 || len(doc.Debts) != 0 || len(doc.CollectionHistory) != 0 {
		t.Error("new document should have empty collections")
	}
}

func TestDocumentClone(t *testing.T) {
	now := time.Now()
	doc := NewDocument("u1", now)
	doc.Clients = []Client{{ID: "c1", Name: "Ana"}}
	doc.Debts = []Debt{{ID: "d1", ClientID: "c1", Status: DebtPending}}

	clone := doc.Clone()
	clone.Clients[0].Name = "changed"
	clone.Debts = append(clone.Debts, Debt{ID: "d2"})

	if doc.Clients[0].Name != "Ana" {
		t.Error("mutating the clone changed the original client")
	}
	if len(doc.Debts) != 1 {
		t.Error("mutating the clone changed the original debts")
	}
}

func TestStatusEnums(t *testing.T) {
	if !DebtOverdue.Valid() || DebtStatus("bogus").Valid() {
		t.Error("DebtStatus.Valid() misclassified")
	}
	if !DeliveryFailed.Valid() || DeliveryStatus("bogus").Valid() {
		t.Error("DeliveryStatus.Valid() misclassified")
	}
}
