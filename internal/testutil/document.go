package testutil

import (
	"time"

	"debtman/internal/core"
)

// SampleDocument builds a small consistent document for userID: two clients,
// two debts, one message, all references intact.
func SampleDocument(userID string, now time.Time) *core.Document {
	doc := core.NewDocument(userID, now)
	doc.Clients = []core.Client{
		{ID: "c1", Name: "Ana Torres", ContactNumber: "555-0101",
			Email: "ana@example.com", CreatedAt: now, UpdatedAt: now},
		{ID: "c2", Name: "Luis Vega", ContactNumber: "555-0102",
			CreatedAt: now, UpdatedAt: now},
	}
	doc.Debts = []core.Debt{
		{ID: "d1", ClientID: "c1", Amount: 150.0, DueDate: now.AddDate(0, 1, 0),
			Status: core.DebtPending, CreatedAt: now, UpdatedAt: now},
		{ID: "d2", ClientID: "c2", Amount: 89.5, DueDate: now.AddDate(0, 0, -3),
			Status: core.DebtOverdue, CreatedAt: now, UpdatedAt: now},
	}
	doc.CollectionHistory = []core.Message{
		{ID: "m1", ClientID: "c2", DebtID: "d2", SentAt: now,
			MessageType: "reminder", DeliveryStatus: core.DeliverySent,
			Body: "Your payment is overdue.", TemplateID: "t-overdue"},
	}
	return doc
}
