package core

import "time"

// DocumentVersion is the schema version written into new documents.
const DocumentVersion = "1.0"

// DebtStatus is the lifecycle state of a debt.
type DebtStatus string

const (
	DebtPending DebtStatus = "pending"
	DebtPaid    DebtStatus = "paid"
	DebtOverdue DebtStatus = "overdue"
)

// Valid reports whether s is a known debt status.
func (s DebtStatus) Valid() bool {
	switch s {
	case DebtPending, DebtPaid, DebtOverdue:
		return true
	}
	return false
}

// DeliveryStatus is the delivery state of a collection message.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// Valid reports whether s is a known delivery status.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryPending, DeliverySent, DeliveryDelivered, DeliveryFailed:
		return true
	}
	return false
}

// Client is a debtor tracked by the dashboard.
type Client struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ContactNumber string    `json:"contactNumber"`
	Email         string    `json:"email,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Debt is an amount owed by a client.
type Debt struct {
	ID          string     `json:"id"`
	ClientID    string     `json:"clientId"`
	Amount      float64    `json:"amount"`
	DueDate     time.Time  `json:"dueDate"`
	Status      DebtStatus `json:"status"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Message is one collection message sent (or queued) for a debt.
type Message struct {
	ID             string         `json:"id"`
	ClientID       string         `json:"clientId"`
	DebtID         string         `json:"debtId"`
	SentAt         time.Time      `json:"sentAt"`
	MessageType    string         `json:"messageType"`
	DeliveryStatus DeliveryStatus `json:"deliveryStatus"`
	Body           string         `json:"body"`
	TemplateID     string         `json:"templateId"`
	ErrorDetail    string         `json:"errorDetail,omitempty"`
}

// Settings holds per-user dashboard preferences. The storage core treats it
// as opaque apart from round-tripping it.
type Settings struct {
	BusinessName    string `json:"businessName,omitempty"`
	ReminderDays    int    `json:"reminderDays,omitempty"`
	DefaultTemplate string `json:"defaultTemplate,omitempty"`
	Currency        string `json:"currency,omitempty"`
}

// Metadata describes the document itself.
type Metadata struct {
	Version        string    `json:"version"`
	LastModifiedAt time.Time `json:"lastModifiedAt"`
	UserID         string    `json:"userId"`
	BackupCount    int64     `json:"backupCount"`
}

// Document is the single source of truth for one user's dataset.
type Document struct {
	Clients           []Client  `json:"clients"`
	Debts             []Debt    `json:"debts"`
	CollectionHistory []Message `json:"collectionHistory"`
	Settings          Settings  `json:"settings"`
	Metadata          Metadata  `json:"metadata"`
}

// NewDocument creates an empty document for a user.
func NewDocument(userID string, now time.Time) *Document {
	return &Document{
		Clients:           []Client{},
		Debts:             []Debt{},
		CollectionHistory: []Message{},
		Metadata: Metadata{
			Version:        DocumentVersion,
			LastModifiedAt: now,
			UserID:         userID,
		},
	}
}

// Clone returns a deep copy of the document. Repairs operate on copies so a
// failed repair never leaves the caller's document half-modified.
func (d *Document) Clone() *Document {
	c := &Document{
		Clients:           make([]Client, len(d.Clients)),
		Debts:             make([]Debt, len(d.Debts)),
		CollectionHistory: make([]Message, len(d.CollectionHistory)),
		Settings:          d.Settings,
		Metadata:          d.Metadata,
	}
	copy(c.Clients, d.Clients)
	copy(c.Debts, d.Debts)
	copy(c.CollectionHistory, d.CollectionHistory)
	return c
}
