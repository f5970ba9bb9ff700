// Package integrity schema-checks and repairs the stored document: it
// verifies every record, cross-checks references over the document's small
// relational graph, and deterministically fixes what can be fixed.
package integrity

import (
	"fmt"
	"time"

	"debtman/internal/core"
)

// Severity ranks validation findings. Critical and high findings make the
// document invalid; medium and low do not.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// IssueType categorizes a finding.
type IssueType string

const (
	IssueSchema      IssueType = "schema"
	IssueReference   IssueType = "reference"
	IssueDuplicate   IssueType = "duplicate"
	IssueConsistency IssueType = "consistency"
)

// Record kinds named in findings.
const (
	RecordClient   = "client"
	RecordDebt     = "debt"
	RecordMessage  = "message"
	RecordMetadata = "metadata"
)

// Issue is one validation finding.
type Issue struct {
	Type     IssueType
	Severity Severity
	Record   string
	RecordID string
	Field    string
	Message  string
}

// Stats summarizes a validation pass for observability.
type Stats struct {
	Clients           int
	Debts             int
	Messages          int
	OrphanedDebts     int
	OrphanedMessages  int
	DuplicateClientIDs int
	DuplicateDebtIDs   int
}

// ValidationResult is the outcome of one validation pass.
type ValidationResult struct {
	IsValid  bool
	Errors   []Issue
	Warnings []Issue
	Stats    Stats
}

// stalenessWindow is how old a document may get before it reads as stale.
// Staleness is a warning, not corruption.
const stalenessWindow = 7 * 24 * time.Hour

// fieldRule describes one schema check for a record kind. Rules are data:
// the generic checker below consumes them, so a new record kind extends the
// validator without touching its internals.
type fieldRule[T any] struct {
	field    string
	severity Severity
	optional bool
	ok       func(T) bool
	message  string
}

// checkRecords runs every rule over every record of one kind.
func checkRecords[T any](kind string, records []T, id func(T) string, rules []fieldRule[T]) []Issue {
	var issues []Issue
	for _, rec := range records {
		for _, rule := range rules {
			if rule.ok(rec) {
				continue
			}
			issues = append(issues, Issue{
				Type:     IssueSchema,
				Severity: rule.severity,
				Record:   kind,
				RecordID: id(rec),
				Field:    rule.field,
				Message:  rule.message,
			})
		}
	}
	return issues
}

var clientRules = []fieldRule[core.Client]{
	{field: "id", severity: SeverityCritical,
		ok: func(c core.Client) bool { return c.ID != "" }, message: "client is missing its id"},
	{field: "name", severity: SeverityHigh,
		ok: func(c core.Client) bool { return c.Name != "" }, message: "client is missing a name"},
	{field: "contactNumber", severity: SeverityHigh,
		ok: func(c core.Client) bool { return c.ContactNumber != "" }, message: "client is missing a contact number"},
	{field: "createdAt", severity: SeverityMedium,
		ok: func(c core.Client) bool { return !c.CreatedAt.IsZero() }, message: "client has no creation timestamp"},
}

var debtRules = []fieldRule[core.Debt]{
	{field: "id", severity: SeverityCritical,
		ok: func(d core.Debt) bool { return d.ID != "" }, message: "debt is missing its id"},
	{field: "clientId", severity: SeverityHigh,
		ok: func(d core.Debt) bool { return d.ClientID != "" }, message: "debt is missing its client reference"},
	{field: "amount", severity: SeverityMedium,
		ok: func(d core.Debt) bool { return d.Amount >= 0 }, message: "debt amount is negative"},
	{field: "status", severity: SeverityHigh,
		ok: func(d core.Debt) bool { return d.Status.Valid() }, message: "debt status is not a known value"},
	{field: "dueDate", severity: SeverityMedium,
		ok: func(d core.Debt) bool { return !d.DueDate.IsZero() }, message: "debt has no due date"},
}

var messageRules = []fieldRule[core.Message]{
	{field: "id", severity: SeverityCritical,
		ok: func(m core.Message) bool { return m.ID != "" }, message: "message is missing its id"},
	{field: "clientId", severity: SeverityHigh,
		ok: func(m core.Message) bool { return m.ClientID != "" }, message: "message is missing its client reference"},
	{field: "debtId", severity: SeverityHigh,
		ok: func(m core.Message) bool { return m.DebtID != "" }, message: "message is missing its debt reference"},
	{field: "deliveryStatus", severity: SeverityHigh,
		ok: func(m core.Message) bool { return m.DeliveryStatus.Valid() }, message: "message delivery status is not a known value"},
}

// Validator checks a document's records, references, and consistency.
type Validator struct {
	clock core.Clock

	// expectedUserID, when set, hard-rejects documents owned by another user.
	expectedUserID string
}

// NewValidator creates a validator using clock for staleness checks.
func NewValidator(clock core.Clock) *Validator {
	return &Validator{clock: clock}
}

// NewValidatorForUser creates a validator that also enforces document
// ownership.
func NewValidatorForUser(clock core.Clock, userID string) *Validator {
	return &Validator{clock: clock, expectedUserID: userID}
}

// Validate runs all checks in order: per-record schema, referential,
// duplicates, consistency. Critical and high severities flip IsValid.
func (v *Validator) Validate(doc *core.Document) ValidationResult {
	result := ValidationResult{
		Stats: Stats{
			Clients:  len(doc.Clients),
			Debts:    len(doc.Debts),
			Messages: len(doc.CollectionHistory),
		},
	}

	// 1. Schema checks per record type.
	result.Errors = append(result.Errors, checkRecords(RecordClient, doc.Clients,
		func(c core.Client) string { return c.ID }, clientRules)...)
	result.Errors = append(result.Errors, checkRecords(RecordDebt, doc.Debts,
		func(d core.Debt) string { return d.ID }, debtRules)...)
	result.Errors = append(result.Errors, checkRecords(RecordMessage, doc.CollectionHistory,
		func(m core.Message) string { return m.ID }, messageRules)...)

	// 2. Referential checks: debts -> clients, messages -> clients and debts.
	clientIDs := make(map[string]bool, len(doc.Clients))
	for _, c := range doc.Clients {
		clientIDs[c.ID] = true
	}
	debtIDs := make(map[string]bool, len(doc.Debts))
	for _, d := range doc.Debts {
		debtIDs[d.ID] = true
	}

	for _, d := range doc.Debts {
		if d.ClientID != "" && !clientIDs[d.ClientID] {
			result.Stats.OrphanedDebts++
			result.Errors = append(result.Errors, Issue{
				Type:     IssueReference,
				Severity: SeverityHigh,
				Record:   RecordDebt,
				RecordID: d.ID,
				Field:    "clientId",
				Message:  fmt.Sprintf("debt references missing client %q", d.ClientID),
			})
		}
	}

	for _, m := range doc.CollectionHistory {
		orphaned := false
		if m.ClientID != "" && !clientIDs[m.ClientID] {
			orphaned = true
			result.Errors = append(result.Errors, Issue{
				Type:     IssueReference,
				Severity: SeverityHigh,
				Record:   RecordMessage,
				RecordID: m.ID,
				Field:    "clientId",
				Message:  fmt.Sprintf("message references missing client %q", m.ClientID),
			})
		}
		if m.DebtID != "" && !debtIDs[m.DebtID] {
			orphaned = true
			result.Errors = append(result.Errors, Issue{
				Type:     IssueReference,
				Severity: SeverityHigh,
				Record:   RecordMessage,
				RecordID: m.ID,
				Field:    "debtId",
				Message:  fmt.Sprintf("message references missing debt %q", m.DebtID),
			})
		}
		if orphaned {
			result.Stats.OrphanedMessages++
		}
	}

	// 3. Duplicate checks: ids within clients and debts, contact numbers
	// across clients (warning only).
	result.Stats.DuplicateClientIDs = countDuplicates(doc.Clients,
		func(c core.Client) string { return c.ID })
	result.Errors = append(result.Errors, duplicateIssues(RecordClient, doc.Clients,
		func(c core.Client) string { return c.ID })...)

	result.Stats.DuplicateDebtIDs = countDuplicates(doc.Debts,
		func(d core.Debt) string { return d.ID })
	result.Errors = append(result.Errors, duplicateIssues(RecordDebt, doc.Debts,
		func(d core.Debt) string { return d.ID })...)

	seenContacts := make(map[string]string, len(doc.Clients))
	for _, c := range doc.Clients {
		if c.ContactNumber == "" {
			continue
		}
		if first, ok := seenContacts[c.ContactNumber]; ok {
			result.Warnings = append(result.Warnings, Issue{
				Type:     IssueDuplicate,
				Severity: SeverityLow,
				Record:   RecordClient,
				RecordID: c.ID,
				Field:    "contactNumber",
				Message:  fmt.Sprintf("contact number shared with client %q", first),
			})
			continue
		}
		seenContacts[c.ContactNumber] = c.ID
	}

	// 4. Consistency checks.
	for _, c := range doc.Clients {
		if !c.CreatedAt.IsZero() && !c.UpdatedAt.IsZero() && c.CreatedAt.After(c.UpdatedAt) {
			result.Errors = append(result.Errors, Issue{
				Type:     IssueConsistency,
				Severity: SeverityMedium,
				Record:   RecordClient,
				RecordID: c.ID,
				Field:    "createdAt",
				Message:  "created after last update",
			})
		}
	}
	for _, d := range doc.Debts {
		if !d.CreatedAt.IsZero() && !d.UpdatedAt.IsZero() && d.CreatedAt.After(d.UpdatedAt) {
			result.Errors = append(result.Errors, Issue{
				Type:     IssueConsistency,
				Severity: SeverityMedium,
				Record:   RecordDebt,
				RecordID: d.ID,
				Field:    "createdAt",
				Message:  "created after last update",
			})
		}
	}

	if v.expectedUserID != "" && doc.Metadata.UserID != v.expectedUserID {
		result.Errors = append(result.Errors, Issue{
			Type:     IssueConsistency,
			Severity: SeverityCritical,
			Record:   RecordMetadata,
			RecordID: doc.Metadata.UserID,
			Field:    "userId",
			Message:  "document belongs to a different user",
		})
	}

	if !doc.Metadata.LastModifiedAt.IsZero() &&
		v.clock.Now().Sub(doc.Metadata.LastModifiedAt) > stalenessWindow {
		result.Warnings = append(result.Warnings, Issue{
			Type:     IssueConsistency,
			Severity: SeverityLow,
			Record:   RecordMetadata,
			Field:    "lastModifiedAt",
			Message:  "document has not been modified in over 7 days",
		})
	}

	result.IsValid = true
	for _, issue := range result.Errors {
		if issue.Severity == SeverityCritical || issue.Severity == SeverityHigh {
			result.IsValid = false
			break
		}
	}

	return result
}

// duplicateIssues flags every occurrence of an id after the first.
func duplicateIssues[T any](kind string, records []T, id func(T) string) []Issue {
	seen := make(map[string]bool, len(records))
	var issues []Issue
	for _, rec := range records {
		rid := id(rec)
		if rid == "" {
			continue
		}
		if seen[rid] {
			issues = append(issues, Issue{
				Type:     IssueDuplicate,
				Severity: SeverityHigh,
				Record:   kind,
				RecordID: rid,
				Field:    "id",
				Message:  fmt.Sprintf("duplicate %s id %q", kind, rid),
			})
			continue
		}
		seen[rid] = true
	}
	return issues
}

func countDuplicates[T any](records []T, id func(T) string) int {
	seen := make(map[string]bool, len(records))
	count := 0
	for _, rec := range records {
		rid := id(rec)
		if rid == "" {
			continue
		}
		if seen[rid] {
			count++
			continue
		}
		seen[rid] = true
	}
	return count
}
