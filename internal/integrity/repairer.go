package integrity

import (
	"fmt"
	"time"

	"debtman/internal/core"
)

// RepairAction records one applied repair.
type RepairAction struct {
	Issue  Issue
	Action string
}

// Repairer deterministically fixes the subset of validator findings that are
// safe to fix: orphan removal, id de-duplication, and defaults for optional
// fields. It never touches required identity fields.
type Repairer struct {
	userID string
	clock  core.Clock
	idgen  core.IDGenerator
	logger core.Logger
}

// NewRepairer creates a repairer for one user's documents.
func NewRepairer(userID string, clock core.Clock, idgen core.IDGenerator, logger core.Logger) *Repairer {
	return &Repairer{userID: userID, clock: clock, idgen: idgen, logger: logger}
}

// Repair applies fixes for the given findings on a deep copy of doc and
// returns the repaired document with the list of applied actions. Findings
// that cannot be applied are logged and skipped; the rest still apply. The
// caller is expected to re-run validation before treating the repair as
// complete.
func (r *Repairer) Repair(doc *core.Document, issues []Issue) (*core.Document, []RepairAction) {
	repaired := doc.Clone()
	var applied []RepairAction

	// Orphaned records flagged by reference findings get dropped. Dropping a
	// debt also drops the messages hanging off it, so one repair pass leaves
	// no new orphans behind.
	dropDebts := make(map[string]bool)
	dropMessages := make(map[string]bool)
	for _, issue := range issues {
		if issue.Type != IssueReference {
			continue
		}
		switch issue.Record {
		case RecordDebt:
			dropDebts[issue.RecordID] = true
		case RecordMessage:
			dropMessages[issue.RecordID] = true
		default:
			r.logger.Warn("repair skipped", "record", issue.Record, "id", issue.RecordID,
				"reason", "reference repair only drops debts and messages")
		}
	}

	if len(dropDebts) > 0 {
		kept := repaired.Debts[:0]
		for _, d := range repaired.Debts {
			if dropDebts[d.ID] {
				applied = append(applied, RepairAction{
					Issue:  findIssue(issues, IssueReference, RecordDebt, d.ID),
					Action: fmt.Sprintf("removed orphaned debt %q", d.ID),
				})
				// Cascade: messages for this debt are orphans now too.
				for _, m := range repaired.CollectionHistory {
					if m.DebtID == d.ID {
						dropMessages[m.ID] = true
					}
				}
				continue
			}
			kept = append(kept, d)
		}
		repaired.Debts = kept
	}

	if len(dropMessages) > 0 {
		kept := repaired.CollectionHistory[:0]
		for _, m := range repaired.CollectionHistory {
			if dropMessages[m.ID] {
				applied = append(applied, RepairAction{
					Issue:  findIssue(issues, IssueReference, RecordMessage, m.ID),
					Action: fmt.Sprintf("removed orphaned message %q", m.ID),
				})
				continue
			}
			kept = append(kept, m)
		}
		repaired.CollectionHistory = kept
	}

	// Duplicate ids: the first occurrence keeps its id, every later one gets
	// a fresh id derived from the user, the clock, and a random fragment.
	duplicateClientIDs := flaggedIDs(issues, IssueDuplicate, RecordClient)
	duplicateDebtIDs := flaggedIDs(issues, IssueDuplicate, RecordDebt)

	if len(duplicateClientIDs) > 0 || len(duplicateDebtIDs) > 0 {
		existing := collectIDs(repaired)

		seen := make(map[string]bool)
		for i := range repaired.Clients {
			id := repaired.Clients[i].ID
			if !seen[id] {
				seen[id] = true
				continue
			}
			if !duplicateClientIDs[id] {
				continue
			}
			fresh := r.freshID(existing)
			applied = append(applied, RepairAction{
				Issue:  findIssue(issues, IssueDuplicate, RecordClient, id),
				Action: fmt.Sprintf("reassigned duplicate client id %q to %q", id, fresh),
			})
			repaired.Clients[i].ID = fresh
		}

		seen = make(map[string]bool)
		for i := range repaired.Debts {
			id := repaired.Debts[i].ID
			if !seen[id] {
				seen[id] = true
				continue
			}
			if !duplicateDebtIDs[id] {
				continue
			}
			fresh := r.freshID(existing)
			applied = append(applied, RepairAction{
				Issue:  findIssue(issues, IssueDuplicate, RecordDebt, id),
				Action: fmt.Sprintf("reassigned duplicate debt id %q to %q", id, fresh),
			})
			repaired.Debts[i].ID = fresh
		}
	}

	// Schema findings: optional and non-identity fields get safe defaults;
	// identity fields are reported, never fixed.
	now := r.clock.Now()
	for _, issue := range issues {
		if issue.Type != IssueSchema {
			continue
		}
		switch issue.Field {
		case "id", "clientId", "debtId":
			r.logger.Warn("repair skipped", "record", issue.Record, "id", issue.RecordID,
				"field", issue.Field, "reason", "identity fields are never auto-repaired")
		case "createdAt":
			if fixCreatedAt(repaired, issue, now) {
				applied = append(applied, RepairAction{
					Issue:  issue,
					Action: fmt.Sprintf("defaulted missing creation timestamp on %s %q", issue.Record, issue.RecordID),
				})
			}
		case "dueDate":
			if fixDueDate(repaired, issue, now) {
				applied = append(applied, RepairAction{
					Issue:  issue,
					Action: fmt.Sprintf("defaulted missing due date on debt %q", issue.RecordID),
				})
			}
		default:
			r.logger.Warn("repair skipped", "record", issue.Record, "id", issue.RecordID,
				"field", issue.Field, "reason", "no safe default for this field")
		}
	}

	repaired.Metadata.LastModifiedAt = now
	return repaired, applied
}

// freshID derives a new unique id and registers it in existing.
func (r *Repairer) freshID(existing map[string]bool) string {
	for {
		fragment := r.idgen.New()
		if len(fragment) > 8 {
			fragment = fragment[:8]
		}
		id := fmt.Sprintf("%s-%d-%s", r.userID, r.clock.Now().UnixNano(), fragment)
		if !existing[id] {
			existing[id] = true
			return id
		}
	}
}

func collectIDs(doc *core.Document) map[string]bool {
	ids := make(map[string]bool, len(doc.Clients)+len(doc.Debts)+len(doc.CollectionHistory))
	for _, c := range doc.Clients {
		ids[c.ID] = true
	}
	for _, d := range doc.Debts {
		ids[d.ID] = true
	}
	for _, m := range doc.CollectionHistory {
		ids[m.ID] = true
	}
	return ids
}

func flaggedIDs(issues []Issue, t IssueType, record string) map[string]bool {
	ids := make(map[string]bool)
	for _, issue := range issues {
		if issue.Type == t && issue.Record == record {
			ids[issue.RecordID] = true
		}
	}
	return ids
}

func findIssue(issues []Issue, t IssueType, record, id string) Issue {
	for _, issue := range issues {
		if issue.Type == t && issue.Record == record && issue.RecordID == id {
			return issue
		}
	}
	return Issue{Type: t, Record: record, RecordID: id}
}

func fixCreatedAt(doc *core.Document, issue Issue, now time.Time) bool {
	switch issue.Record {
	case RecordClient:
		for i := range doc.Clients {
			if doc.Clients[i].ID == issue.RecordID && doc.Clients[i].CreatedAt.IsZero() {
				doc.Clients[i].CreatedAt = now
				if doc.Clients[i].UpdatedAt.IsZero() {
					doc.Clients[i].UpdatedAt = now
				}
				return true
			}
		}
	case RecordDebt:
		for i := range doc.Debts {
			if doc.Debts[i].ID == issue.RecordID && doc.Debts[i].CreatedAt.IsZero() {
				doc.Debts[i].CreatedAt = now
				if doc.Debts[i].UpdatedAt.IsZero() {
					doc.Debts[i].UpdatedAt = now
				}
				return true
			}
		}
	}
	return false
}

func fixDueDate(doc *core.Document, issue Issue, now time.Time) bool {
	for i := range doc.Debts {
		if doc.Debts[i].ID == issue.RecordID && doc.Debts[i].DueDate.IsZero() {
			doc.Debts[i].DueDate = now
			return true
		}
	}
	return false
}
