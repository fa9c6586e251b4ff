// Package qc applies domain quality-control heuristics to validated
// document records.
//
// Rules are independent pure predicates evaluated in a fixed priority
// order: the first rule that fires determines the reported reason, while
// the flag is raised if any rule fires. Evaluation is deterministic and
// performs no I/O, so every rule is unit-testable in isolation and rules
// can be reprioritized without touching unrelated logic.
package qc

import "github.com/poiesic/utilidoc/core"

// Rule reasons, in priority order. These strings are surfaced to reviewers
// and stored with flagged versions; they are part of the public contract.
const (
	ReasonIdentityMissing      = "identity fields missing"
	ReasonNoUsageHistory       = "no usage history found"
	ReasonAllUsageZero         = "all usage values zero"
	ReasonLocationUnidentified = "location missing identifying fields"
)

// rule pairs a reason label with the predicate that detects it.
type rule struct {
	reason    string
	predicate func(*core.DocumentRecord) bool
}

// rules holds the heuristics in priority order. Order matters for the
// reported reason only; the flag is the disjunction of all predicates.
var rules = []rule{
	{ReasonIdentityMissing, identityMissing},
	{ReasonNoUsageHistory, noUsageHistory},
	{ReasonAllUsageZero, allUsageZero},
	{ReasonLocationUnidentified, locationUnidentified},
}

// Evaluate runs all heuristics against a record and returns the combined
// decision. It is a pure function: identical records yield identical
// decisions.
func Evaluate(record *core.DocumentRecord) core.QCDecision {
	var decision core.QCDecision
	for _, r := range rules {
		if r.predicate(record) {
			decision.Flag = true
			if decision.Reason == "" {
				decision.Reason = r.reason
			}
		}
	}
	return decision
}

// identityMissing fires when the record carries no issuer, no customer
// name, and no location with identifying fields.
func identityMissing(record *core.DocumentRecord) bool {
	if record.Issuer != "" || record.CustomerName != "" {
		return false
	}
	for i := range record.Locations {
		if record.Locations[i].HasIdentity() {
			return false
		}
	}
	return true
}

// noUsageHistory fires for sample bills with no usage data anywhere,
// neither document-level nor on any location.
func noUsageHistory(record *core.DocumentRecord) bool {
	if record.DocumentType != core.DocumentTypeSampleBill {
		return false
	}
	return len(record.UsagePeriods()) == 0
}

// allUsageZero fires when usage data is claimed present but every value is
// exactly zero. Such a record is functionally equivalent to one with
// missing usage, and the extractor most likely failed to read the table.
func allUsageZero(record *core.DocumentRecord) bool {
	periods := record.UsagePeriods()
	if len(periods) == 0 {
		return false
	}
	for _, period := range periods {
		if period.UsageValue != 0 {
			return false
		}
	}
	return true
}

// locationUnidentified fires when any location lacks both an account
// number and a service address.
func locationUnidentified(record *core.DocumentRecord) bool {
	for i := range record.Locations {
		if !record.Locations[i].HasIdentity() {
			return true
		}
	}
	return false
}
