// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package kb

import (
	"fmt"
	"strings"

	"github.com/poiesic/utilidoc/core"
)

// PendingChunk is a retrieval unit produced by the chunker before
// embedding. SourceFieldPath traces the chunk back to the structured
// field group it was rendered from, so a retrieved chunk is attributable
// rather than a bag of text.
type PendingChunk struct {
	SourceFieldPath string
	Text            string
}

// SplitRecord splits a stored version into retrieval-sized chunks by
// semantic field group: one chunk for document-level identity fields, one
// per contiguous usage-history block, one per service location's narrative
// fields, and one per location's charge block.
//
// The output is deterministic for a given version: same chunks, same
// order, same text. No I/O, no randomness.
func SplitRecord(version *core.StoredVersion) []PendingChunk {
	record := &version.Record
	chunks := []PendingChunk{identityChunk(record)}

	if len(record.UsageHistory) > 0 {
		chunks = append(chunks, PendingChunk{
			SourceFieldPath: "usageHistory",
			Text:            usageText(record.SourceID, "", record.UsageHistory),
		})
	}

	for i := range record.Locations {
		loc := &record.Locations[i]
		path := fmt.Sprintf("locations[%d]", i)

		chunks = append(chunks, PendingChunk{
			SourceFieldPath: path,
			Text:            locationText(record, loc),
		})

		if len(loc.UsageHistory) > 0 {
			chunks = append(chunks, PendingChunk{
				SourceFieldPath: path + ".usageHistory",
				Text:            usageText(record.SourceID, locationLabel(loc), loc.UsageHistory),
			})
		}

		if len(loc.Charges) > 0 {
			chunks = append(chunks, PendingChunk{
				SourceFieldPath: path + ".charges",
				Text:            chargesText(record.SourceID, locationLabel(loc), loc.Charges),
			})
		}
	}

	return chunks
}

// identityChunk renders the document-level identity fields. Always emitted,
// even for sparse records, so every document has at least one chunk.
func identityChunk(record *core.DocumentRecord) PendingChunk {
	var b strings.Builder
	fmt.Fprintf(&b, "Document %s", record.SourceID)
	if record.DocumentType != "" {
		fmt.Fprintf(&b, " (%s)", documentTypeLabel(record.DocumentType))
	}
	b.WriteString(".")

	if record.Issuer != "" {
		fmt.Fprintf(&b, " Issued by %s.", record.Issuer)
	}
	if record.CustomerName != "" {
		fmt.Fprintf(&b, " Customer: %s.", record.CustomerName)
	}
	if record.StatementDate != "" {
		fmt.Fprintf(&b, " Statement date: %s.", record.StatementDate)
	}
	if record.TotalUsage != 0 {
		fmt.Fprintf(&b, " Total usage: %s%s.", formatNumber(record.TotalUsage), unitSuffix(record.Unit))
	}

	return PendingChunk{
		SourceFieldPath: "document",
		Text:            b.String(),
	}
}

// locationText renders a service location's narrative fields.
func locationText(record *core.DocumentRecord, loc *core.ServiceLocation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Service location on document %s.", record.SourceID)

	if loc.AccountNumber != "" {
		fmt.Fprintf(&b, " Account number: %s.", loc.AccountNumber)
	}
	if loc.ServiceAddress != "" {
		fmt.Fprintf(&b, " Service address: %s.", loc.ServiceAddress)
	}
	if loc.MeterNumber != "" {
		fmt.Fprintf(&b, " Meter number: %s.", loc.MeterNumber)
	}
	if record.Issuer != "" {
		fmt.Fprintf(&b, " Issuer: %s.", record.Issuer)
	}
	if record.CustomerName != "" {
		fmt.Fprintf(&b, " Customer: %s.", record.CustomerName)
	}

	return b.String()
}

// usageText renders a usage-history block as one chunk. scope names the
// owning location; empty for document-level history.
func usageText(sourceID, scope string, periods []core.UsagePeriod) string {
	var b strings.Builder
	if scope == "" {
		fmt.Fprintf(&b, "Usage history for document %s.", sourceID)
	} else {
		fmt.Fprintf(&b, "Usage history for %s on document %s.", scope, sourceID)
	}

	for _, p := range periods {
		fmt.Fprintf(&b, " %s: %s%s.", p.PeriodLabel, formatNumber(p.UsageValue), unitSuffix(p.Unit))
	}

	return b.String()
}

// chargesText renders a location's charge lines as one chunk.
func chargesText(sourceID, scope string, charges []core.ChargeLine) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Charges for %s on document %s.", scope, sourceID)

	for _, c := range charges {
		fmt.Fprintf(&b, " %s: %s", c.Label, formatNumber(c.Amount))
		if c.Rate != nil {
			fmt.Fprintf(&b, " at rate %s", formatNumber(*c.Rate))
		}
		b.WriteString(".")
	}

	return b.String()
}

// locationLabel returns the best identifying label for a location.
func locationLabel(loc *core.ServiceLocation) string {
	switch {
	case loc.AccountNumber != "":
		return "account " + loc.AccountNumber
	case loc.ServiceAddress != "":
		return loc.ServiceAddress
	case loc.MeterNumber != "":
		return "meter " + loc.MeterNumber
	default:
		return "unidentified location"
	}
}

func documentTypeLabel(t core.DocumentType) string {
	switch t {
	case core.DocumentTypeSampleBill:
		return "utility bill"
	case core.DocumentTypeContract:
		return "contract"
	default:
		return string(t)
	}
}

// formatNumber renders a float without a trailing ".000000" for whole values.
func formatNumber(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func unitSuffix(unit string) string {
	if unit == "" {
		return ""
	}
	return " " + unit
}
