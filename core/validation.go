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

package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Known top-level candidate fields. Anything else is preserved verbatim in
// DocumentRecord.Extra for forward compatibility, never rejected.
var knownFields = map[string]bool{
	"documentId":    true,
	"issuer":        true,
	"customerName":  true,
	"documentType":  true,
	"statementDate": true,
	"totalUsage":    true,
	"unit":          true,
	"locations":     true,
	"usageHistory":  true,
	"_qc_flag":      true, // derived fields are dropped if the extractor echoes them
	"_qc_reason":    true,
}

// ValidateCandidate checks a raw extraction candidate against the required
// structural shape and converts it into a DocumentRecord.
//
// Validation rules:
//   - documentId must be present and a non-empty string
//   - present scalar fields must be strings; null counts as absent
//   - numeric fields must be JSON numbers or null
//   - locations and usageHistory must be arrays of objects when present
//   - unknown fields are preserved, not rejected
//
// It fails with a *SchemaError on the first structural mismatch and never
// attempts partial coercion. No side effects.
func ValidateCandidate(data []byte) (*DocumentRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var candidate map[string]any
	if err := dec.Decode(&candidate); err != nil {
		return nil, &SchemaError{Field: ".", ExpectedType: "object", Found: "malformed JSON"}
	}

	record := &DocumentRecord{}

	sourceID, err := stringField(candidate, "documentId")
	if err != nil {
		return nil, err
	}
	if sourceID == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCandidate, ErrMissingDocumentID)
	}
	record.SourceID = sourceID
	record.DocumentID = IDFromContent(sourceID)

	if record.Issuer, err = stringField(candidate, "issuer"); err != nil {
		return nil, err
	}
	if record.CustomerName, err = stringField(candidate, "customerName"); err != nil {
		return nil, err
	}
	if record.StatementDate, err = stringField(candidate, "statementDate"); err != nil {
		return nil, err
	}
	if record.Unit, err = stringField(candidate, "unit"); err != nil {
		return nil, err
	}

	docType, err := stringField(candidate, "documentType")
	if err != nil {
		return nil, err
	}
	switch DocumentType(docType) {
	case "", DocumentTypeSampleBill, DocumentTypeContract:
		record.DocumentType = DocumentType(docType)
	default:
		return nil, fmt.Errorf("%w: %w: %q", ErrInvalidCandidate, ErrInvalidDocumentType, docType)
	}

	if record.TotalUsage, err = numberField(candidate, "totalUsage"); err != nil {
		return nil, err
	}

	if record.UsageHistory, err = usageHistoryField(candidate, "usageHistory"); err != nil {
		return nil, err
	}

	if record.Locations, err = locationsField(candidate); err != nil {
		return nil, err
	}

	extra := make(map[string]any)
	for key, value := range candidate {
		if !knownFields[key] {
			extra[key] = value
		}
	}
	if len(extra) > 0 {
		encoded, err := json.Marshal(extra)
		if err != nil {
			return nil, fmt.Errorf("%w: encoding extra fields: %w", ErrInvalidCandidate, err)
		}
		record.Extra = string(encoded)
	}

	return record, nil
}

// stringField reads an optional string field. Missing and null both mean
// absent; any other non-string value is a schema mismatch.
func stringField(m map[string]any, field string) (string, error) {
	raw, ok := m[field]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", &SchemaError{Field: field, ExpectedType: "string", Found: typeName(raw)}
	}
	return s, nil
}

// numberField reads an optional numeric field. Missing and null mean zero.
func numberField(m map[string]any, field string) (float64, error) {
	raw, ok := m[field]
	if !ok || raw == nil {
		return 0, nil
	}
	num, ok := raw.(json.Number)
	if !ok {
		return 0, &SchemaError{Field: field, ExpectedType: "number", Found: typeName(raw)}
	}
	value, err := num.Float64()
	if err != nil {
		return 0, &SchemaError{Field: field, ExpectedType: "number", Found: num.String()}
	}
	return value, nil
}

func usageHistoryField(m map[string]any, path string) ([]UsagePeriod, error) {
	raw, ok := m[path]
	if !ok || raw == nil {
		return nil, nil
	}
	entries, ok := raw.([]any)
	if !ok {
		return nil, &SchemaError{Field: path, ExpectedType: "array", Found: typeName(raw)}
	}
	periods := make([]UsagePeriod, 0, len(entries))
	for i, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			return nil, &SchemaError{
				Field:        fmt.Sprintf("%s[%d]", path, i),
				ExpectedType: "object",
				Found:        typeName(entry),
			}
		}
		var period UsagePeriod
		var err error
		if period.PeriodLabel, err = stringField(obj, "periodLabel"); err != nil {
			return nil, prefixSchemaError(err, fmt.Sprintf("%s[%d]", path, i))
		}
		if period.UsageValue, err = numberField(obj, "usageValue"); err != nil {
			return nil, prefixSchemaError(err, fmt.Sprintf("%s[%d]", path, i))
		}
		if period.Unit, err = stringField(obj, "unit"); err != nil {
			return nil, prefixSchemaError(err, fmt.Sprintf("%s[%d]", path, i))
		}
		periods = append(periods, period)
	}
	return periods, nil
}

func locationsField(m map[string]any) ([]ServiceLocation, error) {
	raw, ok := m["locations"]
	if !ok || raw == nil {
		return nil, nil
	}
	entries, ok := raw.([]any)
	if !ok {
		return nil, &SchemaError{Field: "locations", ExpectedType: "array", Found: typeName(raw)}
	}
	locations := make([]ServiceLocation, 0, len(entries))
	for i, entry := range entries {
		path := fmt.Sprintf("locations[%d]", i)
		obj, ok := entry.(map[string]any)
		if !ok {
			return nil, &SchemaError{Field: path, ExpectedType: "object", Found: typeName(entry)}
		}
		var loc ServiceLocation
		var err error
		if loc.AccountNumber, err = stringField(obj, "accountNumber"); err != nil {
			return nil, prefixSchemaError(err, path)
		}
		if loc.ServiceAddress, err = stringField(obj, "serviceAddress"); err != nil {
			return nil, prefixSchemaError(err, path)
		}
		if loc.MeterNumber, err = stringField(obj, "meterNumber"); err != nil {
			return nil, prefixSchemaError(err, path)
		}
		if loc.UsageHistory, err = usageHistoryField(obj, "usageHistory"); err != nil {
			return nil, prefixSchemaError(err, path)
		}
		if loc.Charges, err = chargesField(obj, path); err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	return locations, nil
}

func chargesField(m map[string]any, parent string) ([]ChargeLine, error) {
	raw, ok := m["charges"]
	if !ok || raw == nil {
		return nil, nil
	}
	path := parent + ".charges"
	entries, ok := raw.([]any)
	if !ok {
		return nil, &SchemaError{Field: path, ExpectedType: "array", Found: typeName(raw)}
	}
	charges := make([]ChargeLine, 0, len(entries))
	for i, entry := range entries {
		entryPath := fmt.Sprintf("%s[%d]", path, i)
		obj, ok := entry.(map[string]any)
		if !ok {
			return nil, &SchemaError{Field: entryPath, ExpectedType: "object", Found: typeName(entry)}
		}
		var charge ChargeLine
		var err error
		if charge.Label, err = stringField(obj, "label"); err != nil {
			return nil, prefixSchemaError(err, entryPath)
		}
		if charge.Amount, err = numberField(obj, "amount"); err != nil {
			return nil, prefixSchemaError(err, entryPath)
		}
		if rateRaw, ok := obj["rate"]; ok && rateRaw != nil {
			rate, err := numberField(obj, "rate")
			if err != nil {
				return nil, prefixSchemaError(err, entryPath)
			}
			charge.Rate = &rate
		}
		charges = append(charges, charge)
	}
	return charges, nil
}

// prefixSchemaError qualifies a nested SchemaError's field path with its
// parent path. Non-schema errors pass through unchanged.
func prefixSchemaError(err error, parent string) error {
	if se, ok := err.(*SchemaError); ok {
		return &SchemaError{
			Field:        parent + "." + se.Field,
			ExpectedType: se.ExpectedType,
			Found:        se.Found,
		}
	}
	return err
}

func typeName(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "bool"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
