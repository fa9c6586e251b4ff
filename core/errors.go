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
	"errors"
	"fmt"
)

// Domain validation errors
var (
	// ErrInvalidCandidate indicates an extraction candidate failed validation.
	ErrInvalidCandidate = errors.New("invalid extraction candidate")

	// ErrMissingDocumentID indicates the candidate has no documentId field.
	ErrMissingDocumentID = errors.New("documentId is required")

	// ErrInvalidDocumentType indicates an unrecognized documentType value.
	ErrInvalidDocumentType = errors.New("invalid document type")

	// ErrCorruptData indicates serialized bytes that cannot describe a
	// valid value, such as a negative collection length.
	ErrCorruptData = errors.New("corrupt serialized data")
)

// SchemaError describes the first structural mismatch found while
// validating an extraction candidate. The document is rejected, not
// retried: malformed candidates only change when the upstream extraction
// is re-run.
type SchemaError struct {
	Field        string // dotted path of the offending field, e.g. "locations[0].accountNumber"
	ExpectedType string
	Found        string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema mismatch at %s: expected %s, found %s", e.Field, e.ExpectedType, e.Found)
}

// Is reports ErrInvalidCandidate so callers can classify schema failures
// with errors.Is without inspecting the concrete type.
func (e *SchemaError) Is(target error) bool {
	return target == ErrInvalidCandidate
}
