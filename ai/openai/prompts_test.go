package openai

import (
	"encoding/json"
	"testing"

	"github.com/poiesic/utilidoc/core"
	"github.com/poiesic/utilidoc/qc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A candidate using every field the extraction schema names must validate
// with nothing left over in Extra, so the model's output vocabulary and
// the validator's stay in lockstep.
func TestExtractionSchemaMatchesValidator(t *testing.T) {
	candidate := []byte(`{
		"documentId": "bill-2024-03",
		"issuer": "City Power & Light",
		"customerName": "Acme Corp",
		"documentType": "sampleBill",
		"statementDate": "2024-03-15",
		"totalUsage": 930,
		"unit": "kWh",
		"usageHistory": [
			{"periodLabel": "Mar", "usageValue": 930, "unit": "kWh"}
		],
		"locations": [
			{
				"accountNumber": "ACC1",
				"serviceAddress": "12 Main St",
				"meterNumber": "MTR-9",
				"usageHistory": [
					{"periodLabel": "Jan", "usageValue": 450, "unit": "kWh"}
				],
				"charges": [
					{"label": "Energy charge", "amount": 84.50, "rate": 0.091}
				]
			}
		]
	}`)

	record, err := core.ValidateCandidate(candidate)
	require.NoError(t, err)

	assert.Equal(t, "City Power & Light", record.Issuer)
	assert.Equal(t, "Acme Corp", record.CustomerName)
	assert.Equal(t, "kWh", record.Unit)
	require.Len(t, record.UsageHistory, 1)
	assert.Equal(t, "Mar", record.UsageHistory[0].PeriodLabel)
	assert.Equal(t, float64(930), record.UsageHistory[0].UsageValue)
	require.Len(t, record.Locations, 1)
	assert.Equal(t, "ACC1", record.Locations[0].AccountNumber)
	require.Len(t, record.Locations[0].UsageHistory, 1)
	assert.Equal(t, float64(450), record.Locations[0].UsageHistory[0].UsageValue)
	require.Len(t, record.Locations[0].Charges, 1)
	assert.Equal(t, 84.50, record.Locations[0].Charges[0].Amount)

	// Every schema field is a validator field; name drift shows up here.
	assert.Empty(t, record.Extra)

	decision := qc.Evaluate(record)
	assert.False(t, decision.Flag, "a complete extraction must pass QC, got reason %q", decision.Reason)
}

func TestExtractionSchemaIsValidJSON(t *testing.T) {
	var schema struct {
		Properties map[string]json.RawMessage `json:"properties"`
		Required   []string                   `json:"required"`
	}
	require.NoError(t, json.Unmarshal([]byte(extractionResponseSchema), &schema))

	for _, field := range []string{
		"documentId", "issuer", "customerName", "documentType",
		"statementDate", "totalUsage", "unit", "usageHistory", "locations",
	} {
		assert.Contains(t, schema.Properties, field)
	}
	assert.Equal(t, []string{"documentId"}, schema.Required)
}
