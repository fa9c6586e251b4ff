package kb

import (
	"testing"

	"github.com/poiesic/utilidoc/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedBill() *core.StoredVersion {
	rate := 0.091
	return &core.StoredVersion{
		DocumentID: core.IDFromContent("bill-2024-03"),
		Version:    1,
		Record: core.DocumentRecord{
			DocumentID:    core.IDFromContent("bill-2024-03"),
			SourceID:      "bill-2024-03",
			Issuer:        "City Power & Light",
			CustomerName:  "Acme Corp",
			DocumentType:  core.DocumentTypeSampleBill,
			StatementDate: "2024-03-15",
			TotalUsage:    930,
			Unit:          "kWh",
			UsageHistory: []core.UsagePeriod{
				{PeriodLabel: "Mar", UsageValue: 930, Unit: "kWh"},
			},
			Locations: []core.ServiceLocation{
				{
					AccountNumber:  "ACC1",
					ServiceAddress: "12 Main St",
					UsageHistory: []core.UsagePeriod{
						{PeriodLabel: "Jan", UsageValue: 450, Unit: "kWh"},
						{PeriodLabel: "Feb", UsageValue: 480, Unit: "kWh"},
					},
					Charges: []core.ChargeLine{
						{Label: "Energy charge", Amount: 84.50, Rate: &rate},
					},
				},
				{
					ServiceAddress: "48 Oak Ave",
				},
			},
		},
	}
}

func TestSplitRecordFieldGroups(t *testing.T) {
	chunks := SplitRecord(storedBill())

	paths := make([]string, len(chunks))
	for i, c := range chunks {
		paths[i] = c.SourceFieldPath
	}
	assert.Equal(t, []string{
		"document",
		"usageHistory",
		"locations[0]",
		"locations[0].usageHistory",
		"locations[0].charges",
		"locations[1]",
	}, paths)
}

func TestSplitRecordChunkContents(t *testing.T) {
	chunks := SplitRecord(storedBill())
	byPath := make(map[string]string)
	for _, c := range chunks {
		byPath[c.SourceFieldPath] = c.Text
	}

	identity := byPath["document"]
	assert.Contains(t, identity, "bill-2024-03")
	assert.Contains(t, identity, "City Power & Light")
	assert.Contains(t, identity, "Acme Corp")
	assert.Contains(t, identity, "2024-03-15")
	assert.Contains(t, identity, "utility bill")

	usage := byPath["locations[0].usageHistory"]
	assert.Contains(t, usage, "account ACC1")
	assert.Contains(t, usage, "Jan: 450 kWh")
	assert.Contains(t, usage, "Feb: 480 kWh")

	charges := byPath["locations[0].charges"]
	assert.Contains(t, charges, "Energy charge: 84.5")
	assert.Contains(t, charges, "rate 0.09")

	narrative := byPath["locations[1]"]
	assert.Contains(t, narrative, "48 Oak Ave")
}

func TestSplitRecordDeterministic(t *testing.T) {
	first := SplitRecord(storedBill())
	second := SplitRecord(storedBill())
	assert.Equal(t, first, second)
}

func TestSplitRecordSparseDocument(t *testing.T) {
	version := &core.StoredVersion{
		DocumentID: core.IDFromContent("sparse"),
		Version:    1,
		Record: core.DocumentRecord{
			DocumentID: core.IDFromContent("sparse"),
			SourceID:   "sparse",
		},
	}

	chunks := SplitRecord(version)
	require.Len(t, chunks, 1, "sparse documents still get an identity chunk")
	assert.Equal(t, "document", chunks[0].SourceFieldPath)
	assert.Contains(t, chunks[0].Text, "sparse")
}
