package core

// Hand-maintained MUS serializers for the stored domain types, following
// the XxxMUS naming convention. Collection fields are length-prefixed with
// varint; optional fields carry an ord.Bool presence marker.

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// IDMUS serializes ID values.
var IDMUS = idMUS{}

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	raw, n, err := varint.Uint64.Unmarshal(bs)
	return ID(raw), n, err
}

func (idMUS) Size(v ID) int {
	return varint.Uint64.Size(uint64(v))
}

func (s idMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// UsagePeriodMUS serializes UsagePeriod values.
var UsagePeriodMUS = usagePeriodMUS{}

type usagePeriodMUS struct{}

func (usagePeriodMUS) Marshal(v UsagePeriod, bs []byte) (n int) {
	n = ord.String.Marshal(v.PeriodLabel, bs)
	n += raw.Float64.Marshal(v.UsageValue, bs[n:])
	n += ord.String.Marshal(v.Unit, bs[n:])
	return
}

func (usagePeriodMUS) Unmarshal(bs []byte) (v UsagePeriod, n int, err error) {
	var n1 int
	if v.PeriodLabel, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.UsageValue, n1, err = raw.Float64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.Unit, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (usagePeriodMUS) Size(v UsagePeriod) int {
	return ord.String.Size(v.PeriodLabel) + raw.Float64.Size(v.UsageValue) + ord.String.Size(v.Unit)
}

func (s usagePeriodMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// ChargeLineMUS serializes ChargeLine values.
var ChargeLineMUS = chargeLineMUS{}

type chargeLineMUS struct{}

func (chargeLineMUS) Marshal(v ChargeLine, bs []byte) (n int) {
	n = ord.String.Marshal(v.Label, bs)
	n += raw.Float64.Marshal(v.Amount, bs[n:])
	n += ord.Bool.Marshal(v.Rate != nil, bs[n:])
	if v.Rate != nil {
		n += raw.Float64.Marshal(*v.Rate, bs[n:])
	}
	return
}

func (chargeLineMUS) Unmarshal(bs []byte) (v ChargeLine, n int, err error) {
	var n1 int
	if v.Label, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.Amount, n1, err = raw.Float64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var present bool
	if present, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if present {
		var rate float64
		rate, n1, err = raw.Float64.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		v.Rate = &rate
	}
	return
}

func (chargeLineMUS) Size(v ChargeLine) (size int) {
	size = ord.String.Size(v.Label) + raw.Float64.Size(v.Amount) + ord.Bool.Size(v.Rate != nil)
	if v.Rate != nil {
		size += raw.Float64.Size(*v.Rate)
	}
	return
}

func (s chargeLineMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// ServiceLocationMUS serializes ServiceLocation values.
var ServiceLocationMUS = serviceLocationMUS{}

type serviceLocationMUS struct{}

func (serviceLocationMUS) Marshal(v ServiceLocation, bs []byte) (n int) {
	n = ord.String.Marshal(v.AccountNumber, bs)
	n += ord.String.Marshal(v.ServiceAddress, bs[n:])
	n += ord.String.Marshal(v.MeterNumber, bs[n:])
	n += varint.Int.Marshal(len(v.UsageHistory), bs[n:])
	for _, period := range v.UsageHistory {
		n += UsagePeriodMUS.Marshal(period, bs[n:])
	}
	n += varint.Int.Marshal(len(v.Charges), bs[n:])
	for _, charge := range v.Charges {
		n += ChargeLineMUS.Marshal(charge, bs[n:])
	}
	return
}

func (serviceLocationMUS) Unmarshal(bs []byte) (v ServiceLocation, n int, err error) {
	var n1 int
	if v.AccountNumber, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.ServiceAddress, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.MeterNumber, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.UsageHistory, n1, err = unmarshalUsagePeriods(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var count int
	if count, n1, err = sliceCount(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if count > 0 {
		v.Charges = make([]ChargeLine, 0, count)
		for i := 0; i < count; i++ {
			var charge ChargeLine
			charge, n1, err = ChargeLineMUS.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return
			}
			v.Charges = append(v.Charges, charge)
		}
	}
	return
}

func (serviceLocationMUS) Size(v ServiceLocation) (size int) {
	size = ord.String.Size(v.AccountNumber) + ord.String.Size(v.ServiceAddress) + ord.String.Size(v.MeterNumber)
	size += varint.Int.Size(len(v.UsageHistory))
	for _, period := range v.UsageHistory {
		size += UsagePeriodMUS.Size(period)
	}
	size += varint.Int.Size(len(v.Charges))
	for _, charge := range v.Charges {
		size += ChargeLineMUS.Size(charge)
	}
	return
}

func (s serviceLocationMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// DocumentRecordMUS serializes DocumentRecord values.
var DocumentRecordMUS = documentRecordMUS{}

type documentRecordMUS struct{}

func (documentRecordMUS) Marshal(v DocumentRecord, bs []byte) (n int) {
	n = IDMUS.Marshal(v.DocumentID, bs)
	n += ord.String.Marshal(v.SourceID, bs[n:])
	n += ord.String.Marshal(v.Issuer, bs[n:])
	n += ord.String.Marshal(v.CustomerName, bs[n:])
	n += ord.String.Marshal(string(v.DocumentType), bs[n:])
	n += ord.String.Marshal(v.StatementDate, bs[n:])
	n += raw.Float64.Marshal(v.TotalUsage, bs[n:])
	n += ord.String.Marshal(v.Unit, bs[n:])
	n += varint.Int.Marshal(len(v.Locations), bs[n:])
	for _, loc := range v.Locations {
		n += ServiceLocationMUS.Marshal(loc, bs[n:])
	}
	n += varint.Int.Marshal(len(v.UsageHistory), bs[n:])
	for _, period := range v.UsageHistory {
		n += UsagePeriodMUS.Marshal(period, bs[n:])
	}
	n += ord.String.Marshal(v.Extra, bs[n:])
	return
}

func (documentRecordMUS) Unmarshal(bs []byte) (v DocumentRecord, n int, err error) {
	var n1 int
	if v.DocumentID, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	strs := []*string{&v.SourceID, &v.Issuer, &v.CustomerName}
	for _, dst := range strs {
		if *dst, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return v, n + n1, err
		}
		n += n1
	}
	var docType string
	if docType, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.DocumentType = DocumentType(docType)
	if v.StatementDate, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.TotalUsage, n1, err = raw.Float64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Unit, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var count int
	if count, n1, err = sliceCount(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if count > 0 {
		v.Locations = make([]ServiceLocation, 0, count)
		for i := 0; i < count; i++ {
			var loc ServiceLocation
			loc, n1, err = ServiceLocationMUS.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return
			}
			v.Locations = append(v.Locations, loc)
		}
	}
	v.UsageHistory, n1, err = unmarshalUsagePeriods(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Extra, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (documentRecordMUS) Size(v DocumentRecord) (size int) {
	size = IDMUS.Size(v.DocumentID)
	size += ord.String.Size(v.SourceID) + ord.String.Size(v.Issuer) + ord.String.Size(v.CustomerName)
	size += ord.String.Size(string(v.DocumentType)) + ord.String.Size(v.StatementDate)
	size += raw.Float64.Size(v.TotalUsage) + ord.String.Size(v.Unit)
	size += varint.Int.Size(len(v.Locations))
	for _, loc := range v.Locations {
		size += ServiceLocationMUS.Size(loc)
	}
	size += varint.Int.Size(len(v.UsageHistory))
	for _, period := range v.UsageHistory {
		size += UsagePeriodMUS.Size(period)
	}
	size += ord.String.Size(v.Extra)
	return
}

func (s documentRecordMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// StoredVersionMUS serializes StoredVersion values. StoredAt is stored as
// Unix microseconds in UTC.
var StoredVersionMUS = storedVersionMUS{}

type storedVersionMUS struct{}

func (storedVersionMUS) Marshal(v StoredVersion, bs []byte) (n int) {
	n = IDMUS.Marshal(v.DocumentID, bs)
	n += varint.Uint32.Marshal(v.Version, bs[n:])
	n += DocumentRecordMUS.Marshal(v.Record, bs[n:])
	n += ord.Bool.Marshal(v.Decision.Flag, bs[n:])
	n += ord.String.Marshal(v.Decision.Reason, bs[n:])
	n += varint.Int64.Marshal(v.StoredAt.UnixMicro(), bs[n:])
	return
}

func (storedVersionMUS) Unmarshal(bs []byte) (v StoredVersion, n int, err error) {
	var n1 int
	if v.DocumentID, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if v.Version, n1, err = varint.Uint32.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Record, n1, err = DocumentRecordMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Decision.Flag, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Decision.Reason, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	v.StoredAt = time.UnixMicro(micros).UTC()
	return
}

func (storedVersionMUS) Size(v StoredVersion) int {
	return IDMUS.Size(v.DocumentID) +
		varint.Uint32.Size(v.Version) +
		DocumentRecordMUS.Size(v.Record) +
		ord.Bool.Size(v.Decision.Flag) +
		ord.String.Size(v.Decision.Reason) +
		varint.Int64.Size(v.StoredAt.UnixMicro())
}

func (s storedVersionMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// IndexChunkMUS serializes IndexChunk values.
var IndexChunkMUS = indexChunkMUS{}

type indexChunkMUS struct{}

func (indexChunkMUS) Marshal(v IndexChunk, bs []byte) (n int) {
	n = IDMUS.Marshal(v.ChunkID, bs)
	n += IDMUS.Marshal(v.DocumentID, bs[n:])
	n += ord.String.Marshal(v.SourceFieldPath, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += varint.Int.Marshal(len(v.Vector), bs[n:])
	for _, f := range v.Vector {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	n += varint.Uint32.Marshal(v.CreatedVersion, bs[n:])
	return
}

func (indexChunkMUS) Unmarshal(bs []byte) (v IndexChunk, n int, err error) {
	var n1 int
	if v.ChunkID, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if v.DocumentID, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.SourceFieldPath, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var count int
	if count, n1, err = sliceCount(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if count > 0 {
		v.Vector = make([]float32, count)
		for i := 0; i < count; i++ {
			v.Vector[i], n1, err = raw.Float32.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return
			}
		}
	}
	v.CreatedVersion, n1, err = varint.Uint32.Unmarshal(bs[n:])
	n += n1
	return
}

func (indexChunkMUS) Size(v IndexChunk) (size int) {
	size = IDMUS.Size(v.ChunkID) + IDMUS.Size(v.DocumentID)
	size += ord.String.Size(v.SourceFieldPath) + ord.String.Size(v.Text)
	size += varint.Int.Size(len(v.Vector))
	for _, f := range v.Vector {
		size += raw.Float32.Size(f)
	}
	size += varint.Uint32.Size(v.CreatedVersion)
	return
}

func (s indexChunkMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// sliceCount reads a varint length prefix. Corrupted bytes can decode to a
// negative value, which must surface as an error before any allocation.
func sliceCount(bs []byte) (count, n int, err error) {
	if count, n, err = varint.Int.Unmarshal(bs); err != nil {
		return
	}
	if count < 0 {
		err = ErrCorruptData
	}
	return
}

func unmarshalUsagePeriods(bs []byte) (periods []UsagePeriod, n int, err error) {
	var count, n1 int
	if count, n, err = sliceCount(bs); err != nil {
		return
	}
	if count == 0 {
		return
	}
	periods = make([]UsagePeriod, 0, count)
	for i := 0; i < count; i++ {
		var period UsagePeriod
		period, n1, err = UsagePeriodMUS.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		periods = append(periods, period)
	}
	return
}
