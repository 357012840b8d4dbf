package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNoPosition is the "no event" signal: the record has no usable
	// latitude/longitude and cannot be placed on a map.
	ErrNoPosition = errors.New("record has no position")

	// ErrMalformedRecord marks a record whose fields cannot be interpreted.
	ErrMalformedRecord = errors.New("malformed dispatch record")
)

// Text is a nullable scalar feed field. The feed mostly sends JSON strings,
// but numbers and null appear as well; null decodes to the empty string.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*t = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case bytes.Equal(data, []byte("true")) || bytes.Equal(data, []byte("false")):
		*t = Text(data)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("decode text field: %w", err)
		}
		*t = Text(formatNumber(n))
	}
	return nil
}

func (t Text) String() string { return string(t) }

// IsNull reports whether the field was absent, null or blank.
func (t Text) IsNull() bool { return strings.TrimSpace(string(t)) == "" }

// formatNumber renders integral numbers without a fractional part so an
// identifier sent as 221650608.0 still reads 221650608.
func formatNumber(n json.Number) string {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		return s
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) >= 1e15 {
		return s
	}
	return strconv.FormatInt(int64(f), 10)
}

// Point is a GeoJSON point geometry. Coordinates stay raw until the mapper
// reads them so a single corrupt value fails only its own record.
type Point struct {
	Type        string            `json:"type"`
	Coordinates []json.RawMessage `json:"coordinates"`
}

// LatLon extracts the position from a [lon, lat] coordinate pair. It returns
// ErrNoPosition for a nil point or a null coordinate and ErrMalformedRecord
// for values that are not in-range numbers.
func (p *Point) LatLon() (lat, lon float64, err error) {
	if p == nil {
		return 0, 0, ErrNoPosition
	}
	if len(p.Coordinates) < 2 {
		return 0, 0, fmt.Errorf("%w: point has %d coordinates", ErrMalformedRecord, len(p.Coordinates))
	}
	rawLon, rawLat := p.Coordinates[0], p.Coordinates[1]
	if isNullJSON(rawLon) || isNullJSON(rawLat) {
		return 0, 0, ErrNoPosition
	}

	if err := json.Unmarshal(rawLon, &lon); err != nil {
		return 0, 0, fmt.Errorf("%w: longitude %s", ErrMalformedRecord, rawLon)
	}
	if err := json.Unmarshal(rawLat, &lat); err != nil {
		return 0, 0, fmt.Errorf("%w: latitude %s", ErrMalformedRecord, rawLat)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("%w: coordinates out of range (%g, %g)", ErrMalformedRecord, lat, lon)
	}
	return lat, lon, nil
}

func isNullJSON(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// DispatchRecord is one row of the CAD feed. Only the fields the gateway
// reads are decoded; everything else in the row is ignored.
type DispatchRecord struct {
	CADNumber        Text `json:"cad_number"`
	ReceivedDatetime Text `json:"received_datetime"`
	CloseDatetime    Text `json:"close_datetime"`
	// IntersectionPoint is a GeoJSON point, decoded on demand by LatLon.
	IntersectionPoint json.RawMessage `json:"intersection_point"`
	IntersectionName  Text            `json:"intersection_name"`
	CallTypeFinal     Text            `json:"call_type_final"`
	CallTypeFinalDesc Text            `json:"call_type_final_desc"`
	PoliceDistrict    Text            `json:"police_district"`

	// DecodeErr is set by DecodeRecord when the row could not be decoded.
	DecodeErr error `json:"-"`
}

// DecodeRecord decodes one feed row. A row that fails to decode comes back
// with DecodeErr set, and its cad_number when that much can be read, so the
// rest of the snapshot is unaffected.
func DecodeRecord(raw json.RawMessage) DispatchRecord {
	var rec DispatchRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		var id struct {
			CADNumber json.RawMessage `json:"cad_number"`
		}
		var cad Text
		if json.Unmarshal(raw, &id) == nil && len(id.CADNumber) > 0 {
			_ = json.Unmarshal(id.CADNumber, &cad)
		}
		return DispatchRecord{
			CADNumber: cad,
			DecodeErr: fmt.Errorf("%w: %w", ErrMalformedRecord, err),
		}
	}
	return rec
}

// HasPoint reports whether intersection_point is present and not null.
func (r DispatchRecord) HasPoint() bool {
	return !isNullJSON(r.IntersectionPoint)
}

// LatLon decodes intersection_point and extracts its position. A geometry
// that is not a point object is ErrMalformedRecord.
func (r DispatchRecord) LatLon() (lat, lon float64, err error) {
	if !r.HasPoint() {
		return 0, 0, ErrNoPosition
	}
	var p Point
	if err := json.Unmarshal(r.IntersectionPoint, &p); err != nil {
		return 0, 0, fmt.Errorf("%w: intersection_point: %w", ErrMalformedRecord, err)
	}
	return p.LatLon()
}

// feedTimeLayouts are tried in order. The feed publishes floating local
// timestamps ("2022-06-14T08:00:57.000") without a zone.
var feedTimeLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// ParseFeedTime parses a feed timestamp. Zone-less values are read as UTC;
// only their wall-clock fields are used downstream.
func ParseFeedTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized timestamp %q", ErrMalformedRecord, s)
}

// ReceivedAt returns the parsed received_datetime.
func (r DispatchRecord) ReceivedAt() (time.Time, error) {
	if r.ReceivedDatetime.IsNull() {
		return time.Time{}, fmt.Errorf("%w: missing received_datetime", ErrMalformedRecord)
	}
	return ParseFeedTime(string(r.ReceivedDatetime))
}

// IsOpen reports whether the call has not been closed yet.
func (r DispatchRecord) IsOpen() bool {
	return r.CloseDatetime.IsNull()
}

// OutputEvent is a serialized CoT event ready for the submission sink.
type OutputEvent struct {
	UID     string
	Type    string
	Payload []byte
}
