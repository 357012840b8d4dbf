package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/sfpd-cad-cot/internal/cot"
)

const (
	// UIDPrefix namespaces event uids generated from CAD numbers.
	UIDPrefix = "SFPDCAD."

	// EventType is "atom, unknown affiliation, ground" for every call.
	EventType = "a-u-G"

	remarksSeparator = " - "
)

// CoTOptions configures record to event mapping.
type CoTOptions struct {
	Stale  time.Duration
	HostID string
}

// UID derives the CoT uid for a CAD number.
func UID(cadNumber string) string {
	return UIDPrefix + cadNumber
}

// Callsign is "<call_type_final> <call_type_final_desc>", trimmed so a missing
// half leaves no stray space. This departs from a literal "<type> <desc>"
// join: a call with neither field gets an empty callsign.
func Callsign(rec DispatchRecord) string {
	return strings.TrimSpace(string(rec.CallTypeFinal) + " " + string(rec.CallTypeFinalDesc))
}

// Remarks joins the non-empty fields with " - ".
func Remarks(fields ...string) string {
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, remarksSeparator)
}

// ToCoT maps a dispatch record to a CoT event stamped with the current clock
// time. It returns ErrNoPosition when a coordinate is null and
// ErrMalformedRecord when the coordinates cannot be read.
func ToCoT(rec DispatchRecord, opts CoTOptions) (cot.Event, error) {
	lat, lon, err := rec.LatLon()
	if err != nil {
		return cot.Event{}, err
	}

	uid := UID(string(rec.CADNumber))
	callsign := Callsign(rec)
	cadRemark := ""
	if !rec.CADNumber.IsNull() {
		cadRemark = "CAD: " + string(rec.CADNumber)
	}
	remarks := Remarks(
		callsign,
		string(rec.IntersectionName),
		string(rec.PoliceDistrict),
		cadRemark,
		opts.HostID,
	)

	// TODO: stamp time/start from received_datetime once the feed's local
	// timezone is converted to UTC.
	now := clock.Now()
	return cot.Event{
		Version: cot.Version,
		Type:    EventType,
		UID:     uid,
		How:     cot.HowMachineGenerated,
		Time:    cot.Time(now),
		Start:   cot.Time(now),
		Stale:   cot.Time(now.Add(opts.Stale)),
		Point:   cot.UnknownPoint(formatDegrees(lat), formatDegrees(lon)),
		Detail: cot.Detail{
			UID:     uid,
			Droid:   cot.DroidUID{Droid: callsign},
			Contact: cot.Contact{Callsign: callsign},
			Track:   cot.UnknownTrack(),
			Remarks: remarks,
		},
	}, nil
}

// Serialize maps and marshals a record in one step.
func Serialize(rec DispatchRecord, opts CoTOptions) (OutputEvent, error) {
	ev, err := ToCoT(rec, opts)
	if err != nil {
		return OutputEvent{}, err
	}
	payload, err := ev.Marshal()
	if err != nil {
		return OutputEvent{}, err
	}
	return OutputEvent{UID: ev.UID, Type: ev.Type, Payload: payload}, nil
}

// formatDegrees renders the shortest decimal form, keeping a ".0" on whole
// numbers so 37 reads "37.0" like the rest of the CoT ecosystem.
func formatDegrees(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
