// Package domain models San Francisco Police Department computer-aided
// dispatch (CAD) calls and maps them to Cursor-on-Target events.
//
// # Data Source
//
// Calls come from the DataSF "Law Enforcement Dispatched Calls for Service:
// Real-Time" dataset, served as a JSON array of flat rows by the Socrata API
// (https://data.sfgov.org/resource/gnap-fj3t.json). Each poll returns the full
// current snapshot, not a diff.
//
// # Feed Conventions
//
// Field encoding:
//
//	Scalars are usually JSON strings. Identifiers may also arrive as numbers
//	(221650608 or 221650608.0) and absent values as null or a missing key.
//	[Text] normalizes all of these; null becomes "".
//
// Timestamps:
//
//	"2022-06-14T08:00:57.000" floating local time (America/Los_Angeles) with
//	no zone suffix. Only the wall-clock fields are used.
//
// Location:
//
//	intersection_point is GeoJSON: {"type":"Point","coordinates":[lon, lat]}.
//	Note the lon-first order. intersection_name is the cross street, e.g.
//	"07TH ST \ HARRISON ST" (the backslash is literal). The geometry is kept
//	raw until mapping, so a non-point value fails only its own call.
//
// Rows are decoded one at a time by [DecodeRecord]. A row with a field of the
// wrong shape carries DecodeErr and is dropped by the filter.
//
// # Eligibility
//
// [SelectEligible] keeps a call when it has a point, its received minute is
// below 15, and close_datetime is null. The minute check looks at the
// minute-of-hour field alone, so calls received at hh:15 or later are never
// emitted. This matches the established behaviour of the gateway and is kept
// until consumers agree on a rolling window.
//
// # Event Mapping
//
// Each eligible call becomes an "a-u-G" event with uid "SFPDCAD.<cad_number>".
// Height, error and track fields are the CoT unknown sentinel 9999999.0.
// time and start are the generation instant, not the call's received time;
// stale is generation time plus the configured staleness horizon. See [ToCoT].
package domain
