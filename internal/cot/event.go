// Package cot models the Cursor-on-Target event wire format produced by the
// gateway and serializes it to XML.
package cot

import (
	"encoding/xml"
	"fmt"
	"time"
)

const (
	// Version is the CoT schema version written on every event.
	Version = "2.0"

	// HowMachineGenerated marks positions derived by software ("m-g").
	HowMachineGenerated = "m-g"

	// Unknown is the CoT sentinel for ce, le, hae, course and speed values
	// the source cannot supply.
	Unknown = "9999999.0"

	// TimeLayout is the ISO-8601 UTC layout CoT consumers expect.
	TimeLayout = "2006-01-02T15:04:05.000000Z"
)

// Time formats t in the CoT timestamp convention (UTC, microseconds, trailing Z).
func Time(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Event is the root <event> element. Attribute order follows field order.
type Event struct {
	XMLName xml.Name `xml:"event"`
	Version string   `xml:"version,attr"`
	Type    string   `xml:"type,attr"`
	UID     string   `xml:"uid,attr"`
	How     string   `xml:"how,attr"`
	Time    string   `xml:"time,attr"`
	Start   string   `xml:"start,attr"`
	Stale   string   `xml:"stale,attr"`
	Point   Point    `xml:"point"`
	Detail  Detail   `xml:"detail"`
}

// Point carries the WGS-84 position. Values are kept as strings so the
// rendered text is exactly what the mapper produced.
type Point struct {
	Lat string `xml:"lat,attr"`
	Lon string `xml:"lon,attr"`
	CE  string `xml:"ce,attr"`
	LE  string `xml:"le,attr"`
	HAE string `xml:"hae,attr"`
}

type Detail struct {
	UID     string   `xml:"uid,attr"`
	Droid   DroidUID `xml:"UID"`
	Contact Contact  `xml:"contact"`
	Track   Track    `xml:"track"`
	Remarks string   `xml:"remarks"`
}

type DroidUID struct {
	Droid string `xml:"Droid,attr"`
}

type Contact struct {
	Callsign string `xml:"callsign,attr"`
}

type Track struct {
	Course string `xml:"course,attr"`
	Speed  string `xml:"speed,attr"`
}

// UnknownPoint returns a Point at lat/lon with every error field set to Unknown.
func UnknownPoint(lat, lon string) Point {
	return Point{Lat: lat, Lon: lon, CE: Unknown, LE: Unknown, HAE: Unknown}
}

// UnknownTrack returns a Track with course and speed set to Unknown.
func UnknownTrack() Track {
	return Track{Course: Unknown, Speed: Unknown}
}

// Marshal serializes the event as UTF-8 XML without a declaration header.
func (e Event) Marshal() ([]byte, error) {
	data, err := xml.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal cot event %s: %w", e.UID, err)
	}
	return data, nil
}
