package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownEvent is returned when an encoded event carries an unrecognized type.
var ErrUnknownEvent = errors.New("unknown event type")

// DecodeEvent parses the wire form of an event: a JSON object whose "type"
// field names the kind and whose remaining fields carry the payload, e.g.
//
//	{"type":"zip_clicked","zip":"19102"}
func DecodeEvent(data []byte) (Event, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	var ev Event
	var err error
	switch head.Type {
	case ZipClicked{}.Kind():
		ev, err = decodeAs[ZipClicked](data)
	case TimeRangeBrushed{}.Kind():
		ev, err = decodeAs[TimeRangeBrushed](data)
	case TimeRangeReset{}.Kind():
		ev, err = decodeAs[TimeRangeReset](data)
	case ViolationsSelected{}.Kind():
		ev, err = decodeAs[ViolationsSelected](data)
	case AgencySelected{}.Kind():
		ev, err = decodeAs[AgencySelected](data)
	case WeekdaysSelected{}.Kind():
		ev, err = decodeAs[WeekdaysSelected](data)
	case Reset{}.Kind():
		ev, err = decodeAs[Reset](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, head.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", head.Type, err)
	}
	return ev, nil
}

// decodeAs decodes the payload fields into T. Fields T does not declare are
// rejected so a misspelled key cannot turn into an empty selection.
func decodeAs[T Event](data []byte) (Event, error) {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	delete(fields, "type")
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	var v T
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// EncodeEvent produces the wire form accepted by DecodeEvent.
func EncodeEvent(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	kind, _ := json.Marshal(ev.Kind())
	fields["type"] = kind
	return json.Marshal(fields)
}

// Interaction records one applied state transition for downstream consumers.
type Interaction struct {
	SessionID  string          `json:"session_id"`
	EventType  string          `json:"event_type"`
	Event      json.RawMessage `json:"event,omitempty"`
	State      FilterState     `json:"state"`
	Summary    string          `json:"summary"`
	OccurredAt time.Time       `json:"occurred_at"`
}
