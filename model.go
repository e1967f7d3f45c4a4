package ebs

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// ID is an opaque server side identifier.
//
// It holds the raw JSON value as received, so it is sent back exactly the way
// the server gave it, be it a string or a number. IDs built by hand follow
// the same rule: ID("7") is sent as the number 7. Use StringID for text ids.
type ID string

// StringID returns the ID of a server side string identifier.
func StringID(s string) ID {
	raw, _ := json.Marshal(s)
	return ID(raw)
}

func idFrom(r gjson.Result) ID {
	return ID(r.Raw)
}

func (id ID) String() string {
	if gjson.Valid(string(id)) {
		return gjson.Parse(string(id)).String()
	}
	return string(id)
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if gjson.Valid(string(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

type State int

const (
	StateDisarmed State = 0
	StateArmed    State = 1
	StatePartial  State = 2
	StateNight    State = 3
)

func (s State) String() string {
	switch s {
	case StateDisarmed:
		return "Disarmed"
	case StateArmed:
		return "Armed"
	case StatePartial:
		return "Partial"
	case StateNight:
		return "Night"
	default:
		return "Unknown"
	}
}

// Armed reports whether the partition is armed in any way: full, partial and
// night all count.
func (s State) Armed() bool {
	return s != StateDisarmed
}

func (s State) Valid() bool {
	return s >= StateDisarmed && s <= StateNight
}

// Object is a monitored object, the vendor's name for a site.
type Object struct {
	ID ID
}

type FullObject struct {
	ID         ID
	Partitions []Partition
}

type Partition struct {
	Number int
	ID     ID
	State  State
	Name   string
}

func fullObjectFrom(r gjson.Result) FullObject {
	obj := FullObject{ID: idFrom(r.Get("id"))}
	for _, p := range r.Get("partitions").Array() {
		obj.Partitions = append(obj.Partitions, Partition{
			Number: int(p.Get("nr").Int()),
			ID:     idFrom(p.Get("id")),
			State:  State(p.Get("state").Int()),
			Name:   p.Get("name").String(),
		})
	}
	return obj
}
