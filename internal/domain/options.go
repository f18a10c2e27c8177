package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Option is one answer choice of a card.
type Option struct {
	Option string `json:"option"`
	Value  string `json:"value"`
}

// OptionsKind tags which shape an Options value holds.
type OptionsKind int

const (
	OptionsNone OptionsKind = iota
	OptionsList
	OptionsRaw
)

func (k OptionsKind) String() string {
	switch k {
	case OptionsList:
		return "list"
	case OptionsRaw:
		return "raw"
	default:
		return "none"
	}
}

// Options holds the answer choices of a card. The completion service is
// expected to produce a list, but anything else it returns is kept verbatim
// in Raw. Check Kind before reading List or Raw.
type Options struct {
	Kind OptionsKind
	List []Option
	Raw  string
}

// ListOptions builds a list-shaped Options.
func ListOptions(opts ...Option) Options {
	return Options{Kind: OptionsList, List: opts}
}

// RawOptions builds a raw-string Options.
func RawOptions(raw string) Options {
	return Options{Kind: OptionsRaw, Raw: raw}
}

// MarshalJSON encodes a list as an array, raw text as a string and none as null.
func (o Options) MarshalJSON() ([]byte, error) {
	switch o.Kind {
	case OptionsList:
		if o.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(o.List)
	case OptionsRaw:
		return json.Marshal(o.Raw)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON never fails on well-formed JSON: a value that is not a list of
// {option,value} objects is kept as raw text.
func (o *Options) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*o = Options{}
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*o = RawOptions(s)
	case trimmed[0] == '[':
		var list []Option
		if err := json.Unmarshal(trimmed, &list); err != nil {
			*o = RawOptions(string(trimmed))
			return nil
		}
		*o = ListOptions(list...)
	default:
		*o = RawOptions(string(trimmed))
	}
	return nil
}

// Value stores the options as JSON text, or NULL when there are none.
func (o Options) Value() (driver.Value, error) {
	if o.Kind == OptionsNone {
		return nil, nil
	}
	b, err := o.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan reads the JSON column written by Value. Text that is not JSON at all
// is kept as raw options.
func (o *Options) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*o = Options{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into Options", src)
	}
	if !json.Valid(data) {
		*o = RawOptions(string(data))
		return nil
	}
	return o.UnmarshalJSON(data)
}
