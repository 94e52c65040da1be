package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is a record identifier as it appears in the document: either a JSON
// number or a JSON string. Two ids are equal when their text is equal, so
// 7 and "7" address the same record.
type ID struct {
	text    string
	numeric bool
}

func NumericID(n int64) ID { return ID{text: strconv.FormatInt(n, 10), numeric: true} }

func StringID(s string) ID { return ID{text: s} }

func (id ID) String() string { return id.text }

func (id ID) IsZero() bool { return id.text == "" }

// Int returns the id as an integer when it is one.
func (id ID) Int() (int64, bool) {
	n, err := strconv.ParseInt(id.text, 10, 64)
	return n, err == nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.text), nil
	}
	return json.Marshal(id.text)
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return fmt.Errorf("%w: id is null", ErrInvalidRecord)
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("%w: id must be a number or string", ErrInvalidRecord)
	}
	*id = ID{text: n.String(), numeric: true}
	return nil
}

// idOf extracts the id of a decoded record value.
func idOf(v any) (ID, bool) {
	switch t := v.(type) {
	case json.Number:
		return ID{text: t.String(), numeric: true}, true
	case string:
		return StringID(t), true
	case float64:
		return ID{text: strconv.FormatFloat(t, 'f', -1, 64), numeric: true}, true
	case int:
		return NumericID(int64(t)), true
	case int64:
		return NumericID(t), true
	}
	return ID{}, false
}

// value converts the id back into the form stored inside a Record.
func (id ID) value() any {
	if id.numeric {
		return json.Number(id.text)
	}
	return id.text
}
