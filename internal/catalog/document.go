package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"

	"github.com/google/uuid"
)

const (
	CollectionProducts = "products"
	CollectionOrders   = "orders"

	fieldID        = "id"
	fieldIsSoldOut = "isSoldOut"
)

// Record is one element of a collection. Numbers are kept as json.Number so
// ids and prices survive a rewrite with their original text.
type Record map[string]any

// ID returns the record's id, if it has a usable one.
func (r Record) ID() (ID, bool) { return idOf(r[fieldID]) }

// Document is the whole catalog file held in memory. Array-valued top-level
// keys are collections; any other top-level value is carried through as-is.
type Document struct {
	keys        []string
	collections map[string][]Record
	other       map[string]json.RawMessage
}

func NewDocument() *Document {
	return &Document{
		collections: map[string][]Record{},
		other:       map[string]json.RawMessage{},
	}
}

// ParseDocument decodes a catalog file. An empty input is an empty document.
func ParseDocument(b []byte) (*Document, error) {
	doc := NewDocument()
	if len(bytes.TrimSpace(b)) == 0 {
		return doc, nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("document must be a JSON object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		if _, seen := doc.collections[key]; !seen {
			if _, seen := doc.other[key]; !seen {
				doc.keys = append(doc.keys, key)
			}
		}
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			recs, err := decodeRecords(trimmed)
			if err != nil {
				return nil, fmt.Errorf("collection %q: %w", key, err)
			}
			doc.collections[key] = recs
			continue
		}
		doc.other[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeRecords(b []byte) ([]Record, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var recs []Record
	if err := dec.Decode(&recs); err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}

// MarshalJSON writes the document with its original top-level key order and
// two-space indentation. Fields inside a record come out sorted by name;
// string contents are written without HTML escaping.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, key := range d.keys {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  ")
		k, err := encodeIndent(key)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		buf.Write(k)
		buf.WriteString(": ")

		var v []byte
		if recs, ok := d.collections[key]; ok {
			v, err = encodeIndent(recs)
		} else {
			var out bytes.Buffer
			err = json.Indent(&out, d.other[key], "  ", "  ")
			v = out.Bytes()
		}
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		buf.Write(v)
	}
	if len(d.keys) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}")
	return buf.Bytes(), nil
}

func encodeIndent(v any) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	enc.SetIndent("  ", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(b.Bytes(), "\n"), nil
}

// Collections lists the collection names in document order.
func (d *Document) Collections() []string {
	out := make([]string, 0, len(d.collections))
	for _, k := range d.keys {
		if _, ok := d.collections[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

func (d *Document) HasCollection(name string) bool {
	_, ok := d.collections[name]
	return ok
}

// ensure creates an empty collection if the name is new.
func (d *Document) ensure(name string) {
	if _, ok := d.collections[name]; ok {
		return
	}
	if _, ok := d.other[name]; ok {
		delete(d.other, name)
	} else {
		d.keys = append(d.keys, name)
	}
	d.collections[name] = []Record{}
}

// List returns the records of a collection. The slice is shared with the
// document; callers inside Update may mutate it.
func (d *Document) List(collection string) ([]Record, error) {
	recs, ok := d.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	return recs, nil
}

func (d *Document) Get(collection string, id ID) (Record, error) {
	recs, err := d.List(collection)
	if err != nil {
		return nil, err
	}
	i := indexOf(recs, id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrRecordNotFound, collection, id)
	}
	return recs[i], nil
}

// Insert appends rec to the collection, assigning an id when it has none.
// Unlike the other mutators it creates the collection on first use, which
// is how orders are added to a fresh file.
func (d *Document) Insert(collection string, rec Record) (Record, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: record must be an object", ErrInvalidRecord)
	}
	d.ensure(collection)
	recs := d.collections[collection]

	if raw, present := rec[fieldID]; present {
		id, ok := idOf(raw)
		if !ok {
			return nil, fmt.Errorf("%w: id must be a number or string", ErrInvalidRecord)
		}
		if indexOf(recs, id) >= 0 {
			return nil, fmt.Errorf("%w: %s/%s", ErrDuplicateID, collection, id)
		}
		rec[fieldID] = id.value()
	} else {
		rec[fieldID] = nextID(recs).value()
	}
	d.collections[collection] = append(recs, rec)
	return rec, nil
}

// Replace swaps the whole record, keeping its id.
func (d *Document) Replace(collection string, id ID, rec Record) (Record, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: record must be an object", ErrInvalidRecord)
	}
	recs, err := d.List(collection)
	if err != nil {
		return nil, err
	}
	i := indexOf(recs, id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrRecordNotFound, collection, id)
	}
	rec[fieldID] = recs[i][fieldID]
	recs[i] = rec
	return rec, nil
}

// Patch merges the given fields into the record. The id cannot be patched.
func (d *Document) Patch(collection string, id ID, fields Record) (Record, error) {
	recs, err := d.List(collection)
	if err != nil {
		return nil, err
	}
	i := indexOf(recs, id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrRecordNotFound, collection, id)
	}
	keep := recs[i][fieldID]
	maps.Copy(recs[i], fields)
	recs[i][fieldID] = keep
	return recs[i], nil
}

func (d *Document) Delete(collection string, id ID) error {
	recs, err := d.List(collection)
	if err != nil {
		return err
	}
	i := indexOf(recs, id)
	if i < 0 {
		return fmt.Errorf("%w: %s/%s", ErrRecordNotFound, collection, id)
	}
	d.collections[collection] = append(recs[:i], recs[i+1:]...)
	return nil
}

// MarkSoldOut sets isSoldOut on every product whose id is listed. Ids with
// no matching product are ignored. It returns how many products matched.
func (d *Document) MarkSoldOut(ids []ID) int {
	if len(ids) == 0 {
		return 0
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id.String()] = struct{}{}
	}
	n := 0
	for _, p := range d.collections[CollectionProducts] {
		id, ok := p.ID()
		if !ok {
			continue
		}
		if _, hit := want[id.String()]; hit {
			p[fieldIsSoldOut] = true
			n++
		}
	}
	return n
}

// MaxNumericID returns the largest integer id in the collection, or 0.
func (d *Document) MaxNumericID(collection string) int64 {
	var highest int64
	for _, r := range d.collections[collection] {
		id, ok := r.ID()
		if !ok {
			continue
		}
		if n, ok := id.Int(); ok && n > highest {
			highest = n
		}
	}
	return highest
}

func indexOf(recs []Record, id ID) int {
	for i, r := range recs {
		if rid, ok := r.ID(); ok && rid.String() == id.String() {
			return i
		}
	}
	return -1
}

// nextID picks max+1 for numerically keyed collections and a uuid once the
// collection holds any non-numeric id.
func nextID(recs []Record) ID {
	var highest int64
	for _, r := range recs {
		id, ok := r.ID()
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(id.String(), 10, 64)
		if err != nil {
			return StringID(uuid.NewString())
		}
		if n > highest {
			highest = n
		}
	}
	return NumericID(highest + 1)
}

// ToRecord converts a struct into a Record through its JSON form.
func ToRecord(v any) (Record, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	return rec, nil
}
