package catalog

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) *Document {
	t.Helper()
	doc, err := ParseDocument([]byte(s))
	require.NoError(t, err)
	return doc
}

func TestMarkSoldOut(t *testing.T) {
	doc := mustParse(t, `{"products": [
		{"id": 1, "isSoldOut": false},
		{"id": "2", "isSoldOut": false},
		{"id": 3, "isSoldOut": true},
		{"id": 4}
	]}`)

	n := doc.MarkSoldOut([]ID{NumericID(1), NumericID(2), NumericID(99)})
	assert.Equal(t, 2, n)

	recs, err := doc.List(CollectionProducts)
	require.NoError(t, err)
	assert.Equal(t, true, recs[0]["isSoldOut"])
	assert.Equal(t, true, recs[1]["isSoldOut"])
	assert.Equal(t, true, recs[2]["isSoldOut"], "already sold stays sold")
	assert.NotContains(t, recs[3], "isSoldOut")
}

func TestMarkSoldOutWithoutProducts(t *testing.T) {
	doc := NewDocument()
	assert.Equal(t, 0, doc.MarkSoldOut([]ID{NumericID(1)}))
	assert.False(t, doc.HasCollection(CollectionProducts))
}

func TestInsertAssignsIDs(t *testing.T) {
	doc := mustParse(t, `{"products": [{"id": 4}, {"id": 10}]}`)

	rec, err := doc.Insert(CollectionProducts, Record{"name": "new"})
	require.NoError(t, err)
	id, ok := rec.ID()
	require.True(t, ok)
	assert.Equal(t, "11", id.String())

	_, err = doc.Insert(CollectionProducts, Record{"id": json.Number("10")})
	assert.ErrorIs(t, err, ErrDuplicateID)

	_, err = doc.Insert(CollectionProducts, Record{"id": []any{1}})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestInsertUsesUUIDForStringKeyedCollections(t *testing.T) {
	doc := mustParse(t, `{"reviews": [{"id": "abc"}]}`)

	rec, err := doc.Insert("reviews", Record{"text": "nice"})
	require.NoError(t, err)
	id, _ := rec.ID()
	_, err = uuid.Parse(id.String())
	assert.NoError(t, err)
}

func TestReplacePatchDelete(t *testing.T) {
	doc := mustParse(t, `{"products": [{"id": 1, "name": "a", "price": 5}]}`)

	rec, err := doc.Patch(CollectionProducts, StringID("1"), Record{"id": 42, "price": 6})
	require.NoError(t, err)
	assert.Equal(t, json.Number("1"), rec["id"])
	assert.Equal(t, 6, rec["price"])
	assert.Equal(t, "a", rec["name"])

	rec, err = doc.Replace(CollectionProducts, NumericID(1), Record{"name": "b"})
	require.NoError(t, err)
	assert.Equal(t, Record{"id": json.Number("1"), "name": "b"}, rec)

	_, err = doc.Replace(CollectionProducts, NumericID(2), Record{})
	assert.ErrorIs(t, err, ErrRecordNotFound)

	require.NoError(t, doc.Delete(CollectionProducts, NumericID(1)))
	assert.ErrorIs(t, doc.Delete(CollectionProducts, NumericID(1)), ErrRecordNotFound)
	assert.ErrorIs(t, doc.Delete("nope", NumericID(1)), ErrCollectionNotFound)
}

func TestMarshalKeepsNumbersAndOrder(t *testing.T) {
	in := `{"orders": [{"id": 1700000000000, "total": 100.10}], "products": []}`
	doc := mustParse(t, in)

	out, err := doc.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
	assert.Contains(t, string(out), "100.10")
	assert.Contains(t, string(out), "1700000000000")
	assert.Equal(t, []string{"orders", "products"}, doc.Collections())
}

func TestMarshalDoesNotEscapeHTML(t *testing.T) {
	doc := mustParse(t, `{"orders": [{"id": 1, "notes": "ring <b> & leave"}], "banner": "<sale> & more"}`)

	out, err := doc.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(out), `"notes": "ring <b> & leave"`)
	assert.Contains(t, string(out), `"banner": "<sale> & more"`)
	assert.NotContains(t, string(out), `\u003c`)

	again := mustParse(t, string(out))
	rec, err := again.Get(CollectionOrders, NumericID(1))
	require.NoError(t, err)
	assert.Equal(t, "ring <b> & leave", rec["notes"])
}

func TestMaxNumericID(t *testing.T) {
	doc := mustParse(t, `{"orders": [{"id": 5}, {"id": "x"}, {"id": 12}, {}]}`)
	assert.Equal(t, int64(12), doc.MaxNumericID(CollectionOrders))
	assert.Equal(t, int64(0), doc.MaxNumericID("missing"))
}

func TestIDJSON(t *testing.T) {
	var ids []ID
	require.NoError(t, json.Unmarshal([]byte(`[7, "sku-1"]`), &ids))
	assert.Equal(t, []ID{NumericID(7), StringID("sku-1")}, ids)

	out, err := json.Marshal(ids)
	require.NoError(t, err)
	assert.Equal(t, `[7,"sku-1"]`, string(out))

	var bad ID
	assert.ErrorIs(t, json.Unmarshal([]byte(`null`), &bad), ErrInvalidRecord)
}
