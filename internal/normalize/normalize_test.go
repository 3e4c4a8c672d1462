package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestProduct_FieldPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      string
		wantID    string
		wantName  string
		wantPrice string
	}{
		{
			name:   "canonical fields",
			body:   `{"id": 7, "name": "Ball", "price": 19.90}`,
			wantID: "7", wantName: "Ball", wantPrice: "19.9",
		},
		{
			name:   "id beats _id and product_id",
			body:   `{"product_id": "p", "_id": "m", "id": "i", "title": "T", "price": 1}`,
			wantID: "i", wantName: "T", wantPrice: "1",
		},
		{
			name:   "null id falls through to the next field",
			body:   `{"id": null, "productId": "p-1", "label": "L", "unit_price": "2.50"}`,
			wantID: "p-1", wantName: "L", wantPrice: "2.5",
		},
		{
			name:   "numeric id is canonical",
			body:   `{"id": 7.0, "name": "x", "price": 1}`,
			wantID: "7", wantName: "x", wantPrice: "1",
		},
		{
			name:   "major price beats minor price",
			body:   `{"id": "a", "price": 3, "price_cents": 999}`,
			wantID: "a", wantPrice: "3",
		},
		{
			name:   "minor price is shifted",
			body:   `{"id": "a", "priceCents": 1990}`,
			wantID: "a", wantPrice: "19.9",
		},
		{
			name:   "amount tagged as cents",
			body:   `{"id": "a", "amount": 250, "amount_unit": "cents"}`,
			wantID: "a", wantPrice: "2.5",
		},
		{
			name:   "amount tagged as major",
			body:   `{"id": "a", "amount": "12.00", "unit": "MAJOR"}`,
			wantID: "a", wantPrice: "12",
		},
		{
			name:   "negative price is clamped",
			body:   `{"id": "a", "price": -5}`,
			wantID: "a", wantPrice: "0",
		},
		{
			name:   "non-numeric price is zero",
			body:   `{"id": "a", "price": "free"}`,
			wantID: "a", wantPrice: "0",
		},
		{
			name:   "no price at all",
			body:   `{"name": "Sample"}`,
			wantName: "Sample", wantPrice: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := Product([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, p.ID)
			assert.Equal(t, tt.wantName, p.Name)
			assert.Equal(t, tt.wantPrice, p.Price.String())
		})
	}
}

func TestProduct_ImageAndDescription(t *testing.T) {
	t.Parallel()

	p, err := Product([]byte(`{"id": 1, "image_url": " a.png ", "image": "b.png", "desc": "short"}`))
	require.NoError(t, err)
	assert.Equal(t, "a.png", p.ImageURL)
	assert.Equal(t, "short", p.Description)
}

func TestProduct_Errors(t *testing.T) {
	t.Parallel()

	_, err := Product([]byte(`{"id": "a", "amount": 250}`))
	assert.ErrorIs(t, err, ErrAmbiguousUnit, "untagged amount must not be guessed")

	_, err = Product([]byte(`{"id": "a", "amount": 250, "unit": "dollars"}`))
	assert.ErrorIs(t, err, ErrAmbiguousUnit)

	_, err = Product([]byte(`{"price": 3}`))
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = Product([]byte(`{"id": `))
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestQuantity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		body    string
		want    int
		wantOK  bool
		wantErr error
	}{
		{`{"quantity": 3, "qty": 9}`, 3, true, nil},
		{`{"qty": "2"}`, 2, true, nil},
		{`{"qty": 2.7}`, 2, true, nil},
		{`{"qty": 9223372036854775807}`, math.MaxInt64, true, nil},
		{`{"qty": 9223372036854775808}`, 0, true, ErrQuantityRange},
		{`{"qty": "1e30"}`, 0, true, ErrQuantityRange},
		{`{"qty": -9223372036854775809}`, 0, true, ErrQuantityRange},
		{`{"qty": "many"}`, 0, false, nil},
		{`{}`, 0, false, nil},
	}

	for _, tt := range tests {
		got, ok, err := Quantity(gjson.Parse(tt.body))
		assert.Equal(t, tt.wantOK, ok, tt.body)
		assert.Equal(t, tt.want, got, tt.body)
		if tt.wantErr != nil {
			assert.ErrorIs(t, err, tt.wantErr, tt.body)
		} else {
			assert.NoError(t, err, tt.body)
		}
	}
}

func TestKeys(t *testing.T) {
	t.Parallel()

	got := Keys(gjson.Parse(`[1, "2", 3.0, " sku ", null, true, ""]`))
	assert.Equal(t, []string{"1", "2", "3", "sku"}, got)

	assert.Empty(t, Keys(gjson.Parse(`[]`)))
}

func TestUnwrap(t *testing.T) {
	t.Parallel()

	assert.JSONEq(t, `{"id": 1}`, string(Unwrap([]byte(`{"data": {"id": 1}}`), "data", "product")))
	assert.JSONEq(t, `{"id": 2}`, string(Unwrap([]byte(`{"product": {"id": 2}}`), "data", "product")))
	assert.JSONEq(t, `{"id": 3}`, string(Unwrap([]byte(`{"id": 3}`), "data")))
	assert.JSONEq(t, `{"data": [1]}`, string(Unwrap([]byte(`{"data": [1]}`), "data")))
}
