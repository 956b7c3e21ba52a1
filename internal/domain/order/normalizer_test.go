package order

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestNormalizer(strict bool, warnings *[]ConversionWarning) *Normalizer {
	return NewNormalizer(
		WithStrict(strict),
		WithLocation(brt),
		WithClock(func() time.Time { return fixedNow }),
		WithWarningHandler(func(w ConversionWarning) {
			if warnings != nil {
				*warnings = append(*warnings, w)
			}
		}),
	)
}

func loadRawOrder(t *testing.T, name string) RawOrder {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "orders", name))
	require.NoError(t, err)
	raw, err := DecodeRawOrder(data)
	require.NoError(t, err)
	return raw
}

func assertGolden(t *testing.T, name string, o *NormalizedOrder) {
	t.Helper()
	data, err := json.MarshalIndent(o, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, name, append(data, '\n'))
}

// ---------------------------------------------------------------------------
// Golden output
// ---------------------------------------------------------------------------

func TestNormalizer_Strict_FullOrder(t *testing.T) {
	var warnings []ConversionWarning
	n := newTestNormalizer(true, &warnings)

	o, err := n.Normalize(loadRawOrder(t, "full_order.json"))
	require.NoError(t, err)
	assertGolden(t, "full_order_strict", o)

	fields := make([]string, 0, len(warnings))
	for _, w := range warnings {
		fields = append(fields, w.Field)
	}
	assert.ElementsMatch(t, []string{"TaxAmount", "Shipments[0].ShipmentStatus"}, fields)
}

func TestNormalizer_Lenient_FullOrder(t *testing.T) {
	n := newTestNormalizer(false, nil)

	o, err := n.Normalize(loadRawOrder(t, "full_order.json"))
	require.NoError(t, err)
	assertGolden(t, "full_order_lenient", o)
}

// ---------------------------------------------------------------------------
// Required fields
// ---------------------------------------------------------------------------

func TestNormalizer_Strict_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		raw     RawOrder
		missing []string
	}{
		{
			name:    "missing order id",
			raw:     RawOrder{"OrderNumber": "V-1", "CreatedDate": "/Date(1700000000000)/"},
			missing: []string{"order_id"},
		},
		{
			name:    "missing order number",
			raw:     RawOrder{"OrderID": json.Number("1"), "CreatedDate": "/Date(1700000000000)/"},
			missing: []string{"order_number"},
		},
		{
			name:    "malformed created date",
			raw:     RawOrder{"OrderID": "1", "OrderNumber": "V-1", "CreatedDate": "/Date(oops)/"},
			missing: []string{"created_date"},
		},
		{
			name:    "everything missing",
			raw:     RawOrder{},
			missing: []string{"order_id", "order_number", "created_date"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := newTestNormalizer(true, nil).Normalize(tt.raw)
			assert.Nil(t, o)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.ElementsMatch(t, tt.missing, verr.Fields)
		})
	}
}

func TestNormalizer_Lenient_MissingOrderID(t *testing.T) {
	raw := RawOrder{"OrderNumber": "V-1"}

	o, err := newTestNormalizer(false, nil).Normalize(raw)
	require.NoError(t, err)
	assert.Empty(t, o.OrderID)
	assert.Equal(t, "V-1", o.OrderNumber)
	assert.Nil(t, o.CreatedDate)
	assert.Empty(t, o.CustomerType)
}

// ---------------------------------------------------------------------------
// Field mapping
// ---------------------------------------------------------------------------

func TestNormalizer_NoDeliveryAddress(t *testing.T) {
	raw := RawOrder{
		"OrderID":     "1",
		"OrderNumber": "V-1",
		"CreatedDate": "/Date(1700000000000)/",
		"Addresses": []any{
			map[string]any{"AddressType": json.Number("1"), "AddressLine": "Billing"},
		},
	}

	o, err := newTestNormalizer(true, nil).Normalize(raw)
	require.NoError(t, err)
	assert.Empty(t, o.DeliveryAddressLine)
	assert.Empty(t, o.DeliveryCity)
	assert.Empty(t, o.DeliveryContactPhone)
}

func TestNormalizer_DeliveryAddressTypeAsString(t *testing.T) {
	raw := RawOrder{
		"OrderID":     "1",
		"OrderNumber": "V-1",
		"CreatedDate": "/Date(1700000000000)/",
		"Addresses": []any{
			map[string]any{"AddressType": "68", "City": "Recife"},
		},
	}

	o, err := newTestNormalizer(true, nil).Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "Recife", o.DeliveryCity)
}

func TestNormalizer_StrictDefaults(t *testing.T) {
	raw := RawOrder{
		"OrderID":        "1",
		"OrderNumber":    "V-1",
		"CreatedDate":    "/Date(1700000000000)/",
		"PaymentMethods": []any{map[string]any{"PaymentMethodID": "9"}},
	}

	strict, err := newTestNormalizer(true, nil).Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, DefaultCustomerType, strict.CustomerType)
	require.Len(t, strict.PaymentMethods, 1)
	assert.Equal(t, int64(DefaultInstallments), strict.PaymentMethods[0].Installments)

	lenient, err := newTestNormalizer(false, nil).Normalize(raw)
	require.NoError(t, err)
	assert.Empty(t, lenient.CustomerType)
	assert.Zero(t, lenient.PaymentMethods[0].Installments)
}

func TestNormalizer_EmptyListsAreNotNil(t *testing.T) {
	raw := RawOrder{"OrderID": "1", "OrderNumber": "V-1", "CreatedDate": "/Date(1700000000000)/"}

	o, err := newTestNormalizer(true, nil).Normalize(raw)
	require.NoError(t, err)
	assert.NotNil(t, o.Items)
	assert.NotNil(t, o.PaymentMethods)
	assert.NotNil(t, o.DeliveryMethods)
	assert.NotNil(t, o.Shipments)
	assert.Equal(t, fixedNow, o.CreatedAt)
}

func TestNormalizer_ExplicitNullSeller(t *testing.T) {
	raw := RawOrder{"OrderID": "1", "OrderNumber": "V-1", "CreatedDate": "/Date(1700000000000)/", "Seller": nil}

	o, err := newTestNormalizer(true, nil).Normalize(raw)
	require.NoError(t, err)
	assert.Empty(t, o.SellerName)
}

// ---------------------------------------------------------------------------
// Randomized documents
// ---------------------------------------------------------------------------

// randomScalar returns values of the shapes LINX is known to send.
func randomScalar(f *gofakeit.Faker) any {
	switch f.Number(0, 6) {
	case 0:
		return nil
	case 1:
		return json.Number(f.Numerify("###"))
	case 2:
		return f.Numerify("##.##")
	case 3:
		return f.Word()
	case 4:
		return f.Bool()
	case 5:
		return FormatVendorDate(f.Date())
	default:
		return "/Date(" + f.Word() + ")/"
	}
}

func randomRawOrder(f *gofakeit.Faker) RawOrder {
	raw := RawOrder{}
	for _, key := range []string{
		"OrderID", "OrderNumber", "CreatedDate", "AcquiredDate", "GlobalStatus",
		"Total", "SubTotal", "CustomerID", "CustomerType", "CustomerBirthDate", "ShipmentStatus",
	} {
		if f.Bool() {
			raw[key] = randomScalar(f)
		}
	}

	items := make([]any, f.Number(0, 3))
	for i := range items {
		items[i] = map[string]any{"SKU": randomScalar(f), "Qty": randomScalar(f), "Price": randomScalar(f)}
	}
	raw["Items"] = items

	shipments := make([]any, f.Number(0, 2))
	for i := range shipments {
		shipments[i] = map[string]any{"ShipmentNumber": randomScalar(f), "ShipmentStatus": randomScalar(f)}
	}
	raw["Shipments"] = shipments

	raw["Addresses"] = []any{map[string]any{"AddressType": randomScalar(f), "City": f.City()}}
	raw["Properties"] = []any{map[string]any{"Type": DeliveryMethodPropertyType, "Amount": randomScalar(f)}}
	raw["PaymentMethods"] = []any{map[string]any{"Installments": randomScalar(f), "PaymentInfo": randomScalar(f)}}
	if f.Bool() {
		raw["Seller"] = map[string]any{"Name": f.Company()}
	}
	return raw
}

func TestNormalizer_RandomDocuments(t *testing.T) {
	f := gofakeit.New(20240115)
	lenient := newTestNormalizer(false, nil)
	strict := newTestNormalizer(true, nil)

	for i := 0; i < 500; i++ {
		raw := randomRawOrder(f)

		o, err := lenient.Normalize(raw)
		require.NoError(t, err, "lenient normalization never fails")
		require.NotNil(t, o)

		so, err := strict.Normalize(raw)
		if err != nil {
			assert.ErrorIs(t, err, ErrValidation)
			continue
		}
		assert.NotEmpty(t, so.OrderID)
		assert.NotEmpty(t, so.OrderNumber)
		assert.NotNil(t, so.CreatedDate)
		for _, s := range so.Shipments {
			assert.NotNil(t, s.ShipmentStatus, "strict shipments always carry a status")
		}
	}
}
