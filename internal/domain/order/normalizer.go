package order

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Normalizer maps RawOrder documents to NormalizedOrder rows.
//
// In strict mode (bulk import) order_id, order_number and created_date are
// required and domain defaults apply: customer_type "P", installments 1 and
// shipment status 0. Lenient mode (queue ingestion) never fails and leaves
// unparseable shipment statuses nil.
type Normalizer struct {
	strict   bool
	location *time.Location
	now      func() time.Time
	onWarn   func(ConversionWarning)
	validate *validator.Validate
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithStrict selects strict or lenient normalization.
func WithStrict(strict bool) NormalizerOption {
	return func(n *Normalizer) {
		n.strict = strict
	}
}

// WithLocation sets the zone vendor dates are expressed in.
func WithLocation(loc *time.Location) NormalizerOption {
	return func(n *Normalizer) {
		if loc != nil {
			n.location = loc
		}
	}
}

// WithClock overrides the clock used for created_at.
func WithClock(now func() time.Time) NormalizerOption {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// WithWarningHandler receives every recovered conversion failure.
func WithWarningHandler(fn func(ConversionWarning)) NormalizerOption {
	return func(n *Normalizer) {
		if fn != nil {
			n.onWarn = fn
		}
	}
}

// NewNormalizer creates a lenient normalizer unless WithStrict(true) is given.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	n := &Normalizer{
		location: time.Local,
		now:      time.Now,
		onWarn:   func(ConversionWarning) {},
		validate: v,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Strict reports whether required fields are enforced.
func (n *Normalizer) Strict() bool {
	return n.strict
}

// Location returns the zone dates are expressed in.
func (n *Normalizer) Location() *time.Location {
	return n.location
}

// Normalize builds a NormalizedOrder from raw. Only strict mode returns an
// error, always a *ValidationError.
func (n *Normalizer) Normalize(raw RawOrder) (*NormalizedOrder, error) {
	c := &converter{n: n}

	o := &NormalizedOrder{
		OrderID:       raw.String("OrderID"),
		OrderNumber:   raw.String("OrderNumber"),
		CreatedDate:   c.date("CreatedDate", raw.Value("CreatedDate")),
		AcquiredDate:  c.date("AcquiredDate", raw.Value("AcquiredDate")),
		CancelledDate: c.date("CancelledDate", raw.Value("CancelledDate")),

		GlobalStatus:   c.integer("GlobalStatus", raw.Value("GlobalStatus"), 0),
		OrderStatusID:  c.integer("OrderStatusID", raw.Value("OrderStatusID"), 0),
		ShipmentStatus: c.integer("ShipmentStatus", raw.Value("ShipmentStatus"), 0),

		Total:          c.float("Total", raw.Value("Total")),
		SubTotal:       c.float("SubTotal", raw.Value("SubTotal")),
		DeliveryAmount: c.float("DeliveryAmount", raw.Value("DeliveryAmount")),
		DiscountAmount: c.float("DiscountAmount", raw.Value("DiscountAmount")),
		TaxAmount:      c.float("TaxAmount", raw.Value("TaxAmount")),

		CustomerID:        c.integer("CustomerID", raw.Value("CustomerID"), 0),
		CustomerName:      raw.String("CustomerName"),
		CustomerEmail:     raw.String("CustomerEmail"),
		CustomerType:      raw.String("CustomerType"),
		CustomerCPF:       raw.String("CustomerCPF"),
		CustomerCNPJ:      raw.String("CustomerCNPJ"),
		CustomerCellPhone: raw.String("CustomerCellPhone"),
		CustomerPhone:     raw.String("CustomerPhone"),
		CustomerGender:    raw.String("CustomerGender"),
		CustomerBirthDate: c.date("CustomerBirthDate", raw.Value("CustomerBirthDate")),

		Items:           c.items(raw.List("Items")),
		PaymentMethods:  c.payments(raw.List("PaymentMethods")),
		DeliveryMethods: c.deliveryMethods(raw.List("Properties")),
		Shipments:       c.shipments(raw.List("Shipments")),

		CreatedAt: n.now().UTC().Truncate(time.Second),
	}

	if n.strict && raw.Value("CustomerType") == nil {
		o.CustomerType = DefaultCustomerType
	}

	if addr := deliveryAddress(raw.List("Addresses")); addr != nil {
		o.DeliveryAddressLine = addr.String("AddressLine")
		o.DeliveryAddressNumber = addr.String("Number")
		o.DeliveryNeighbourhood = addr.String("Neighbourhood")
		o.DeliveryCity = addr.String("City")
		o.DeliveryState = addr.String("State")
		o.DeliveryPostalCode = addr.String("PostalCode")
		o.DeliveryContactName = addr.String("ContactName")
		o.DeliveryContactPhone = addr.String("ContactPhone")
	}

	seller := raw.Object("Seller")
	o.SellerName = seller.String("Name")
	o.SellerEmail = seller.String("EMail")
	o.SellerPhone = seller.String("Phone")
	o.SellerIntegrationID = seller.String("IntegrationID")

	if n.strict {
		if err := n.check(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (n *Normalizer) check(o *NormalizedOrder) error {
	err := n.validate.Struct(o)
	if err == nil {
		return nil
	}

	verr := &ValidationError{OrderID: o.OrderID, OrderNumber: o.OrderNumber}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			verr.Fields = append(verr.Fields, fe.Field())
		}
	} else {
		verr.Fields = append(verr.Fields, err.Error())
	}
	return verr
}

// deliveryAddress returns the first address typed as delivery.
func deliveryAddress(addresses []RawOrder) RawOrder {
	for _, a := range addresses {
		if t, err := ToInt(a.Value("AddressType"), -1); err == nil && t == DeliveryAddressType {
			return a
		}
	}
	return nil
}

// converter carries one normalization pass and reports recovered failures.
type converter struct {
	n *Normalizer
}

func (c *converter) warn(field string, value any, err error) {
	c.n.onWarn(ConversionWarning{Field: field, Value: value, Err: err})
}

func (c *converter) date(field string, v any) *time.Time {
	s, ok := v.(string)
	if !ok {
		if v != nil {
			c.warn(field, v, ErrNotVendorDate)
		}
		return nil
	}
	if s == "" {
		return nil
	}
	t, err := ParseVendorDate(s, c.n.location)
	if err != nil {
		c.warn(field, v, err)
		return nil
	}
	return &t
}

func (c *converter) float(field string, v any) float64 {
	f, err := ToFloat(v, 0)
	if err != nil {
		c.warn(field, v, err)
	}
	return f
}

func (c *converter) integer(field string, v any, def int64) int64 {
	i, err := ToInt(v, def)
	if err != nil {
		c.warn(field, v, err)
	}
	return i
}

func (c *converter) items(raw []RawOrder) []Item {
	items := make([]Item, 0, len(raw))
	for i, it := range raw {
		f := func(key string) float64 {
			return c.float(fmt.Sprintf("Items[%d].%s", i, key), it.Value(key))
		}
		items = append(items, Item{
			ProductID:   it.String("ProductID"),
			ProductName: it.String("ProductName"),
			SKU:         it.String("SKU"),
			Qty:         f("Qty"),
			Price:       f("Price"),
			Total:       f("Total"),
			Weight:      f("Weight"),
			Width:       f("Width"),
			Height:      f("Height"),
			Depth:       f("Depth"),
		})
	}
	return items
}

func (c *converter) payments(raw []RawOrder) []PaymentMethod {
	var defInstallments int64
	if c.n.strict {
		defInstallments = DefaultInstallments
	}

	payments := make([]PaymentMethod, 0, len(raw))
	for i, p := range raw {
		prefix := fmt.Sprintf("PaymentMethods[%d].", i)
		info := p.Object("PaymentInfo")
		payments = append(payments, PaymentMethod{
			PaymentMethodID:   p.String("PaymentMethodID"),
			Amount:            c.float(prefix+"Amount", p.Value("Amount")),
			Status:            p.String("Status"),
			PaymentDate:       c.date(prefix+"PaymentDate", p.Value("PaymentDate")),
			Installments:      c.integer(prefix+"Installments", p.Value("Installments"), defInstallments),
			PaymentInfo:       info.String("Alias"),
			PaymentType:       info.String("PaymentType"),
			Provider:          info.String("Provider"),
			AuthorizationCode: info.String("AuthorizationCode"),
			TransactionNumber: info.String("TransactionNumber"),
		})
	}
	return payments
}

func (c *converter) deliveryMethods(properties []RawOrder) []DeliveryMethod {
	methods := make([]DeliveryMethod, 0)
	for i, p := range properties {
		if p.String("Type") != DeliveryMethodPropertyType {
			continue
		}
		methods = append(methods, DeliveryMethod{
			DeliveryMethodAlias: p.String("Reference"),
			ETA:                 p.String("Message"),
			Amount:              c.float(fmt.Sprintf("Properties[%d].Amount", i), p.Value("Amount")),
			CarrierName:         DefaultCarrierName,
		})
	}
	return methods
}

func (c *converter) shipments(raw []RawOrder) []Shipment {
	shipments := make([]Shipment, 0, len(raw))
	for i, s := range raw {
		sh := Shipment{ShipmentNumber: s.String("ShipmentNumber")}

		status, err := ToInt(s.Value("ShipmentStatus"), 0)
		switch {
		case err == nil && s.Value("ShipmentStatus") != nil:
			sh.ShipmentStatus = &status
		case c.n.strict:
			var zero int64
			sh.ShipmentStatus = &zero
		}
		if err != nil {
			c.warn(fmt.Sprintf("Shipments[%d].ShipmentStatus", i), s.Value("ShipmentStatus"), err)
		}
		shipments = append(shipments, sh)
	}
	return shipments
}
