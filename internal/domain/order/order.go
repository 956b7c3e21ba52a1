package order

import "time"

const (
	// DeliveryAddressType is the LINX address type code of the delivery address.
	DeliveryAddressType = 68
	// DeliveryMethodPropertyType marks order properties that describe a delivery method.
	DeliveryMethodPropertyType = "DeliveryMethod"
	// DefaultCarrierName is written for every delivery method; LINX does not expose the carrier.
	DefaultCarrierName = "Personalizado"
	// DefaultCustomerType is the strict default for a missing CustomerType (person).
	DefaultCustomerType = "P"
	// DefaultInstallments is the strict default for a missing payment installment count.
	DefaultInstallments = 1
)

// NormalizedOrder is the flat analytic row produced from one RawOrder.
// Dates are nil when the source value is missing or malformed.
type NormalizedOrder struct {
	OrderID       string     `json:"order_id" validate:"required"`
	OrderNumber   string     `json:"order_number" validate:"required"`
	CreatedDate   *time.Time `json:"created_date" validate:"required"`
	AcquiredDate  *time.Time `json:"acquired_date"`
	CancelledDate *time.Time `json:"cancelled_date"`

	GlobalStatus   int64 `json:"global_status"`
	OrderStatusID  int64 `json:"order_status_id"`
	ShipmentStatus int64 `json:"shipment_status"`

	Total          float64 `json:"total"`
	SubTotal       float64 `json:"subtotal"`
	DeliveryAmount float64 `json:"delivery_amount"`
	DiscountAmount float64 `json:"discount_amount"`
	TaxAmount      float64 `json:"tax_amount"`

	CustomerID        int64      `json:"customer_id"`
	CustomerName      string     `json:"customer_name"`
	CustomerEmail     string     `json:"customer_email"`
	CustomerType      string     `json:"customer_type"`
	CustomerCPF       string     `json:"customer_cpf"`
	CustomerCNPJ      string     `json:"customer_cnpj"`
	CustomerCellPhone string     `json:"customer_cell_phone"`
	CustomerPhone     string     `json:"customer_phone"`
	CustomerGender    string     `json:"customer_gender"`
	CustomerBirthDate *time.Time `json:"customer_birth_date"`

	DeliveryAddressLine   string `json:"delivery_address_line"`
	DeliveryAddressNumber string `json:"delivery_address_number"`
	DeliveryNeighbourhood string `json:"delivery_neighbourhood"`
	DeliveryCity          string `json:"delivery_city"`
	DeliveryState         string `json:"delivery_state"`
	DeliveryPostalCode    string `json:"delivery_postal_code"`
	DeliveryContactName   string `json:"delivery_contact_name"`
	DeliveryContactPhone  string `json:"delivery_contact_phone"`

	Items           []Item           `json:"items"`
	PaymentMethods  []PaymentMethod  `json:"payment_methods"`
	DeliveryMethods []DeliveryMethod `json:"delivery_methods"`
	Shipments       []Shipment       `json:"shipments"`

	SellerName          string `json:"seller_name"`
	SellerEmail         string `json:"seller_email"`
	SellerPhone         string `json:"seller_phone"`
	SellerIntegrationID string `json:"seller_integration_id"`

	// CreatedAt is the UTC time the row was normalized.
	CreatedAt time.Time `json:"created_at"`
}

// Item is one order line.
type Item struct {
	ProductID   string  `json:"ProductID"`
	ProductName string  `json:"ProductName"`
	SKU         string  `json:"SKU"`
	Qty         float64 `json:"Qty"`
	Price       float64 `json:"Price"`
	Total       float64 `json:"Total"`
	Weight      float64 `json:"Weight"`
	Width       float64 `json:"Width"`
	Height      float64 `json:"Height"`
	Depth       float64 `json:"Depth"`
}

// PaymentMethod is one payment with its flattened PaymentInfo block.
type PaymentMethod struct {
	PaymentMethodID   string     `json:"PaymentMethodID"`
	Amount            float64    `json:"Amount"`
	Status            string     `json:"Status"`
	PaymentDate       *time.Time `json:"PaymentDate"`
	Installments      int64      `json:"Installments"`
	PaymentInfo       string     `json:"PaymentInfo"`
	PaymentType       string     `json:"PaymentType"`
	Provider          string     `json:"Provider"`
	AuthorizationCode string     `json:"AuthorizationCode"`
	TransactionNumber string     `json:"TransactionNumber"`
}

// DeliveryMethod is built from an order property of type DeliveryMethod.
type DeliveryMethod struct {
	DeliveryMethodAlias string  `json:"DeliveryMethodAlias"`
	ETA                 string  `json:"ETA"`
	Amount              float64 `json:"Amount"`
	CarrierName         string  `json:"CarrierName"`
}

// Shipment status is nil only for lenient normalization of an unparseable value.
type Shipment struct {
	ShipmentNumber string `json:"ShipmentNumber"`
	ShipmentStatus *int64 `json:"ShipmentStatus"`
}

// Ref returns the most useful identifier for logs.
func (o *NormalizedOrder) Ref() string {
	if o.OrderNumber != "" {
		return o.OrderNumber
	}
	return o.OrderID
}
