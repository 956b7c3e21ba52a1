package models

import (
	"time"

	"github.com/betminds/linx-orders/internal/domain/order"
)

// DefaultOrderTable is the analytic table name used when none is configured.
const DefaultOrderTable = "linx_orders"

// OrderModel is one analytic order row. The sink is append-only, so ID is a
// surrogate key and order_id is not unique until duplicates are reconciled.
// Date columns carry no explicit type so each dialect picks its own
// (timestamptz on PostgreSQL).
type OrderModel struct {
	ID            uint64     `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID       string     `gorm:"column:order_id;type:varchar(64);index"`
	OrderNumber   string     `gorm:"column:order_number;type:varchar(64);index"`
	CreatedDate   *time.Time `gorm:"column:created_date;index"`
	AcquiredDate  *time.Time `gorm:"column:acquired_date"`
	CancelledDate *time.Time `gorm:"column:cancelled_date"`

	GlobalStatus   int64 `gorm:"column:global_status;not null;default:0"`
	OrderStatusID  int64 `gorm:"column:order_status_id;not null;default:0"`
	ShipmentStatus int64 `gorm:"column:shipment_status;not null;default:0"`

	Total          float64 `gorm:"column:total;not null;default:0"`
	SubTotal       float64 `gorm:"column:subtotal;not null;default:0"`
	DeliveryAmount float64 `gorm:"column:delivery_amount;not null;default:0"`
	DiscountAmount float64 `gorm:"column:discount_amount;not null;default:0"`
	TaxAmount      float64 `gorm:"column:tax_amount;not null;default:0"`

	CustomerID        int64      `gorm:"column:customer_id;not null;default:0"`
	CustomerName      string     `gorm:"column:customer_name"`
	CustomerEmail     string     `gorm:"column:customer_email"`
	CustomerType      string     `gorm:"column:customer_type;type:varchar(8)"`
	CustomerCPF       string     `gorm:"column:customer_cpf;type:varchar(32)"`
	CustomerCNPJ      string     `gorm:"column:customer_cnpj;type:varchar(32)"`
	CustomerCellPhone string     `gorm:"column:customer_cell_phone;type:varchar(32)"`
	CustomerPhone     string     `gorm:"column:customer_phone;type:varchar(32)"`
	CustomerGender    string     `gorm:"column:customer_gender;type:varchar(8)"`
	CustomerBirthDate *time.Time `gorm:"column:customer_birth_date"`

	DeliveryAddressLine   string `gorm:"column:delivery_address_line"`
	DeliveryAddressNumber string `gorm:"column:delivery_address_number"`
	DeliveryNeighbourhood string `gorm:"column:delivery_neighbourhood"`
	DeliveryCity          string `gorm:"column:delivery_city"`
	DeliveryState         string `gorm:"column:delivery_state"`
	DeliveryPostalCode    string `gorm:"column:delivery_postal_code"`
	DeliveryContactName   string `gorm:"column:delivery_contact_name"`
	DeliveryContactPhone  string `gorm:"column:delivery_contact_phone"`

	Items           []order.Item           `gorm:"column:items;serializer:json;type:jsonb"`
	PaymentMethods  []order.PaymentMethod  `gorm:"column:payment_methods;serializer:json;type:jsonb"`
	DeliveryMethods []order.DeliveryMethod `gorm:"column:delivery_methods;serializer:json;type:jsonb"`
	Shipments       []order.Shipment       `gorm:"column:shipments;serializer:json;type:jsonb"`

	SellerName          string `gorm:"column:seller_name"`
	SellerEmail         string `gorm:"column:seller_email"`
	SellerPhone         string `gorm:"column:seller_phone"`
	SellerIntegrationID string `gorm:"column:seller_integration_id"`

	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return DefaultOrderTable
}

// FromDomain populates the model from a normalized order. Nil sub-lists are
// stored as empty JSON arrays.
func (m *OrderModel) FromDomain(o *order.NormalizedOrder) {
	m.OrderID = o.OrderID
	m.OrderNumber = o.OrderNumber
	m.CreatedDate = o.CreatedDate
	m.AcquiredDate = o.AcquiredDate
	m.CancelledDate = o.CancelledDate
	m.GlobalStatus = o.GlobalStatus
	m.OrderStatusID = o.OrderStatusID
	m.ShipmentStatus = o.ShipmentStatus
	m.Total = o.Total
	m.SubTotal = o.SubTotal
	m.DeliveryAmount = o.DeliveryAmount
	m.DiscountAmount = o.DiscountAmount
	m.TaxAmount = o.TaxAmount
	m.CustomerID = o.CustomerID
	m.CustomerName = o.CustomerName
	m.CustomerEmail = o.CustomerEmail
	m.CustomerType = o.CustomerType
	m.CustomerCPF = o.CustomerCPF
	m.CustomerCNPJ = o.CustomerCNPJ
	m.CustomerCellPhone = o.CustomerCellPhone
	m.CustomerPhone = o.CustomerPhone
	m.CustomerGender = o.CustomerGender
	m.CustomerBirthDate = o.CustomerBirthDate
	m.DeliveryAddressLine = o.DeliveryAddressLine
	m.DeliveryAddressNumber = o.DeliveryAddressNumber
	m.DeliveryNeighbourhood = o.DeliveryNeighbourhood
	m.DeliveryCity = o.DeliveryCity
	m.DeliveryState = o.DeliveryState
	m.DeliveryPostalCode = o.DeliveryPostalCode
	m.DeliveryContactName = o.DeliveryContactName
	m.DeliveryContactPhone = o.DeliveryContactPhone
	m.Items = nonNil(o.Items)
	m.PaymentMethods = nonNil(o.PaymentMethods)
	m.DeliveryMethods = nonNil(o.DeliveryMethods)
	m.Shipments = nonNil(o.Shipments)
	m.SellerName = o.SellerName
	m.SellerEmail = o.SellerEmail
	m.SellerPhone = o.SellerPhone
	m.SellerIntegrationID = o.SellerIntegrationID
	m.CreatedAt = o.CreatedAt
}

// ToDomain converts the row back into a normalized order.
func (m *OrderModel) ToDomain() *order.NormalizedOrder {
	return &order.NormalizedOrder{
		OrderID:               m.OrderID,
		OrderNumber:           m.OrderNumber,
		CreatedDate:           m.CreatedDate,
		AcquiredDate:          m.AcquiredDate,
		CancelledDate:         m.CancelledDate,
		GlobalStatus:          m.GlobalStatus,
		OrderStatusID:         m.OrderStatusID,
		ShipmentStatus:        m.ShipmentStatus,
		Total:                 m.Total,
		SubTotal:              m.SubTotal,
		DeliveryAmount:        m.DeliveryAmount,
		DiscountAmount:        m.DiscountAmount,
		TaxAmount:             m.TaxAmount,
		CustomerID:            m.CustomerID,
		CustomerName:          m.CustomerName,
		CustomerEmail:         m.CustomerEmail,
		CustomerType:          m.CustomerType,
		CustomerCPF:           m.CustomerCPF,
		CustomerCNPJ:          m.CustomerCNPJ,
		CustomerCellPhone:     m.CustomerCellPhone,
		CustomerPhone:         m.CustomerPhone,
		CustomerGender:        m.CustomerGender,
		CustomerBirthDate:     m.CustomerBirthDate,
		DeliveryAddressLine:   m.DeliveryAddressLine,
		DeliveryAddressNumber: m.DeliveryAddressNumber,
		DeliveryNeighbourhood: m.DeliveryNeighbourhood,
		DeliveryCity:          m.DeliveryCity,
		DeliveryState:         m.DeliveryState,
		DeliveryPostalCode:    m.DeliveryPostalCode,
		DeliveryContactName:   m.DeliveryContactName,
		DeliveryContactPhone:  m.DeliveryContactPhone,
		Items:                 m.Items,
		PaymentMethods:        m.PaymentMethods,
		DeliveryMethods:       m.DeliveryMethods,
		Shipments:             m.Shipments,
		SellerName:            m.SellerName,
		SellerEmail:           m.SellerEmail,
		SellerPhone:           m.SellerPhone,
		SellerIntegrationID:   m.SellerIntegrationID,
		CreatedAt:             m.CreatedAt,
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
