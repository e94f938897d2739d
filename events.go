package paysheet

import (
	"github.com/stripe/stripe-go/v81"
)

// EventType names an event kind in the payment-request stream.
type EventType string

const (
	EventCancel                EventType = "cancel"
	EventShippingAddressChange EventType = "shippingaddresschange"
	EventShippingOptionChange  EventType = "shippingoptionchange"
	EventPaymentMethod         EventType = "paymentmethod"
	EventSource                EventType = "source"
	EventToken                 EventType = "token"
)

// KnownEventTypes lists every event kind this package understands.
var KnownEventTypes = []EventType{
	EventCancel,
	EventShippingAddressChange,
	EventShippingOptionChange,
	EventPaymentMethod,
	EventSource,
	EventToken,
}

// Event is implemented by every payload the event stream can deliver. The
// concrete types below are the full set; handlers switch on them.
type Event interface {
	Type() EventType
}

// CancelEvent fires when the sheet is dismissed from the host side: the payer
// closed it, or the wallet UI took it down.
type CancelEvent struct{}

func (*CancelEvent) Type() EventType { return EventCancel }

// ShippingAddressChangeEvent fires when the payer picks a shipping address.
// The host holds the sheet on a spinner until UpdateWith is called; the
// shipping protocol owns that call and issues it exactly once per consumed
// event.
type ShippingAddressChangeEvent struct {
	ShippingAddress ShippingAddress
	UpdateWith      func(UpdateDetails)
}

func (*ShippingAddressChangeEvent) Type() EventType { return EventShippingAddressChange }

// ShippingOptionChangeEvent fires when the payer picks a shipping option.
// UpdateWith follows the same contract as ShippingAddressChangeEvent.
type ShippingOptionChangeEvent struct {
	ShippingOption ShippingOption
	UpdateWith     func(UpdateDetails)
}

func (*ShippingOptionChangeEvent) Type() EventType { return EventShippingOptionChange }

// PayerInfo carries the payer fields shared by the three payment events.
type PayerInfo struct {
	PayerName  string `json:"payerName,omitempty"`
	PayerEmail string `json:"payerEmail,omitempty"`
	PayerPhone string `json:"payerPhone,omitempty"`
	MethodName string `json:"methodName,omitempty"`
	WalletName Wallet `json:"walletName,omitempty"`
}

// PaymentMethodPayload is PaymentMethodEvent minus its Complete function.
// Responders receive the payload alone; the completion call stays with the
// protocol so a responder cannot complete twice or not at all.
type PaymentMethodPayload struct {
	PayerInfo
	PaymentMethod   *stripe.PaymentMethod `json:"paymentMethod"`
	ShippingAddress *ShippingAddress      `json:"shippingAddress,omitempty"`
	ShippingOption  *ShippingOption       `json:"shippingOption,omitempty"`
}

// PaymentMethodEvent fires when the payer authorizes and the provider minted
// a reusable payment method for the merchant to charge.
type PaymentMethodEvent struct {
	PaymentMethodPayload
	Complete func(CompletionStatus)
}

func (*PaymentMethodEvent) Type() EventType { return EventPaymentMethod }

// SourcePayload is SourceEvent minus its Complete function.
type SourcePayload struct {
	PayerInfo
	Source          *stripe.Source   `json:"source"`
	ShippingAddress *ShippingAddress `json:"shippingAddress,omitempty"`
	ShippingOption  *ShippingOption  `json:"shippingOption,omitempty"`
}

// SourceEvent fires when the payer authorizes and the provider minted a
// source object.
type SourceEvent struct {
	SourcePayload
	Complete func(CompletionStatus)
}

func (*SourceEvent) Type() EventType { return EventSource }

// TokenPayload is TokenEvent minus its Complete function.
type TokenPayload struct {
	PayerInfo
	Token           *stripe.Token    `json:"token"`
	ShippingAddress *ShippingAddress `json:"shippingAddress,omitempty"`
	ShippingOption  *ShippingOption  `json:"shippingOption,omitempty"`
}

// TokenEvent fires when the payer authorizes and the provider minted a
// single-use card token.
type TokenEvent struct {
	TokenPayload
	Complete func(CompletionStatus)
}

func (*TokenEvent) Type() EventType { return EventToken }
