package remote

import (
	"encoding/json"

	"github.com/paysheet/paysheet"
)

// MessageType names a bridge protocol message.
type MessageType string

// Bridge-to-host messages.
const (
	MessageCreate         MessageType = "create"
	MessageUpdate         MessageType = "update"
	MessageShow           MessageType = "show"
	MessageAbort          MessageType = "abort"
	MessageCanMakePayment MessageType = "canMakePayment"
	MessageUpdateWith     MessageType = "updateWith"
	MessageComplete       MessageType = "complete"
	MessageError          MessageType = "error"
)

// Host-to-bridge messages.
const (
	MessageConfigure            MessageType = "configure"
	MessageCanMakePaymentResult MessageType = "canMakePaymentResult"
	MessageEvent                MessageType = "event"
	MessageShowing              MessageType = "showing"
)

// Message is the wire envelope both directions share. Which fields are
// populated depends on Type:
//
//	create                options (full construction options), requestId
//	update                update, requestId
//	show, abort           requestId
//	canMakePayment        id (correlation), requestId
//	updateWith            details, requestId, eventId
//	complete              status, requestId, eventId
//	error                 error, optionally id/requestId
//	configure             options (merchant options document)
//	canMakePaymentResult  id (echoed), result or error
//	event                 event, requestId, eventId, payload
//	showing               requestId, showing
type Message struct {
	Type      MessageType             `json:"type"`
	ID        string                  `json:"id,omitempty"`
	RequestID string                  `json:"requestId,omitempty"`
	EventID   string                  `json:"eventId,omitempty"`
	Event     paysheet.EventType      `json:"event,omitempty"`
	Options   json.RawMessage         `json:"options,omitempty"`
	Update    *paysheet.UpdateOptions `json:"update,omitempty"`
	Details   *paysheet.UpdateDetails `json:"details,omitempty"`
	Status    string                  `json:"status,omitempty"`
	Payload   json.RawMessage         `json:"payload,omitempty"`
	Result    *paysheet.SupportResult `json:"result,omitempty"`
	Showing   *bool                   `json:"showing,omitempty"`
	Error     string                  `json:"error,omitempty"`
}

// shippingPayload is the wire payload of the two shipping events.
type shippingPayload struct {
	ShippingAddress paysheet.ShippingAddress `json:"shippingAddress"`
	ShippingOption  paysheet.ShippingOption  `json:"shippingOption"`
}
