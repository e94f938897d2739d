package paysheet

import "slices"

// Wallet identifies a wallet surface the payment sheet can present through.
type Wallet string

const (
	WalletApplePay    Wallet = "applePay"
	WalletGooglePay   Wallet = "googlePay"
	WalletLink        Wallet = "link"
	WalletBrowserCard Wallet = "browserCard"
)

// KnownWallets lists every wallet identifier this package understands.
var KnownWallets = []Wallet{WalletApplePay, WalletGooglePay, WalletLink, WalletBrowserCard}

// PlaceholderCurrency is the currency a request handle is constructed with.
// Real updatable values reach the handle through Update when the sheet opens,
// so the construction value never renders.
const PlaceholderCurrency = "usd"

// LineItem is a single display row on the payment sheet.
// Amount is in the minor unit of the request currency (cents for "usd").
type LineItem struct {
	Amount int64  `json:"amount"`
	Label  string `json:"label"`
}

// Total is the sheet's total row. Pending marks the amount as not yet final;
// wallet UIs render a placeholder instead of the number.
type Total struct {
	Amount  int64  `json:"amount"`
	Label   string `json:"label"`
	Pending bool   `json:"pending,omitempty"`
}

// ShippingOption is one selectable shipping choice on the sheet.
type ShippingOption struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
	Amount int64  `json:"amount"`
}

// ShippingAddress carries the payer's shipping address. Wallets redact most
// fields until the payer authorizes, so only Country is always present.
type ShippingAddress struct {
	Country           string   `json:"country"`
	AddressLines      []string `json:"addressLine,omitempty"`
	Region            string   `json:"region,omitempty"`
	City              string   `json:"city,omitempty"`
	PostalCode        string   `json:"postalCode,omitempty"`
	Recipient         string   `json:"recipient,omitempty"`
	Phone             string   `json:"phone,omitempty"`
	SortingCode       string   `json:"sortingCode,omitempty"`
	DependentLocality string   `json:"dependentLocality,omitempty"`
}

// Options is the declarative configuration for a payment request.
//
// Country, DisableWallets and the Request* flags are identity parameters:
// changing any of them discards the live handle and constructs a new one.
// Currency, DisplayItems, ShippingOptions and Total are updatable: they are
// pushed into the live handle when the sheet opens and by the shipping
// protocols, and never force reconstruction.
type Options struct {
	Country           string           `json:"country"`
	Currency          string           `json:"currency"`
	DisableWallets    []Wallet         `json:"disableWallets,omitempty"`
	DisplayItems      []LineItem       `json:"displayItems,omitempty"`
	ShippingOptions   []ShippingOption `json:"shippingOptions,omitempty"`
	RequestPayerEmail bool             `json:"requestPayerEmail,omitempty"`
	RequestPayerName  bool             `json:"requestPayerName,omitempty"`
	RequestPayerPhone bool             `json:"requestPayerPhone,omitempty"`
	RequestShipping   bool             `json:"requestShipping,omitempty"`
	Total             Total            `json:"total"`
}

// UpdateOptions is the updatable subset of Options, the shape pushed into a
// live handle by Request.Update.
type UpdateOptions struct {
	Currency        string           `json:"currency,omitempty"`
	DisplayItems    []LineItem       `json:"displayItems,omitempty"`
	ShippingOptions []ShippingOption `json:"shippingOptions,omitempty"`
	Total           Total            `json:"total"`
}

// Updatable projects the updatable subset out of o.
func (o Options) Updatable() UpdateOptions {
	return UpdateOptions{
		Currency:        o.Currency,
		DisplayItems:    o.DisplayItems,
		ShippingOptions: o.ShippingOptions,
		Total:           o.Total,
	}
}

// withPlaceholders returns the construction shape for o: identity parameters
// kept, updatable values pinned so the handle never depends on them.
func (o Options) withPlaceholders() Options {
	o.Currency = PlaceholderCurrency
	o.DisplayItems = []LineItem{}
	o.ShippingOptions = []ShippingOption{}
	o.Total = Total{Amount: 0, Label: "", Pending: true}
	return o
}

// identity is the comparable projection of the identity parameters.
type identity struct {
	country           string
	disableWallets    []Wallet
	requestPayerEmail bool
	requestPayerName  bool
	requestPayerPhone bool
	requestShipping   bool
}

func (o Options) identity() identity {
	return identity{
		country:           o.Country,
		disableWallets:    o.DisableWallets,
		requestPayerEmail: o.RequestPayerEmail,
		requestPayerName:  o.RequestPayerName,
		requestPayerPhone: o.RequestPayerPhone,
		requestShipping:   o.RequestShipping,
	}
}

// equal compares identity parameters by value. The wallet list is compared
// element-wise, so reordering it counts as a different identity.
func (a identity) equal(b identity) bool {
	return a.country == b.country &&
		a.requestPayerEmail == b.requestPayerEmail &&
		a.requestPayerName == b.requestPayerName &&
		a.requestPayerPhone == b.requestPayerPhone &&
		a.requestShipping == b.requestShipping &&
		slices.Equal(a.disableWallets, b.disableWallets)
}

// UpdateStatus is the merchant verdict on a shipping change, delivered back
// to the sheet through the event's UpdateWith function.
type UpdateStatus string

const (
	UpdateSuccess                UpdateStatus = "success"
	UpdateFail                   UpdateStatus = "fail"
	UpdateInvalidShippingAddress UpdateStatus = "invalid_shipping_address"
)

// CompletionStatus is the merchant verdict on a produced payment payload,
// delivered back to the sheet through the event's Complete function.
type CompletionStatus string

const (
	CompletionSuccess CompletionStatus = "success"
	CompletionFail    CompletionStatus = "fail"
)

// UpdateDetails is the response shape for UpdateWith. The data fields ride
// along only when Status is UpdateSuccess; every other status goes out alone.
type UpdateDetails struct {
	Status          UpdateStatus     `json:"status"`
	DisplayItems    []LineItem       `json:"displayItems,omitempty"`
	ShippingOptions []ShippingOption `json:"shippingOptions,omitempty"`
	Total           *Total           `json:"total,omitempty"`
}

// SupportResult reports which wallets can service a request.
type SupportResult struct {
	ApplePay  bool `json:"applePay"`
	GooglePay bool `json:"googlePay"`
	Link      bool `json:"link"`
}

// Probe is the tri-state outcome of the asynchronous support check: loading,
// resolved with a value, or failed. A nil Value with a nil Err means the
// check resolved and no wallet can present the request.
type Probe struct {
	Loading bool
	Value   *SupportResult
	Err     error
}

// Available reports whether the probe resolved with a presentable wallet set.
// Presentation guards key off this, so a loading or failed probe keeps the
// sheet closed.
func (p Probe) Available() bool {
	return !p.Loading && p.Err == nil && p.Value != nil
}
