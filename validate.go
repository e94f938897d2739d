package paysheet

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// optionsSchema is the wire shape of Options. Remote hosts deliver options
// documents over the bridge; the schema rejects malformed ones before any
// field-level checks run.
const optionsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["country", "currency", "total"],
  "properties": {
    "country": {"type": "string", "minLength": 2, "maxLength": 2},
    "currency": {"type": "string", "minLength": 3, "maxLength": 3},
    "disableWallets": {
      "type": "array",
      "items": {"type": "string", "enum": ["applePay", "googlePay", "link", "browserCard"]}
    },
    "displayItems": {"type": "array", "items": {"$ref": "#/definitions/lineItem"}},
    "shippingOptions": {"type": "array", "items": {"$ref": "#/definitions/shippingOption"}},
    "requestPayerEmail": {"type": "boolean"},
    "requestPayerName": {"type": "boolean"},
    "requestPayerPhone": {"type": "boolean"},
    "requestShipping": {"type": "boolean"},
    "total": {"$ref": "#/definitions/total"}
  },
  "definitions": {
    "lineItem": {
      "type": "object",
      "required": ["amount", "label"],
      "properties": {
        "amount": {"type": "integer"},
        "label": {"type": "string"}
      }
    },
    "total": {
      "type": "object",
      "required": ["amount", "label"],
      "properties": {
        "amount": {"type": "integer", "minimum": 0},
        "label": {"type": "string"},
        "pending": {"type": "boolean"}
      }
    },
    "shippingOption": {
      "type": "object",
      "required": ["id", "label", "amount"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "label": {"type": "string"},
        "detail": {"type": "string"},
        "amount": {"type": "integer"}
      }
    }
  }
}`

// Validate checks the field-level rules handle construction depends on.
// Placeholder construction values are internal and never pass through here.
func (o Options) Validate() error {
	if len(o.Country) != 2 {
		return NewRequestError(ErrCodeInvalidOptions, "country must be a two-letter ISO 3166-1 code", nil)
	}
	if len(o.Currency) != 3 {
		return NewRequestError(ErrCodeInvalidOptions, "currency must be a three-letter ISO 4217 code", nil)
	}
	if o.Currency != strings.ToLower(o.Currency) {
		return NewRequestError(ErrCodeInvalidOptions, "currency must be lowercase", nil)
	}
	if o.Total.Label == "" {
		return NewRequestError(ErrCodeInvalidOptions, "total label is required", nil)
	}
	if o.Total.Amount < 0 {
		return NewRequestError(ErrCodeInvalidOptions, "total amount must not be negative", nil)
	}
	for i, item := range o.DisplayItems {
		if item.Label == "" {
			return NewRequestError(ErrCodeInvalidOptions,
				fmt.Sprintf("display item %d: label is required", i), nil)
		}
	}
	seen := make(map[string]struct{}, len(o.ShippingOptions))
	for i, opt := range o.ShippingOptions {
		if opt.ID == "" {
			return NewRequestError(ErrCodeInvalidOptions,
				fmt.Sprintf("shipping option %d: id is required", i), nil)
		}
		if _, dup := seen[opt.ID]; dup {
			return NewRequestError(ErrCodeInvalidOptions,
				fmt.Sprintf("shipping option %d: duplicate id %q", i, opt.ID), nil)
		}
		seen[opt.ID] = struct{}{}
	}
	for _, w := range o.DisableWallets {
		if !slices.Contains(KnownWallets, w) {
			return NewRequestError(ErrCodeInvalidOptions,
				fmt.Sprintf("unknown wallet %q", w), nil)
		}
	}
	return nil
}

// ValidateOptionsJSON validates a JSON options document against the schema,
// decodes it and runs the field-level checks. Schema violations are collected
// into the error's details keyed by field path.
func ValidateOptionsJSON(doc []byte) (Options, error) {
	schemaLoader := gojsonschema.NewStringLoader(optionsSchema)
	documentLoader := gojsonschema.NewBytesLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return Options{}, NewRequestError(ErrCodeInvalidOptions,
			fmt.Sprintf("schema validation failed: %v", err), nil)
	}
	if !result.Valid() {
		details := make(map[string]interface{}, len(result.Errors()))
		for _, desc := range result.Errors() {
			details[desc.Field()] = desc.Description()
		}
		return Options{}, NewRequestError(ErrCodeInvalidOptions, "options document does not match schema", details)
	}

	var opts Options
	if err := json.Unmarshal(doc, &opts); err != nil {
		return Options{}, fmt.Errorf("failed to decode options: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}
