package enums

import "fmt"

// PaymentProcessor identifies the gateway that handled a payment.
type PaymentProcessor string

const (
	PaymentProcessorStripe   PaymentProcessor = "stripe"
	PaymentProcessorInternal PaymentProcessor = "internal"
	PaymentProcessorFree     PaymentProcessor = "free"
)

var validPaymentProcessors = []PaymentProcessor{
	PaymentProcessorStripe,
	PaymentProcessorInternal,
	PaymentProcessorFree,
}

// String implements fmt.Stringer.
func (p PaymentProcessor) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentProcessor.
func (p PaymentProcessor) IsValid() bool {
	for _, candidate := range validPaymentProcessors {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentProcessor converts raw input into a PaymentProcessor.
func ParsePaymentProcessor(value string) (PaymentProcessor, error) {
	for _, candidate := range validPaymentProcessors {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment processor %q", value)
}
