package domain

type CheckoutStage string

const (
	StageCart        CheckoutStage = "cart"
	StagePaymentForm CheckoutStage = "payment_form"
	StageCommitting  CheckoutStage = "committing"
	StageDelivered   CheckoutStage = "delivered"
	StageFailed      CheckoutStage = "failed"
)

func (s CheckoutStage) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition can leave s.
func (s CheckoutStage) IsTerminal() bool {
	return s == StageDelivered
}
