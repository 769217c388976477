package model

// Step is the position of a user inside the order-intake conversation.
type Step int

const (
	StepIdle Step = iota
	StepProductChosen
	StepQuantityChosen
	StepNameCollected
	StepAwaitingPayment
)

// Draft is the in-progress order attached to one user's session. It is not
// persisted; a committed order lives in the orders table, keyed by OrderID.
type Draft struct {
	Step                Step
	ProductName         string
	ProductLink         string
	Quantity            int
	CustomerName        string
	OrderRef            string
	PaymentMethod       string
	AwaitingPaymentInfo bool
	OrderID             uint
}

func (d *Draft) Reset() {
	*d = Draft{}
}
