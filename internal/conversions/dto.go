package conversions

// SquareWebhookEvent is the envelope Square delivers for payment events.
type SquareWebhookEvent struct {
	EventID string            `json:"event_id"`
	Type    string            `json:"type"`
	Data    SquareWebhookData `json:"data"`
}

type SquareWebhookData struct {
	Type   string              `json:"type"`
	ID     string              `json:"id"`
	Object SquareWebhookObject `json:"object"`
}

type SquareWebhookObject struct {
	Payment *SquarePayment `json:"payment"`
}

// SquarePayment carries the subset of the payment object conversions need.
// ReferenceID is the platform user ID attached at checkout.
type SquarePayment struct {
	ID          string            `json:"id"`
	Status      string            `json:"status"`
	ReferenceID string            `json:"reference_id"`
	Note        string            `json:"note"`
	CreatedAt   string            `json:"created_at"`
	AmountMoney *SquareMoney      `json:"amount_money"`
	Metadata    map[string]string `json:"metadata"`
}

type SquareMoney struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}
