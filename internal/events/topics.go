package events

// Topics emitted by the checkout pipeline and the background sweeps.
const (
	TopicTransactionSettled   = "transaction.settled"
	TopicTransactionAbandoned = "transaction.abandoned"
	TopicSalesSwept           = "promo.sales_swept"
	TopicStockExpired         = "inventory.stock_expired"
)

// SettledPayload accompanies TopicTransactionSettled.
type SettledPayload struct {
	TransactionID string `json:"transaction_id"`
	CustomerID    string `json:"customer_id,omitempty"`
	FinalTotal    int64  `json:"final_total"`
	Method        string `json:"method"`
	PointsEarned  int    `json:"points_earned"`
	SummaryLine   string `json:"summary_line"`
}

// AbandonedPayload accompanies TopicTransactionAbandoned.
type AbandonedPayload struct {
	TransactionID string `json:"transaction_id"`
	LinesReleased int    `json:"lines_released"`
}
