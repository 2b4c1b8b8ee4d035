package queue

const (
	TypeInvoiceMonthly  = "invoice:monthly"
	TypeInvoiceSend     = "invoice:send"
	TypeCalendarRefresh = "calendar:refresh"
	TypeWebhookDeliver  = "webhook:deliver"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

type InvoiceSendPayload struct {
	InvoiceID string `json:"invoice_id"`
}

type CalendarRefreshPayload struct {
	// Window in seconds; zero means one hour.
	WindowSeconds int `json:"window_seconds,omitempty"`
}
