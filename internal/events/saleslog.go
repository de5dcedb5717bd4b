package events

import "context"

// SalesLogAppender is the slice of the persistence collaborator the sales-log
// notifier needs.
type SalesLogAppender interface {
	AppendSalesLog(ctx context.Context, line string) error
}

// SalesLogNotifier appends the one-line CSV summary of every settled
// transaction to the sales log.
type SalesLogNotifier struct {
	Appender SalesLogAppender
}

// Notify ignores every topic except transaction.settled.
func (n SalesLogNotifier) Notify(ctx context.Context, e Event) error {
	if e.Topic != TopicTransactionSettled {
		return nil
	}
	p, ok := e.Payload.(SettledPayload)
	if !ok {
		return nil
	}
	return n.Appender.AppendSalesLog(ctx, p.SummaryLine)
}
