package port

import "context"

// SMSMessage is a single outbound text message.
type SMSMessage struct {
	To   string
	Body string
}

// SMSSender delivers one-time codes to phones. Implementations must not log
// the raw code outside development environments.
type SMSSender interface {
	Send(ctx context.Context, message SMSMessage) error
}
