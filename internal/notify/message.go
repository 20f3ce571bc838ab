package notify

import "context"

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	// Body is rendered HTML.
	Body string `json:"body"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}
