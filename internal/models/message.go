package models

// Sender is the identity messages are sent from.
type Sender struct {
	Name    string
	Address string
}

// Attachment defines the binary payload attached to every message of a run.
// Content is shared between messages and must not be modified.
type Attachment struct {
	Name     string
	Content  []byte
	MimeType string
}

// OutboundMessage is a fully rendered message ready for the transport.
type OutboundMessage struct {
	From       Sender
	To         string
	Subject    string
	Body       string
	Attachment Attachment
}
