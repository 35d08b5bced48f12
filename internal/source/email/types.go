package email

import "time"

// Envelope holds the parsed envelope data from an IMAP message.
type Envelope struct {
	MessageID string
	Subject   string
	FromName  string
	FromAddr  string
	Date      time.Time
	Flags     []string // \Seen, \Flagged, \Answered, \Deleted
	UID       uint32
}

// Seen reports whether the message carries the \Seen flag.
func (e Envelope) Seen() bool {
	for _, f := range e.Flags {
		if f == `\Seen` {
			return true
		}
	}
	return false
}

// ParsedMessage holds an envelope together with its readable body.
type ParsedMessage struct {
	Envelope Envelope
	TextBody string
	HTMLBody string
}

// Text returns the plain-text body, falling back to stripped HTML.
func (m ParsedMessage) Text() string {
	if m.TextBody != "" {
		return m.TextBody
	}
	return stripHTML(m.HTMLBody)
}
