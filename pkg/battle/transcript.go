package battle

import (
	"errors"
	"time"
)

// TimeLayout is the format of Entry.Timestamp.
const TimeLayout = "2006-01-02 15:04:05"

// ErrIncompleteEntry is returned by NewEntry when an address or the subject
// is missing.
var ErrIncompleteEntry = errors.New("battle: entry requires sender, recipient and subject")

// Entry is one message in the battle transcript. Entries are values and are
// never modified after they are appended.
type Entry struct {
	Sender    string `json:"sender" yaml:"sender" msgpack:"sender"`
	Recipient string `json:"recipient" yaml:"recipient" msgpack:"recipient"`
	Subject   string `json:"subject" yaml:"subject" msgpack:"subject"`
	Body      string `json:"body" yaml:"body" msgpack:"body"`
	Timestamp string `json:"timestamp" yaml:"timestamp" msgpack:"timestamp"`
}

// NewEntry stamps a message with at. An empty body is allowed.
func NewEntry(sender, recipient, subject, body string, at time.Time) (Entry, error) {
	if sender == "" || recipient == "" || subject == "" {
		return Entry{}, ErrIncompleteEntry
	}
	return Entry{
		Sender:    sender,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		Timestamp: at.Format(TimeLayout),
	}, nil
}

// Time parses the entry timestamp.
func (e Entry) Time() (time.Time, error) {
	return time.ParseInLocation(TimeLayout, e.Timestamp, time.Local)
}
