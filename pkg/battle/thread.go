package battle

import "strings"

var (
	threadRule   = strings.Repeat("=", 60)
	messageRule  = strings.Repeat("-", 40)
	previousLine = "---------- Previous Message ----------"
)

// EmptyThread is what FormatThread renders for an empty transcript.
const EmptyThread = "(No emails in thread)"

// FormatThread renders entries as a delimited email thread for backend
// context. With newestFirst the latest message comes first, as mail clients
// show it. The entries slice is not modified.
func FormatThread(entries []Entry, newestFirst bool) string {
	if len(entries) == 0 {
		return EmptyThread
	}

	lines := []string{threadRule, "EMAIL THREAD", threadRule, ""}
	for i := range entries {
		e := entries[i]
		if newestFirst {
			e = entries[len(entries)-1-i]
		}
		if i > 0 {
			lines = append(lines, "", messageRule, previousLine, messageRule, "")
		}
		lines = append(lines,
			"From: "+e.Sender,
			"To: "+e.Recipient,
			"Subject: "+e.Subject,
			"Date: "+e.Timestamp,
			messageRule,
			e.Body,
		)
	}
	return strings.Join(lines, "\n")
}
