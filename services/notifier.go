package services

import (
	"fmt"
	"os"
	"strings"

	"directory-import-api/config"
)

// Notifier sends a summary mail when an import session completes. Returns
// nil from NewNotifierFromEnv when no recipients are configured, in which
// case completion notifications are simply skipped.
type Notifier struct {
	recipients []string
}

func NewNotifierFromEnv() *Notifier {
	raw := strings.TrimSpace(os.Getenv("IMPORT_NOTIFY_TO"))
	if raw == "" {
		return nil
	}
	var recipients []string
	for _, addr := range strings.Split(raw, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	if len(recipients) == 0 {
		return nil
	}
	return &Notifier{recipients: recipients}
}

func (n *Notifier) ImportCompleted(sourceFile string, dryRun bool, total int, tallies Tallies) error {
	if n == nil {
		return nil
	}
	verb := "imported"
	subject := fmt.Sprintf("Listing import completed: %s", sourceFile)
	if dryRun {
		verb = "would import"
		subject = fmt.Sprintf("Listing import dry run completed: %s", sourceFile)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<p>Import of <strong>%s</strong> finished (%d rows).</p>", sourceFile, total)
	fmt.Fprintf(&b, "<ul><li>%s: %d</li><li>updated: %d</li><li>skipped: %d</li><li>errors: %d</li></ul>",
		verb, tallies.Imported, tallies.Updated, tallies.Skipped, len(tallies.Errors))
	if len(tallies.Errors) > 0 {
		b.WriteString("<p>First errors:</p><ul>")
		for i, msg := range tallies.Errors {
			if i >= 10 {
				fmt.Fprintf(&b, "<li>+%d more</li>", len(tallies.Errors)-i)
				break
			}
			fmt.Fprintf(&b, "<li>%s</li>", msg)
		}
		b.WriteString("</ul>")
	}

	return config.SendMail(n.recipients, subject, b.String())
}
