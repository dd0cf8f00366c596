package dispatch

import (
	"fmt"
	"io"

	"email-dispatcher/internal/models"
)

// WritePreview prints msg in the dry-run layout.
func WritePreview(w io.Writer, msg models.OutboundMessage, attachmentPath string) error {
	_, err := fmt.Fprintf(w, "----------\nTo: %s\nSubject: %s\n%s\nAttachment: %s\n",
		msg.To, msg.Subject, msg.Body, attachmentPath)
	return err
}
