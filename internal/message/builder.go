// Package message builds outbound messages and owns the run-wide attachment.
package message

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"email-dispatcher/internal/models"
	"email-dispatcher/internal/recipient"
	"email-dispatcher/internal/templates"
)

var ErrAttachmentNotFound = errors.New("attachment not found")

// Builder renders messages for resolved recipients. The attachment is read
// from disk on first use and the same bytes are reused for every message.
type Builder struct {
	sender     models.Sender
	path       string
	attachment *models.Attachment
}

func NewBuilder(sender models.Sender, attachmentPath string) *Builder {
	return &Builder{sender: sender, path: attachmentPath}
}

// AttachmentPath returns the path the attachment is loaded from.
func (b *Builder) AttachmentPath() string {
	return b.path
}

// Attachment loads the attachment if needed and returns it.
func (b *Builder) Attachment() (models.Attachment, error) {
	if b.attachment != nil {
		return *b.attachment, nil
	}
	a, err := LoadAttachment(b.path)
	if err != nil {
		return models.Attachment{}, err
	}
	b.attachment = &a
	return a, nil
}

// Build renders the body for r and assembles the outbound message.
func (b *Builder) Build(r recipient.Resolved) (models.OutboundMessage, error) {
	a, err := b.Attachment()
	if err != nil {
		return models.OutboundMessage{}, err
	}
	return models.OutboundMessage{
		From:       b.sender,
		To:         r.Email,
		Subject:    r.Subject,
		Body:       templates.Resolve(r.Role).RenderBody(r.Context),
		Attachment: a,
	}, nil
}

// LoadAttachment reads the file at path and detects its media type.
func LoadAttachment(path string) (models.Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.Attachment{}, fmt.Errorf("%w at %s", ErrAttachmentNotFound, path)
		}
		return models.Attachment{}, fmt.Errorf("failed to stat attachment: %w", err)
	}
	if info.IsDir() {
		return models.Attachment{}, fmt.Errorf("%w at %s: path is a directory", ErrAttachmentNotFound, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("failed to read attachment: %w", err)
	}

	return models.Attachment{
		Name:     filepath.Base(path),
		Content:  data,
		MimeType: mimetype.Detect(data).String(),
	}, nil
}
