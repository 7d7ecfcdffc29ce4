package domain

import (
	"errors"
	"time"
)

// ErrMalformedMessage is returned when a provider message lacks the fields
// needed to store it.
var ErrMalformedMessage = errors.New("malformed message")

// RemoteMessage is a Gmail message normalized to local fields.
type RemoteMessage struct {
	ExternalID  string
	ThreadID    string
	Sender      string
	Recipients  string
	Cc          string
	Bcc         string
	Subject     string
	Body        string
	IsHTML      bool
	Snippet     string
	Labels      []string
	IsRead      bool
	IsImportant bool
	ReceivedAt  time.Time
	Attachments []AttachmentDescriptor
}

// AttachmentDescriptor is attachment metadata as listed by the provider.
type AttachmentDescriptor struct {
	ExternalID string
	Filename   string
	MimeType   string
	SizeBytes  int64
	IsInline   bool
	ContentID  string
}

// PendingAttachments is what the reconciler hands to the attachment stage:
// one stored email and the descriptors still to be materialized.
type PendingAttachments struct {
	EmailID           string
	ExternalMessageID string
	Descriptors       []AttachmentDescriptor
}

type OutgoingMessage struct {
	From    string
	To      string
	Cc      string
	Bcc     string
	Subject string
	Body    string
	IsHTML  bool
}

type Profile struct {
	EmailAddress  string `json:"emailAddress"`
	MessagesTotal int64  `json:"messagesTotal"`
	ThreadsTotal  int64  `json:"threadsTotal"`
	HistoryID     uint64 `json:"historyId"`
}
