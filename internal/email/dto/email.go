package dto

import (
	emaildomain "privatezone-backend/internal/email/domain"
)

type EmailsResponse struct {
	Emails []*emaildomain.Email `json:"emails"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
	Total  int64                `json:"total"`
}

type SyncRequest struct {
	MaxResults int64  `json:"maxResults"`
	Query      string `json:"query"`
}

type ReprocessRequest struct {
	Limit int `json:"limit"`
}

// SendEmailRequest is used both for Gmail delivery and for locally stored mail.
type SendEmailRequest struct {
	To          string `json:"to" binding:"required"`
	Cc          string `json:"cc"`
	Bcc         string `json:"bcc"`
	Subject     string `json:"subject" binding:"required"`
	Body        string `json:"body" binding:"required"`
	IsHTML      bool   `json:"isHtml"`
	IsImportant bool   `json:"isImportant"`
	IsDraft     bool   `json:"isDraft"`
}

func (r SendEmailRequest) Outgoing(from string) emaildomain.OutgoingMessage {
	return emaildomain.OutgoingMessage{
		From:    from,
		To:      r.To,
		Cc:      r.Cc,
		Bcc:     r.Bcc,
		Subject: r.Subject,
		Body:    r.Body,
		IsHTML:  r.IsHTML,
	}
}

type ReadRequest struct {
	IsRead *bool `json:"isRead" binding:"required"`
}

type ImportantRequest struct {
	IsImportant *bool `json:"isImportant" binding:"required"`
}
