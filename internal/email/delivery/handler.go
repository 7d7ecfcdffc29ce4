package delivery

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	emaildomain "privatezone-backend/internal/email/domain"
	emaildto "privatezone-backend/internal/email/dto"
	"privatezone-backend/internal/email/usecase"
	"privatezone-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type EmailHandler struct {
	emailUsecase usecase.EmailUsecase
}

func NewEmailHandler(emailUsecase usecase.EmailUsecase) *EmailHandler {
	return &EmailHandler{
		emailUsecase: emailUsecase,
	}
}

// bindOptional binds a JSON body when one was sent.
func bindOptional(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, err)
		return false
	}
	return true
}

// POST /api/gmail/sync
func (h *EmailHandler) Sync(c *gin.Context) {
	var req emaildto.SyncRequest
	if !bindOptional(c, &req) {
		return
	}

	res, err := h.emailUsecase.Sync(c.Request.Context(), c.GetString("userID"), usecase.SyncOptions{
		Query:      req.Query,
		MaxResults: req.MaxResults,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, gin.H{
		"syncedCount":       res.SyncedCount,
		"totalFetched":      res.TotalFetched,
		"failedCount":       res.FailedCount,
		"attachmentsStored": res.AttachmentsStored,
		"emails":            res.Emails,
	})
}

// POST /api/gmail/reprocess-attachments
func (h *EmailHandler) ReprocessAttachments(c *gin.Context) {
	var req emaildto.ReprocessRequest
	if !bindOptional(c, &req) {
		return
	}

	res, err := h.emailUsecase.ReprocessMissingAttachments(c.Request.Context(), c.GetString("userID"), req.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, gin.H{
		"processedEmails":  res.ProcessedEmails,
		"totalAttachments": res.TotalAttachments,
	})
}

// GET /api/gmail/profile
func (h *EmailHandler) Profile(c *gin.Context) {
	profile, err := h.emailUsecase.Profile(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"profile": profile})
}

// POST /api/gmail/send
func (h *EmailHandler) Send(c *gin.Context) {
	var req emaildto.SendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	email, err := h.emailUsecase.Send(c.Request.Context(), c.GetString("userID"), req.Outgoing(c.GetString("userEmail")))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, gin.H{
		"message":        "Email sent successfully via Gmail",
		"email":          email,
		"gmailMessageId": email.ExternalID,
	})
}

// PUT /api/gmail/messages/:messageId/read
func (h *EmailHandler) SetRemoteRead(c *gin.Context) {
	var req emaildto.ReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	if err := h.emailUsecase.SetRemoteRead(c.Request.Context(), c.GetString("userID"), c.Param("messageId"), *req.IsRead); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"isRead": *req.IsRead})
}

// DELETE /api/gmail/messages/:messageId
func (h *EmailHandler) TrashRemote(c *gin.Context) {
	if err := h.emailUsecase.TrashRemote(c.Request.Context(), c.GetString("userID"), c.Param("messageId")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"message": "Email moved to trash"})
}

// POST /api/gmail/watch
func (h *EmailHandler) Watch(c *gin.Context) {
	historyID, err := h.emailUsecase.Watch(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"historyId": historyID})
}

// GET /api/emails?filter=unread|read|important&search=&limit=&offset=
func (h *EmailHandler) List(c *gin.Context) {
	limit := 50
	offset := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	emails, total, err := h.emailUsecase.List(c.Request.Context(), c.GetString("userID"), emaildomain.EmailFilter{
		Status: c.Query("filter"),
		Search: c.Query("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, emaildto.EmailsResponse{
		Emails: emails,
		Limit:  limit,
		Offset: offset,
		Total:  total,
	})
}

// POST /api/emails
func (h *EmailHandler) Create(c *gin.Context) {
	var req emaildto.SendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	email, err := h.emailUsecase.Compose(c.Request.Context(), c.GetString("userID"), req.Outgoing(c.GetString("userEmail")), req.IsImportant, req.IsDraft)
	if err != nil {
		response.Error(c, err)
		return
	}

	message := "Email sent successfully"
	if req.IsDraft {
		message = "Draft saved successfully"
	}
	response.OK(c, http.StatusCreated, gin.H{"message": message, "email": email})
}

// GET /api/emails/:id
func (h *EmailHandler) Get(c *gin.Context) {
	email, err := h.emailUsecase.Get(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"email": email})
}

// PUT /api/emails/:id/read
func (h *EmailHandler) MarkRead(c *gin.Context) {
	var req emaildto.ReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	h.patch(c, emaildomain.EmailPatch{IsRead: req.IsRead})
}

// PUT /api/emails/:id/important
func (h *EmailHandler) MarkImportant(c *gin.Context) {
	var req emaildto.ImportantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	h.patch(c, emaildomain.EmailPatch{IsImportant: req.IsImportant})
}

func (h *EmailHandler) patch(c *gin.Context, patch emaildomain.EmailPatch) {
	email, err := h.emailUsecase.Patch(c.Request.Context(), c.GetString("userID"), c.Param("id"), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"email": email})
}

// DELETE /api/emails/:id
func (h *EmailHandler) Delete(c *gin.Context) {
	if err := h.emailUsecase.Delete(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"message": "Email deleted"})
}

// GET /api/emails/:id/attachments
func (h *EmailHandler) ListAttachments(c *gin.Context) {
	atts, err := h.emailUsecase.ListAttachments(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"attachments": atts})
}

// GET /api/emails/:id/attachments/:attachmentId
func (h *EmailHandler) GetAttachment(c *gin.Context) {
	att, data, err := h.emailUsecase.GetAttachment(c.Request.Context(), c.GetString("userID"), c.Param("id"), c.Param("attachmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	contentType := att.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": att.Filename}))
	c.Header("Content-Length", strconv.Itoa(len(data)))
	c.Data(http.StatusOK, contentType, data)
}
