package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"dubnacoin/internal/domain"

	"github.com/gin-gonic/gin"
)

const maxReportLen = 2000

type ReportErrorRequest struct {
	ErrorMessage string `json:"error_message"`
}

// ReportError stores a client-side error message.
func (h *Handler) ReportError(c *gin.Context) {
	id, ok := playerID(c)
	if !ok {
		return
	}

	var req ReportErrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	msg := strings.TrimSpace(req.ErrorMessage)
	if msg == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "error_message is required"})
		return
	}
	if utf8.RuneCountInString(msg) > maxReportLen {
		msg = string([]rune(msg)[:maxReportLen])
	}

	report := &domain.ErrorReport{PlayerID: id, Message: msg}
	if err := h.Reports.Create(c.Request.Context(), report); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
