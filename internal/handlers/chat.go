package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"filemind/backend/internal/apperr"
	"filemind/backend/internal/fieldcodec"
)

// ChatHandler serves the retrieval-augmented question route.
type ChatHandler struct {
	answerer Answerer
	log      *zap.SugaredLogger
}

func NewChatHandler(answerer Answerer, log *zap.SugaredLogger) *ChatHandler {
	return &ChatHandler{answerer: answerer, log: log}
}

type AskRequest struct {
	Question string `json:"question" binding:"required"`
	Username string `json:"username" binding:"required"`
}

// Ask answers a free-text question, grounding it in the user's documents
// when the question is not small talk. The generated text is returned raw
// and never persisted.
func (h *ChatHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, apperr.BadRequest("question and username are required"))
		return
	}

	answer, err := h.answerer.Answer(c.Request.Context(), fieldcodec.Hash(req.Username), req.Question)
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to answer question", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"answer": answer})
}
