package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"crewchat/chat"
)

const queryTimeout = 10 * time.Second

// ChatHandler serves the read-side reconciliation queries.
type ChatHandler struct {
	service *chat.Service
}

func NewChatHandler(service *chat.Service) *ChatHandler {
	return &ChatHandler{service: service}
}

// GetThread returns the conversation entry a user holds for one coworker.
// A missing document or thread is 200 with an empty list, never a not-found.
func (h *ChatHandler) GetThread(c *gin.Context) {
	var q struct {
		UserID     string `form:"userId" binding:"required"`
		CoworkerID string `form:"coworkerId" binding:"required"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID and Coworker ID are required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	threads, err := h.service.GetThread(ctx, q.UserID, q.CoworkerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"coworkerChats": threads})
}

// TraceBetween reconstructs a bilateral conversation from both participants'
// documents for oversight. No conversation is 200 with an empty list.
func (h *ChatHandler) TraceBetween(c *gin.Context) {
	var q struct {
		EmployeeID1 string `form:"employeeId1" binding:"required"`
		EmployeeID2 string `form:"employeeId2" binding:"required"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Both employee IDs are required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	traced, err := h.service.TraceBetween(ctx, q.EmployeeID1, q.EmployeeID2)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, traced)
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
	case errors.Is(err, chat.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		log.Printf("❌ Chat query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
