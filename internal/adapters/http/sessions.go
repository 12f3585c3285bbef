package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dkeye/confer/internal/apperr"
	"github.com/dkeye/confer/internal/domain"
)

type sessionHandlers struct {
	d Deps
}

type infoRequest struct {
	Token        string `json:"token" binding:"required"`
	SessionToken string `json:"sessionToken"`
	SessionID    uint   `json:"sessionId"`
}

type infoResponse struct {
	Status    apperr.Status        `json:"status"`
	Summary   domain.Summary       `json:"summary"`
	Chats     []domain.ChatMessage `json:"chats"`
	Attendees []domain.Attendee    `json:"attendees"`
}

// info returns summary, chat log and attendees of a session to its owner.
func (h *sessionHandlers) info(c *gin.Context) {
	var req infoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Wrap(apperr.BadInput, err, "invalid request"))
		return
	}
	ctx := c.Request.Context()
	uid, err := h.d.Verifier.Verify(ctx, req.Token)
	if err != nil {
		fail(c, err)
		return
	}

	var sess *domain.Session
	switch {
	case req.SessionToken != "":
		sess, err = h.d.Sessions.Verify(ctx, req.SessionToken)
	case req.SessionID != 0:
		sess, err = h.d.Sessions.Get(ctx, domain.SessionID(req.SessionID))
	default:
		err = apperr.BadInputf("sessionToken or sessionId is required")
	}
	if err != nil {
		fail(c, err)
		return
	}
	if sess.CreatorID != uid {
		fail(c, apperr.Unauthorizedf("not the session owner"))
		return
	}

	chats, err := h.d.Chats.ForReader(ctx, sess.ID, uid)
	if err != nil {
		fail(c, err)
		return
	}
	attendees, err := h.d.Attendees.List(ctx, sess.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, infoResponse{
		Status:    apperr.StatusOK,
		Summary:   sess.Summary(),
		Chats:     chats,
		Attendees: attendees,
	})
}

type mineRequest struct {
	Token string `json:"token" binding:"required"`
}

// mine lists the ids of sessions the caller created.
func (h *sessionHandlers) mine(c *gin.Context) {
	var req mineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Wrap(apperr.BadInput, err, "invalid request"))
		return
	}
	ctx := c.Request.Context()
	uid, err := h.d.Verifier.Verify(ctx, req.Token)
	if err != nil {
		fail(c, err)
		return
	}
	ids, err := h.d.Sessions.IDsByCreator(ctx, uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": apperr.StatusOK, "sessionIds": ids})
}
