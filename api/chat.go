package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/chat"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const readTimeout = 60 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type messageRequest struct {
	Sender string `json:"sender"`
	Body   string `json:"body" binding:"required"`
}

type readRequest struct {
	Reader string `json:"reader" binding:"required"`
}

// inbound is a frame sent by a websocket client.
type inbound struct {
	Type string `json:"type"` // "message" or "read"
	Body string `json:"body,omitempty"`
}

func (s *Server) listConversations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"conversations": s.svc.Conversations(),
		"unread":        s.svc.UnreadCount(tracker.RoleAdmin),
	})
}

func (s *Server) listMessages(c *gin.Context) {
	id := c.Param("investorId")
	if _, err := s.svc.Investor(id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.svc.Messages(id))
}

func (s *Server) sendMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Sender == "" {
		req.Sender = string(tracker.RoleAdmin)
	}
	role, err := tracker.ParseRole(req.Sender)
	if err != nil {
		fail(c, err)
		return
	}
	msg, err := s.svc.SendMessage(c.Request.Context(), c.Param("investorId"), role, req.Body)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (s *Server) markRead(c *gin.Context) {
	var req readRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	role, err := tracker.ParseRole(req.Reader)
	if err != nil {
		fail(c, err)
		return
	}
	id := c.Param("investorId")
	n, err := s.svc.MarkRead(c.Request.Context(), id, role)
	if err != nil {
		fail(c, err)
		return
	}
	if n > 0 {
		s.read(id, role)
	}
	c.JSON(http.StatusOK, gin.H{"marked": n})
}

// read tells the websocket clients that reader read the conversation.
func (s *Server) read(investorID string, reader tracker.Role) {
	payload, err := json.Marshal(chat.Frame{Type: "read", InvestorID: investorID, Reader: reader})
	if err != nil {
		return
	}
	s.hub.Broadcast(investorID, payload)
}

// socket upgrades the request to a websocket following one conversation
// (?investor=id) or all of them. Clients send messages and read receipts
// through it and receive every new message of the conversations they follow.
func (s *Server) socket(c *gin.Context) {
	role, err := tracker.ParseRole(c.DefaultQuery("role", string(tracker.RoleAdmin)))
	if err != nil {
		fail(c, err)
		return
	}
	investorID := c.Query("investor")
	if role == tracker.RoleInvestor && investorID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "investor is required for the investor role"})
		return
	}
	if investorID != "" {
		if _, err := s.svc.Investor(investorID); err != nil {
			fail(c, err)
			return
		}
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	conn := chat.NewConnection(role, investorID, ws)
	s.hub.Attach(conn)
	defer func() {
		s.hub.Detach(conn)
		conn.Close(websocket.CloseNormalClosure, "session closed")
	}()

	ws.SetReadLimit(1 << 16)
	_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				log.Printf("ws-read-failed conn=%s err=%v", conn.ID, err)
			}
			return
		}
		var in inbound
		if err := json.Unmarshal(data, &in); err != nil {
			replyError(conn, "invalid payload")
			continue
		}
		if investorID == "" {
			replyError(conn, "this connection follows every conversation, use the HTTP API to write")
			continue
		}
		ctx := c.Request.Context()
		switch in.Type {
		case "message":
			if _, err := s.svc.SendMessage(ctx, investorID, role, in.Body); err != nil {
				replyError(conn, err.Error())
			}
		case "read":
			n, err := s.svc.MarkRead(ctx, investorID, role)
			if err != nil {
				replyError(conn, err.Error())
			} else if n > 0 {
				s.read(investorID, role)
			}
		default:
			replyError(conn, "unknown frame type")
		}
	}
}

func replyError(conn *chat.Connection, msg string) {
	payload, err := json.Marshal(gin.H{"type": "error", "error": msg})
	if err != nil {
		return
	}
	_ = conn.Send(payload)
}
