package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"realtime_chat_service/internal/chat/domain"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"
	"realtime_chat_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultPingInterval = 10 * time.Minute

// ChatWebsocketHandler 可包含所有需要的 UseCase
type ChatWebsocketHandler struct {
	roomUC       *RoomUseCase
	messageUC    *MessageUseCase
	hub          *Hub
	presence     *PresenceRegistry
	pingInterval time.Duration
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	roomUC *RoomUseCase,
	messageUC *MessageUseCase,
	hub *Hub,
	presence *PresenceRegistry,
	pingInterval time.Duration,
) *ChatWebsocketHandler {
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}
	return &ChatWebsocketHandler{
		roomUC:       roomUC,
		messageUC:    messageUC,
		hub:          hub,
		presence:     presence,
		pingInterval: pingInterval,
	}
}

// wsConn hub 與 handler 會同時寫入, 以 mutex 保護
type wsConn struct {
	id     string
	userID string
	conn   *websocket.Conn
	mu     sync.Mutex
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) UserID() string { return c.userID }

func (c *wsConn) Send(resp domain.WSResponse) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

func (c *wsConn) ping(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.PingMessage, []byte(msg))
}

// HandleConnection 是 WebSocket 連線的進入點
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	memberID, _ := conn.Locals(middlewares.TokenMemberID).(string)
	c := &wsConn{id: uuid.New().String(), userID: memberID, conn: conn}
	logger.Log.Info("websocket connected", zap.String("userID", memberID), zap.String("conn", c.id))

	if err := h.presence.Connect(ctx, memberID); err != nil {
		logger.Log.Warn("presence connect failed", zap.String("userID", memberID), zap.Error(err))
	}

	ticker := time.NewTicker(h.pingInterval)
	ctxClose, cancel := context.WithCancel(ctx)

	defer func() {
		ticker.Stop()
		cancel()
		h.hub.UnsubscribeAll(c.id)
		if err := h.presence.Disconnect(context.Background(), memberID); err != nil {
			logger.Log.Warn("presence disconnect failed", zap.String("userID", memberID), zap.Error(err))
		}
		logger.Log.Info("websocket close", zap.String("userID", memberID))
		conn.Close()
	}()

	//client發出close
	//fiber會自動處理(在read msg 回傳err),故需要SetCloseHandler另外接出
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Info("websocket closed by client", zap.Int("code", code), zap.String("conn", c.id))
		return nil
	})

	//server發出ping之後client連線正常會回pong
	conn.SetPongHandler(func(appData string) error {
		logger.Log.Debug("received pong", zap.String("conn", c.id))
		return nil
	})

	//client發出ping
	conn.SetPingHandler(func(appData string) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(appData),
			time.Now().Add(time.Second),
		)
	})

	// 定期發送 Ping
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := c.ping("ping message"); err != nil {
					logger.Log.Warn("ping error", zap.String("conn", c.id), zap.Error(err))
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Info("connection closed", zap.String("conn", c.id))
			} else {
				//直接斷線 1006
				logger.Log.Warn("websocket read error", zap.String("conn", c.id), zap.Error(err))
			}
			return
		}
		h.execWebsocketAction(ctxClose, c, memberID, mt, message)
	}
}

func (h *ChatWebsocketHandler) execWebsocketAction(ctx context.Context, c *wsConn, memberID string, mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.textMessageAction(ctx, c, memberID, msg)
	//! close ping pong fiber會自動處理，故需使用setHandler處理
	default:
		h.sendError(c, "unsupported message type")
	}
}

func (h *ChatWebsocketHandler) textMessageAction(ctx context.Context, c *wsConn, memberID string, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		h.sendError(c, "malformed request")
		return
	}

	resp := domain.WSResponse{Action: req.Action, Success: false, Payload: map[string]interface{}{}}
	var err error
	switch domain.Action(req.Action) {
	//進入聊天室, 只有成員可以訂閱
	case domain.JoinRoom:
		var room *domain.Room
		room, err = h.roomUC.GetRoom(ctx, req.RoomID, memberID)
		if err == nil {
			h.hub.Subscribe(room.ID, c)
			resp.Payload["room_id"] = room.ID
		}

	//離開聊天室
	case domain.LeaveRoom:
		h.hub.Unsubscribe(req.RoomID, c.id)
		resp.Payload["room_id"] = req.RoomID

	//message都會寫入db,並傳訊給聊天室內的人
	case domain.SendMessage:
		var m *domain.Message
		m, err = h.messageUC.Send(ctx, memberID, &domain.SendMessageReq{
			RoomID:   req.RoomID,
			Type:     req.Type,
			Content:  req.Content,
			FileURL:  req.FileURL,
			FileName: req.FileName,
			ReplyTo:  req.ReplyTo,
		})
		if err == nil {
			resp.Payload["message_id"] = m.ID
		}

	//讀取訊息
	case domain.ReadMessage:
		if req.MessageID != "" {
			err = h.messageUC.MarkRead(ctx, memberID, req.MessageID)
		} else {
			err = h.messageUC.MarkRoomRead(ctx, memberID, req.RoomID)
		}

	case domain.Typing, domain.StopTyping:
		err = h.messageUC.Typing(ctx, memberID, req.RoomID, c.id, domain.Action(req.Action) == domain.StopTyping)
		if err == nil {
			// typing 不回 ack
			return
		}

	//搜尋所有未讀訊息
	case domain.GetUnread:
		var counts map[string]int
		counts, err = h.roomUC.UnreadCounts(ctx, memberID)
		for roomID, n := range counts {
			resp.Payload[roomID] = n
		}

	case domain.GetOnlineUsers:
		var ids []string
		ids, err = h.presence.OnlineUsers(ctx)
		resp.Payload["users"] = ids

	default:
		h.sendError(c, "unknown action")
		return
	}

	if err != nil {
		resp.Error = errprocess.MessageOf(err)
		logger.Log.Info("websocket action failed", zap.String("MemberID", memberID), zap.String("Action", req.Action), zap.Error(err))
	} else {
		resp.Success = true
	}
	h.sendResponse(c, resp)
}

// sendResponse - 發送 JSON 給前端
func (h *ChatWebsocketHandler) sendResponse(c *wsConn, resp domain.WSResponse) {
	if err := c.Send(resp); err != nil {
		logger.Log.Warn("write message error", zap.String("conn", c.id), zap.Error(err))
	}
}

func (h *ChatWebsocketHandler) sendError(c *wsConn, errorMsg string) {
	h.sendResponse(c, domain.WSResponse{
		Action:  string(domain.ActionError),
		Success: false,
		Error:   errorMsg,
	})
}
