package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/mindful/adapters/capture"
	"github.com/satriahrh/mindful/domain"
	"github.com/satriahrh/mindful/domain/entities"
	"github.com/satriahrh/mindful/internal/audio"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024

	sendBufferSize = 64
	stopTimeout    = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// VoiceProcessor runs one voice interaction
type VoiceProcessor interface {
	ProcessSession(ctx context.Context, sessionID string, req entities.VoiceRequest) entities.VoiceResult
}

// Hub maintains the set of active voice connections
type Hub struct {
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	processor VoiceProcessor
	capture   audio.CaptureConfig
	validator *MessageValidator

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub. capture is the base recorder
// configuration each connection starts from.
func NewHub(processor VoiceProcessor, capture audio.CaptureConfig, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		processor:  processor,
		capture:    capture,
		validator:  NewMessageValidator(),
		logger:     logger,
	}
}

// Run starts the hub's main loop and returns when ctx is done. Connections
// arriving after that are refused.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("connectionID", client.id))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				client.close()
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("connectionID", client.id))

		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				client.close()
			}
			h.mu.Unlock()
			return
		}
	}
}

// ClientCount returns the number of registered connections
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// WriteData is one outbound frame
type WriteData struct {
	// Type is websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is one voice connection. It owns a recorder fed by a push
// microphone, so recordings on different connections never interfere.
type Client struct {
	hub *Hub

	conn *websocket.Conn
	send chan WriteData

	id       string
	clientID string
	logger   *zap.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mutex     sync.Mutex
	mic       *capture.PushMicrophone
	recorder  *audio.Recorder
	sessionID string
	request   entities.VoiceRequest
	chunks    int
}

// HandleWebSocket upgrades the request and serves a voice connection.
// clientID identifies the authenticated caller, if any.
func HandleWebSocket(hub *Hub, c echo.Context, clientID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan WriteData, sendBufferSize),
		id:       id,
		clientID: clientID,
		logger:   logger.With(zap.String("connectionID", id), zap.String("clientID", clientID)),
		ctx:      ctx,
		cancel:   cancel,
	}

	select {
	case client.hub.register <- client:
	case <-client.hub.done:
		logger.Warn("WebSocket connection refused: hub is shut down")
		cancel()
		conn.Close()
		return nil
	}

	go client.writePump()
	go client.readPump()

	return nil
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.cancel()
	})
}

// readPump pumps messages from the websocket connection to the client handlers.
func (c *Client) readPump() {
	defer func() {
		c.abortRecording()
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
			c.close()
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			return
		}

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		case websocket.BinaryMessage:
			c.processBinaryAudioChunk(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps queued frames to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// sendJSON queues a text frame. Frames are dropped when the connection is
// closed or its buffer is full.
func (c *Client) sendJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return
	}
	select {
	case <-c.ctx.Done():
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
	default:
		c.logger.Warn("Send buffer full, dropping message")
	}
}

func (c *Client) sendError(code, message string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
	}
	c.sendJSON(CreateErrorMessage(code, message, details))
}

// processMessage dispatches a control message
func (c *Client) processMessage(message []byte) {
	parsed, err := c.hub.validator.ValidateMessage(message)
	if err != nil {
		c.logger.Warn("Invalid message", zap.Error(err))
		c.sendError("invalid_message", "Invalid message", err)
		return
	}

	switch msg := parsed.(type) {
	case *ListeningStartMessage:
		c.handleListeningStart(msg)
	case *ListeningEndMessage:
		c.handleListeningEnd()
	case *PingMessage:
		c.sendJSON(CreatePongMessage(msg.Data))
	}
}

// processBinaryAudioChunk feeds an audio frame to the active recording
func (c *Client) processBinaryAudioChunk(data []byte) {
	c.mutex.Lock()
	mic := c.mic
	sessionID := c.sessionID
	if mic != nil {
		c.chunks++
	}
	c.mutex.Unlock()

	if mic == nil {
		c.logger.Warn("Received binary audio chunk but no active recording")
		c.sendError("no_active_recording", "Send listening_start before audio", domain.ErrNoActiveRecording)
		return
	}

	if err := mic.Push(data); err != nil {
		c.logger.Warn("Failed to push audio chunk",
			zap.String("sessionID", sessionID),
			zap.Error(err))
		return
	}
	c.logger.Debug("Received binary audio chunk",
		zap.String("sessionID", sessionID),
		zap.Int("size", len(data)))
}

// handleListeningStart opens a new recorder for this connection
func (c *Client) handleListeningStart(msg *ListeningStartMessage) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.recorder != nil {
		c.sendError("invalid_state", "A recording is already in progress", domain.ErrInvalidState)
		return
	}

	cfg := c.hub.capture
	if msg.Container != "" {
		cfg.Container = msg.Container
	}
	if msg.SampleRate > 0 {
		cfg.SampleRate = msg.SampleRate
	}
	if msg.Channels > 0 {
		cfg.Channels = msg.Channels
	}

	mic := capture.NewPushMicrophone()
	recorder := audio.NewRecorder(mic, cfg, c.logger)
	if err := recorder.Start(c.ctx); err != nil {
		c.logger.Error("Failed to start recording", zap.Error(err))
		c.sendError("recording_failed", "Failed to start recording", err)
		return
	}

	c.mic = mic
	c.recorder = recorder
	c.sessionID = uuid.NewString()
	c.request = entities.VoiceRequest{Model: msg.Model, Voice: msg.Voice, Language: msg.Language}
	c.chunks = 0

	c.logger.Info("Listening started", zap.String("sessionID", c.sessionID))
	c.sendJSON(CreateListeningStartedMessage(c.sessionID))
}

// handleListeningEnd stops the recorder and runs the pipeline in the background
func (c *Client) handleListeningEnd() {
	c.mutex.Lock()
	recorder := c.recorder
	sessionID := c.sessionID
	request := c.request
	chunks := c.chunks
	c.mic = nil
	c.recorder = nil
	c.mutex.Unlock()

	if recorder == nil {
		c.sendError("no_active_recording", "No active recording", domain.ErrNoActiveRecording)
		return
	}

	stopCtx, cancel := context.WithTimeout(c.ctx, stopTimeout)
	payload, err := recorder.Stop(stopCtx)
	cancel()
	if err != nil {
		c.logger.Error("Failed to stop recording", zap.String("sessionID", sessionID), zap.Error(err))
		c.sendError("recording_failed", "Failed to stop recording", err)
		return
	}
	if chunks == 0 {
		payload = ""
	}

	c.logger.Info("Listening ended",
		zap.String("sessionID", sessionID),
		zap.Int("chunks", chunks))

	req := entities.NewVoiceRequest(payload, request.Model, request.Voice, request.Language)
	go func() {
		result := c.hub.processor.ProcessSession(c.ctx, sessionID, req)
		if errors.Is(c.ctx.Err(), context.Canceled) {
			return
		}
		c.sendJSON(CreateVoiceResultMessage(sessionID, result))
	}()
}

// abortRecording releases the recorder when the connection goes away
func (c *Client) abortRecording() {
	c.mutex.Lock()
	recorder := c.recorder
	c.mic = nil
	c.recorder = nil
	c.mutex.Unlock()

	if recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if _, err := recorder.Stop(ctx); err != nil && !errors.Is(err, domain.ErrNoActiveRecording) {
		c.logger.Warn("Failed to release recording on disconnect", zap.Error(err))
	}
}
