package hospital

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mediconnect/mediconnect-platform/internal/session"
	"github.com/mediconnect/mediconnect-platform/pkg/logging"
)

// Feed message types.
const (
	FeedAnnouncement = "announcement.published"
	FeedDoctorAdded  = "doctor.added"
)

const (
	feedBuffer     = 32
	feedWriteWait  = 10 * time.Second
	feedPingPeriod = 30 * time.Second
)

// FeedMessage is pushed to dashboard clients.
type FeedMessage struct {
	Type         string        `json:"type"`
	HospitalID   string        `json:"hospital_id"`
	Announcement *Announcement `json:"announcement,omitempty"`
	Doctor       *Doctor       `json:"doctor,omitempty"`
	SentAt       time.Time     `json:"sent_at"`
}

type feedClient struct {
	send chan []byte
}

// Feed fans dashboard updates out to the websocket clients of each
// hospital. A client whose buffer is full misses the message.
type Feed struct {
	mu       sync.RWMutex
	clients  map[string]map[*feedClient]struct{}
	upgrader websocket.Upgrader
	logger   *logging.Logger
}

// NewFeed creates a feed. checkOrigin may be nil to accept same-host
// requests only.
func NewFeed(checkOrigin func(r *http.Request) bool, logger *logging.Logger) *Feed {
	if logger == nil {
		logger = logging.Default()
	}
	return &Feed{
		clients: make(map[string]map[*feedClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

// Broadcast sends msg to every client of msg.HospitalID.
func (f *Feed) Broadcast(msg FeedMessage) {
	if f == nil {
		return
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		f.logger.Error("failed to marshal feed message", "type", msg.Type, "error", err)
		return
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for c := range f.clients[msg.HospitalID] {
		select {
		case c.send <- data:
		default:
		}
	}
}

// Subscribers returns the number of clients connected for a hospital.
func (f *Feed) Subscribers(hospitalID string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients[hospitalID])
}

func (f *Feed) register(hospitalID string) *feedClient {
	c := &feedClient{send: make(chan []byte, feedBuffer)}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clients[hospitalID] == nil {
		f.clients[hospitalID] = make(map[*feedClient]struct{})
	}
	f.clients[hospitalID][c] = struct{}{}
	return c
}

func (f *Feed) unregister(hospitalID string, c *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.clients[hospitalID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(f.clients, hospitalID)
	}
	close(c.send)
}

// serve upgrades the request and streams the hospital's messages until the
// client goes away. Inbound frames are read only to detect the close.
func (f *Feed) serve(w http.ResponseWriter, r *http.Request, hospitalID string) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("feed upgrade failed", "hospital_id", hospitalID, "error", err)
		return
	}
	client := f.register(hospitalID)
	sess, _ := session.FromContext(r.Context())
	if sess != nil {
		f.logger.Debug("feed client connected", "hospital_id", hospitalID, "user_id", sess.UserID)
	}

	go f.writeLoop(conn, client)

	defer f.unregister(hospitalID, client)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *Feed) writeLoop(conn *websocket.Conn, c *feedClient) {
	ticker := time.NewTicker(feedPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
