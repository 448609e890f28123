package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// NoticeEvent describes websocket payloads pushed to idea authors.
type NoticeEvent struct {
	Type      string     `json:"type"`
	Notice    *NoticeDTO `json:"notice,omitempty"`
	Idea      *IdeaDTO   `json:"idea,omitempty"`
	Unread    int        `json:"unread"`
	Timestamp time.Time  `json:"timestamp"`
}

// wsClient wraps a websocket connection with write locking.
type wsClient struct {
	userID string
	conn   *websocket.Conn
	mu     sync.Mutex
}

// NoticeNotifier tracks websocket clients per user and pushes revival notices to them.
type NoticeNotifier struct {
	mu      sync.Mutex
	clients map[string]map[*wsClient]struct{}
}

// NewNoticeNotifier constructs a notifier instance.
func NewNoticeNotifier() *NoticeNotifier {
	return &NoticeNotifier{clients: make(map[string]map[*wsClient]struct{})}
}

// Register attaches a websocket connection for userID and sends the unread count.
func (n *NoticeNotifier) Register(userID string, conn *websocket.Conn, unread int) *wsClient {
	client := &wsClient{userID: userID, conn: conn}
	n.mu.Lock()
	set, ok := n.clients[userID]
	if !ok {
		set = make(map[*wsClient]struct{})
		n.clients[userID] = set
	}
	set[client] = struct{}{}
	n.mu.Unlock()

	_ = client.writeJSON(NoticeEvent{Type: "hello", Unread: unread, Timestamp: time.Now().UTC()})
	return client
}

// Unregister removes the websocket client and closes the socket.
func (n *NoticeNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	n.remove(client)
	n.mu.Unlock()
	_ = client.conn.Close()
}

// remove expects n.mu to be held.
func (n *NoticeNotifier) remove(client *wsClient) {
	set := n.clients[client.userID]
	delete(set, client)
	if len(set) == 0 {
		delete(n.clients, client.userID)
	}
}

// Notify sends event to every connection of userID and reports how many received it.
func (n *NoticeNotifier) Notify(userID string, event NoticeEvent) int {
	event.Timestamp = time.Now().UTC()

	n.mu.Lock()
	defer n.mu.Unlock()
	delivered := 0
	for client := range n.clients[userID] {
		if err := client.writeJSON(event); err != nil {
			n.remove(client)
			_ = client.conn.Close()
			continue
		}
		delivered++
	}
	return delivered
}

// Connected returns the number of open connections for userID.
func (n *NoticeNotifier) Connected(userID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.clients[userID])
}

func (c *wsClient) writeJSON(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}
