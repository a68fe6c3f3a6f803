package realtime

import (
	"sync"

	"github.com/google/uuid"
)

const defaultSendQueue = 64

// Client 一个 websocket 连接
// Send 不由服务端关闭，关闭信号走 done
type Client struct {
	ID     string
	UserID string
	Send   chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(userID string, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = defaultSendQueue
	}
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close 幂等
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
