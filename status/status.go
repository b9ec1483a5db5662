// Package status holds the two notification slots read by the game's
// render loop: a transient toast and a persistent HUD line.
package status

import (
	"sync"
	"time"
)

// Sentiment tells the renderer which colour to use.
type Sentiment bool

const (
	Positive Sentiment = true
	Negative Sentiment = false
)

func (s Sentiment) String() string {
	if s {
		return "positive"
	}
	return "negative"
}

// Toast is a short lived notification.
type Toast struct {
	Message   string
	Sentiment Sentiment
	Expiry    time.Time
}

// Line is the always-visible HUD line.
type Line struct {
	Message   string
	Sentiment Sentiment
}

// Channel is safe for any number of concurrent writers and a single reader
// calling Tick and Read once per frame. Each slot is replaced as a whole,
// so a reader never observes a half-written toast.
type Channel struct {
	mu         sync.Mutex
	toast      *Toast
	persistent Line
	now        func() time.Time
}

// New creates an empty channel. A nil clock means time.Now.
func New(clock func() time.Time) *Channel {
	if clock == nil {
		clock = time.Now
	}
	return &Channel{now: clock}
}

// SetToast replaces the toast; it expires ttl from now.
func (c *Channel) SetToast(message string, sentiment Sentiment, ttl time.Duration) {
	t := &Toast{
		Message:   message,
		Sentiment: sentiment,
		Expiry:    c.now().Add(ttl),
	}
	c.mu.Lock()
	c.toast = t
	c.mu.Unlock()
}

// SetPersistent replaces the HUD line.
func (c *Channel) SetPersistent(message string, sentiment Sentiment) {
	c.mu.Lock()
	c.persistent = Line{Message: message, Sentiment: sentiment}
	c.mu.Unlock()
}

// Tick clears the toast once now is past its expiry.
func (c *Channel) Tick(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.toast != nil && now.After(c.toast.Expiry) {
		c.toast = nil
	}
}

// Read returns a copy of both slots. The toast is nil when there is none.
func (c *Channel) Read() (*Toast, Line) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.toast == nil {
		return nil, c.persistent
	}
	t := *c.toast
	return &t, c.persistent
}
