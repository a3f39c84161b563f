package state

import "time"

// ID identifies a single step of a conversation flow.
type ID string

// None marks the absence of an active step.
const None ID = ""

// Key identifies the owner of a conversation. Group chats track each
// member separately, so the same user may run different flows in
// different chats at the same time.
type Key struct {
	ChatID int64
	UserID int64
}

// Frame is one suspended level of a conversation stack. When a child flow
// starts, the parent's position is pushed and restored on completion.
type Frame struct {
	Flow  string
	State ID
	Data  map[string]any
}

// Conversation holds the active flow, the current step, and scratch data
// collected along the way.
type Conversation struct {
	Flow         string
	State        ID
	Data         map[string]any
	StartedAt    time.Time
	LastActivity time.Time

	parent *Frame
}

// NewConversation starts a conversation positioned at the given step.
func NewConversation(flow string, st ID) *Conversation {
	now := time.Now()
	return &Conversation{
		Flow:         flow,
		State:        st,
		Data:         make(map[string]any),
		StartedAt:    now,
		LastActivity: now,
	}
}

// Touch refreshes the activity timestamp.
func (c *Conversation) Touch() {
	c.LastActivity = time.Now()
}

// Set stores a scratch value.
func (c *Conversation) Set(key string, value any) {
	if c.Data == nil {
		c.Data = make(map[string]any)
	}
	c.Data[key] = value
}

// Get retrieves a scratch value.
func (c *Conversation) Get(key string) (any, bool) {
	v, ok := c.Data[key]
	return v, ok
}

// GetString retrieves a scratch value as string.
func (c *Conversation) GetString(key string) (string, bool) {
	v, ok := c.Data[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetInt64 retrieves a scratch value as int64.
func (c *Conversation) GetInt64(key string) (int64, bool) {
	v, ok := c.Data[key]
	if !ok {
		return 0, false
	}
	n, ok := v.(int64)
	return n, ok
}

// Delete removes a scratch value.
func (c *Conversation) Delete(key string) {
	delete(c.Data, key)
}

// PushChild suspends the current position and repositions the conversation
// at the first step of a child flow. The child starts with fresh data.
func (c *Conversation) PushChild(flow string, st ID) {
	c.parent = &Frame{
		Flow:  c.Flow,
		State: c.State,
		Data:  c.Data,
	}
	c.Flow = flow
	c.State = st
	c.Data = make(map[string]any)
	c.Touch()
}

// PopParent restores the suspended parent frame, if any. The child's data
// is discarded; values meant for the parent must be copied before the pop.
func (c *Conversation) PopParent() (Frame, bool) {
	if c.parent == nil {
		return Frame{}, false
	}
	frame := *c.parent
	c.parent = nil
	c.Flow = frame.Flow
	c.State = frame.State
	c.Data = frame.Data
	if c.Data == nil {
		c.Data = make(map[string]any)
	}
	c.Touch()
	return frame, true
}

// HasParent reports whether a parent frame is suspended under this conversation.
func (c *Conversation) HasParent() bool {
	return c.parent != nil
}

// ParentData exposes the suspended parent's scratch map so a child flow can
// hand results up before finishing.
func (c *Conversation) ParentData() (map[string]any, bool) {
	if c.parent == nil {
		return nil, false
	}
	if c.parent.Data == nil {
		c.parent.Data = make(map[string]any)
	}
	return c.parent.Data, true
}
