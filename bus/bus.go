// Package bus is an in-process publish/subscribe broker. Topics are token
// paths; subscriptions may use a single-level and a multi-level wildcard.
// Retained messages are replayed to late subscribers. Delivery never blocks
// the publisher: a full subscriber queue drops its oldest message.
package bus

import (
	"sync"
)

// -----------------------------------------------------------------------------
// Topics
// -----------------------------------------------------------------------------

// Topic is a sequence of tokens (strings or integers).
type Topic []any

// T builds a Topic, panicking on tokens that cannot key the trie.
func T(tokens ...any) Topic {
	for _, tok := range tokens {
		switch tok.(type) {
		case string, int, int32, int64, uint8, uint16, uint32, uint64:
		default:
			panic("bus: topic token must be a string or integer")
		}
	}
	return Topic(tokens)
}

// String joins the tokens with "/".
func (t Topic) String() string {
	out := make([]byte, 0, 32)
	for i, tok := range t {
		if i > 0 {
			out = append(out, '/')
		}
		switch v := tok.(type) {
		case string:
			out = append(out, v...)
		case int:
			out = appendInt(out, int64(v))
		case int32:
			out = appendInt(out, int64(v))
		case int64:
			out = appendInt(out, v)
		case uint8:
			out = appendInt(out, int64(v))
		case uint16:
			out = appendInt(out, int64(v))
		case uint32:
			out = appendInt(out, int64(v))
		case uint64:
			out = appendInt(out, int64(v))
		default:
			out = append(out, '?')
		}
	}
	return string(out)
}

func appendInt(b []byte, v int64) []byte {
	if v < 0 {
		b = append(b, '-')
		v = -v
	}
	var tmp [20]byte
	i := len(tmp)
	for {
		i--
		tmp[i] = byte('0' + v%10)
		v /= 10
		if v == 0 {
			break
		}
	}
	return append(b, tmp[i:]...)
}

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
}

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// -----------------------------------------------------------------------------
// Trie node
// -----------------------------------------------------------------------------

type node struct {
	children map[any]*node
	subs     []*Subscription
	retained *Message
}

func (n *node) child(tok any, create bool) *node {
	if c, ok := n.children[tok]; ok || !create {
		return c
	}
	if n.children == nil {
		n.children = make(map[any]*node)
	}
	c := &node{}
	n.children[tok] = c
	return c
}

func (n *node) empty() bool {
	return len(n.subs) == 0 && len(n.children) == 0 && n.retained == nil
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu       sync.Mutex
	subs     *node // subscription filters
	retained *node // retained messages by exact topic
	qLen     int
	single   any
	multi    any
}

// NewBus creates a bus with the given per-subscription queue length.
// wildcards optionally overrides the single- and multi-level wildcard
// tokens, "+" and "#" by default.
func NewBus(queueLen int, wildcards ...string) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	b := &Bus{subs: &node{}, retained: &node{}, qLen: queueLen, single: "+", multi: "#"}
	if len(wildcards) > 0 {
		b.single = wildcards[0]
	}
	if len(wildcards) > 1 {
		b.multi = wildcards[1]
	}
	return b
}

func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// Publish delivers msg to every matching subscription. A retained message
// replaces the stored one for its topic; a retained nil payload clears it.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.Retained {
		b.storeRetained(msg)
	}
	b.match(b.subs, msg.Topic, func(s *Subscription) { deliver(s, msg) })
}

func deliver(s *Subscription, msg *Message) {
	select {
	case s.ch <- msg:
	default:
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- msg:
		default:
		}
	}
}

// match visits subscriptions whose filter matches topic.
func (b *Bus) match(n *node, topic Topic, fn func(*Subscription)) {
	if m := n.children[b.multi]; m != nil {
		for _, s := range m.subs {
			fn(s)
		}
	}
	if len(topic) == 0 {
		for _, s := range n.subs {
			fn(s)
		}
		return
	}
	if c := n.children[topic[0]]; c != nil {
		b.match(c, topic[1:], fn)
	}
	if topic[0] != b.single {
		if c := n.children[b.single]; c != nil {
			b.match(c, topic[1:], fn)
		}
	}
}

func (b *Bus) storeRetained(msg *Message) {
	if msg.Payload != nil {
		n := b.retained
		for _, tok := range msg.Topic {
			n = n.child(tok, true)
		}
		n.retained = msg
		return
	}
	path := make([]*node, 0, len(msg.Topic)+1)
	n := b.retained
	path = append(path, n)
	for _, tok := range msg.Topic {
		if n = n.child(tok, false); n == nil {
			return
		}
		path = append(path, n)
	}
	n.retained = nil
	prune(path, msg.Topic)
}

// retainedMatching visits retained messages whose topic matches filter.
func (b *Bus) retainedMatching(n *node, filter Topic, fn func(*Message)) {
	if len(filter) == 0 {
		if n.retained != nil {
			fn(n.retained)
		}
		return
	}
	switch filter[0] {
	case b.multi:
		walkRetained(n, fn)
	case b.single:
		for _, c := range n.children {
			b.retainedMatching(c, filter[1:], fn)
		}
	default:
		if c := n.children[filter[0]]; c != nil {
			b.retainedMatching(c, filter[1:], fn)
		}
	}
}

func walkRetained(n *node, fn func(*Message)) {
	if n.retained != nil {
		fn(n.retained)
	}
	for _, c := range n.children {
		walkRetained(c, fn)
	}
}

func (b *Bus) subscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.subs
	for _, tok := range sub.topic {
		n = n.child(tok, true)
	}
	n.subs = append(n.subs, sub)
	b.retainedMatching(b.retained, sub.topic, func(m *Message) { deliver(sub, m) })
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	path := make([]*node, 0, len(sub.topic)+1)
	n := b.subs
	path = append(path, n)
	for _, tok := range sub.topic {
		if n = n.child(tok, false); n == nil {
			return
		}
		path = append(path, n)
	}
	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}
	prune(path, sub.topic)
}

// prune drops empty nodes from the end of path (path[i+1] is keyed by
// topic[i] under path[i]).
func prune(path []*node, topic Topic) {
	for i := len(topic) - 1; i >= 0; i-- {
		if !path[i+1].empty() {
			return
		}
		delete(path[i].children, topic[i])
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

// Connection groups the subscriptions of one component so they can be torn
// down together.
type Connection struct {
	bus  *Bus
	id   string
	mu   sync.Mutex
	subs []*Subscription
}

func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

// Subscribe registers a filter. Matching retained messages are queued
// before Subscribe returns.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.bus.subscribe(sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

// Unsubscribe removes sub and closes its channel.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.mu.Lock()
	found := false
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			found = true
			break
		}
	}
	c.mu.Unlock()
	if !found {
		return
	}
	c.bus.unsubscribe(sub)
	close(sub.ch)
}

// Disconnect closes every subscription of this connection.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	for _, sub := range subs {
		c.bus.unsubscribe(sub)
		close(sub.ch)
	}
}
