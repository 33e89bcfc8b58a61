package tracking

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Delivery is the per-connection outcome of one broadcast.
type Delivery struct {
	Delivered int
	Dropped   int
}

// Router maps topic names to member connections. Like Registry it relies on
// Tracker for serialization.
type Router struct {
	lookup      ConnLookup
	topics      map[string]map[string]struct{}
	memberships map[string]map[string]struct{}
}

func NewRouter(lookup ConnLookup) *Router {
	return &Router{
		lookup:      lookup,
		topics:      make(map[string]map[string]struct{}),
		memberships: make(map[string]map[string]struct{}),
	}
}

// Join adds connID to topic, creating the topic on first use.
func (r *Router) Join(connID, topic string) {
	members, ok := r.topics[topic]
	if !ok {
		members = make(map[string]struct{})
		r.topics[topic] = members
	}
	members[connID] = struct{}{}

	joined, ok := r.memberships[connID]
	if !ok {
		joined = make(map[string]struct{})
		r.memberships[connID] = joined
	}
	joined[topic] = struct{}{}
}

// Broadcast sends payload under event to every current member of topic.
// An empty or unknown topic is a no-op.
func (r *Router) Broadcast(topic, event string, payload any) (Delivery, error) {
	var d Delivery

	members := r.topics[topic]
	if len(members) == 0 {
		return d, nil
	}

	// encode once for all members
	raw, err := json.Marshal(payload)
	if err != nil {
		return d, fmt.Errorf("encode %s payload: %w", event, err)
	}

	for connID := range members {
		sender, ok := r.lookup.Conn(connID)
		if !ok {
			d.Dropped++
			continue
		}
		if err := sender.Send(event, json.RawMessage(raw)); err != nil {
			d.Dropped++
			continue
		}
		d.Delivered++
	}

	return d, nil
}

// LeaveAll removes connID from every topic and deletes topics left empty.
// It returns the number of topics left.
func (r *Router) LeaveAll(connID string) int {
	joined := r.memberships[connID]
	for topic := range joined {
		members := r.topics[topic]
		delete(members, connID)
		if len(members) == 0 {
			delete(r.topics, topic)
		}
	}
	delete(r.memberships, connID)

	return len(joined)
}

// Members returns the sorted member ids of topic.
func (r *Router) Members(topic string) []string {
	out := make([]string, 0, len(r.topics[topic]))
	for connID := range r.topics[topic] {
		out = append(out, connID)
	}
	sort.Strings(out)
	return out
}

// Topics returns the sorted topics connID belongs to.
func (r *Router) Topics(connID string) []string {
	out := make([]string, 0, len(r.memberships[connID]))
	for topic := range r.memberships[connID] {
		out = append(out, topic)
	}
	sort.Strings(out)
	return out
}

func (r *Router) Len() int {
	return len(r.topics)
}
