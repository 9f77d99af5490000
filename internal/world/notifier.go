// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

// notifier wakes goroutines waiting for an instance id to appear.
// Each waiter owns a channel that is closed exactly once, either when the
// instance is published or when the waiter unsubscribes.
type notifier struct {
	mu   sync.Mutex
	subs map[ulid.ULID][]chan struct{}
}

func newNotifier() *notifier {
	return &notifier{
		subs: make(map[ulid.ULID][]chan struct{}),
	}
}

// subscribe registers a waiter for instanceID.
func (n *notifier) subscribe(instanceID ulid.ULID) chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan struct{})
	n.subs[instanceID] = append(n.subs[instanceID], ch)
	return ch
}

// unsubscribe removes a waiter. It is a no-op when the waiter was already
// released by publish.
func (n *notifier) unsubscribe(instanceID ulid.ULID, ch chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()

	subs := n.subs[instanceID]
	for i, sub := range subs {
		if sub == ch {
			subs = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}
	if len(subs) == 0 {
		delete(n.subs, instanceID)
	} else {
		n.subs[instanceID] = subs
	}
}

// publish releases every waiter for instanceID.
func (n *notifier) publish(instanceID ulid.ULID) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs[instanceID] {
		close(ch)
	}
	delete(n.subs, instanceID)
}

// waiting returns the number of registered waiters.
func (n *notifier) waiting() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	count := 0
	for _, subs := range n.subs {
		count += len(subs)
	}
	return count
}
