package storage

import (
	"context"
	"sync"
)

// watcherSet multiplexes per-key change notifications. Both stores share it:
// the "watch" primitive is an in-process subscription to saves, not a
// property of the backing medium.
type watcherSet struct {
	mu       sync.Mutex
	watchers map[string][]*watcher
}

type watcher struct {
	ch chan Record
}

func newWatcherSet() *watcherSet {
	return &watcherSet{watchers: make(map[string][]*watcher)}
}

// watch registers a subscription for id, removed when ctx is done.
func (ws *watcherSet) watch(ctx context.Context, id string) <-chan Record {
	w := &watcher{ch: make(chan Record, 16)}

	ws.mu.Lock()
	ws.watchers[id] = append(ws.watchers[id], w)
	ws.mu.Unlock()

	go func() {
		<-ctx.Done()
		ws.remove(id, w)
		close(w.ch)
	}()

	return w.ch
}

// notify fans a saved record out to every watcher of its id. Watchers with a
// full buffer skip this version rather than block the saver.
func (ws *watcherSet) notify(rec Record) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for _, w := range ws.watchers[rec.ID] {
		select {
		case w.ch <- rec:
		default:
		}
	}
}

func (ws *watcherSet) remove(id string, target *watcher) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	list := ws.watchers[id]
	for i, w := range list {
		if w == target {
			ws.watchers[id] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(ws.watchers[id]) == 0 {
		delete(ws.watchers, id)
	}
}
