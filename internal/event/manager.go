package event

import (
	"sync"

	"go.uber.org/zap"
)

// The manager fans committed market transitions out to listeners. Each
// listener drains its own buffered channel on a dedicated goroutine, so a
// slow consumer never blocks the ledger's commit path.
type manager struct {
	mu        sync.RWMutex
	listeners []*listener
}

type listener struct {
	eventType Type
	channel   chan interface{}
}

var defaultManager = &manager{}

func AddEventListener(eventType Type, callback func(msg interface{})) {
	defaultManager.addListener(eventType, callback)
}

func EmitEvent(eventType Type, msg interface{}) {
	defaultManager.emit(eventType, msg)
}

func (m *manager) addListener(eventType Type, callback func(msg interface{})) {
	zap.L().With(zap.String("type", string(eventType))).Debug("EventManager: AddListener")

	l := &listener{
		eventType: eventType,
		channel:   make(chan interface{}, 16),
	}

	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()

	go func() {
		for msg := range l.channel {
			callback(msg)
		}
	}()
}

func (m *manager) emit(eventType Type, msg interface{}) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, l := range m.listeners {
		if l.eventType != eventType {
			continue
		}

		zap.L().With(zap.String("type", string(eventType))).Debug("EventManager: Emitting event")

		select {
		case l.channel <- msg:
		default:
			// The buffer is full; hand off without stalling the emitter.
			go func(channel chan interface{}) {
				channel <- msg
			}(l.channel)
		}
	}
}
