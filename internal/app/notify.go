package app

import (
	"sync"
	"time"
)

// Level is the severity of a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notifier shows transient, non-blocking messages to the user.
type Notifier interface {
	Notify(level Level, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(level Level, message string)

func (f NotifierFunc) Notify(level Level, message string) { f(level, message) }

// Discard drops every notification.
var Discard Notifier = NotifierFunc(func(Level, string) {})

// Notification is one message kept by a Feed.
type Notification struct {
	Level   Level
	Message string
	At      time.Time
}

// Feed collects notifications for front-ends that poll instead of render
// on push, such as the CLI printing warnings after a command.
type Feed struct {
	mu    sync.Mutex
	items []Notification
	now   func() time.Time
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{now: time.Now}
}

func (f *Feed) Notify(level Level, message string) {
	f.mu.Lock()
	f.items = append(f.items, Notification{Level: level, Message: message, At: f.now()})
	f.mu.Unlock()
}

// Drain returns and forgets every collected notification.
func (f *Feed) Drain() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.items
	f.items = nil
	return items
}
