package instrument

import (
	"context"
	"fmt"
	"sync"
)

// FakeSession is a scripted in-memory Session for tests.
//
// Replies maps a command to the raw reply returned for it; Errors maps a
// command to the error returned instead. Commands with neither entry succeed
// with an empty reply when no reply is requested and fail otherwise.
type FakeSession struct {
	mu      sync.Mutex
	Replies map[string]string
	Errors  map[string]error
	sent    []string
	closes  int
}

// NewFakeSession returns a FakeSession answering with replies.
func NewFakeSession(replies map[string]string) *FakeSession {
	return &FakeSession{Replies: replies, Errors: map[string]error{}}
}

// Send implements Session.
func (f *FakeSession) Send(ctx context.Context, command string, reply bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, command)
	if err := ctx.Err(); err != nil {
		return "", &CommandError{Command: command, Err: err}
	}
	if err, ok := f.Errors[command]; ok {
		return "", &CommandError{Command: command, Err: err}
	}
	if !reply {
		return "", nil
	}
	resp, ok := f.Replies[command]
	if !ok {
		return "", &CommandError{Command: command, Err: fmt.Errorf("no scripted reply")}
	}
	return resp, nil
}

// Close implements Session.
func (f *FakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

// Sent returns every command sent so far, in order.
func (f *FakeSession) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// Closes returns how many times Close was called.
func (f *FakeSession) Closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

// FakeDialer hands out sessions from Script. The argument is the 0-based
// number of the Open call.
type FakeDialer struct {
	mu     sync.Mutex
	Script func(n int) (*FakeSession, error)
	opened []*FakeSession
	calls  int
}

// NewFakeDialer returns a dialer that always opens session.
func NewFakeDialer(session *FakeSession) *FakeDialer {
	return &FakeDialer{Script: func(int) (*FakeSession, error) { return session, nil }}
}

// Open implements Dialer.
func (d *FakeDialer) Open(ctx context.Context) (Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := d.calls
	d.calls++
	if err := ctx.Err(); err != nil {
		return nil, &ConnectionError{Address: "fake", Err: err}
	}
	s, err := d.Script(n)
	if err != nil {
		return nil, &ConnectionError{Address: "fake", Err: err}
	}
	d.opened = append(d.opened, s)
	return s, nil
}

// Calls returns how many times Open was called.
func (d *FakeDialer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// Opened returns the sessions handed out so far.
func (d *FakeDialer) Opened() []*FakeSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*FakeSession(nil), d.opened...)
}
