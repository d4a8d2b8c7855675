// Package observability defines the optional metrics surface a caller
// can attach to a Database: counters for opens, saves, and the two
// failure modes a caller most wants to alarm on (decryption and
// integrity failures). It follows the same interface/no-op/atomic-swap
// shape the teacher's tunnel observability package uses, generalized
// from connection-level events to database-operation-level ones.
package observability

import (
	"sync"
	"sync/atomic"
)

// Observer receives database-level events.
type Observer interface {
	// Opened is called once a database has been successfully decrypted
	// and parsed.
	Opened()
	// Saved is called once a database has been successfully written.
	Saved()
	// DecryptFailed is called when the AES-CBC payload could not be
	// decrypted at all (empty or truncated ciphertext).
	DecryptFailed()
	// IntegrityFailed is called when decryption ran but the padding or
	// the contents hash did not check out — almost always a wrong key.
	IntegrityFailed()
}

type noopObserver struct{}

func (noopObserver) Opened()          {}
func (noopObserver) Saved()           {}
func (noopObserver) DecryptFailed()   {}
func (noopObserver) IntegrityFailed() {}

// NoopObserver discards every event. It is the default for a Database
// whose Observer field is left unset.
var NoopObserver Observer = noopObserver{}

// AtomicObserver lets a long-lived process swap its delegate observer
// at runtime, e.g. to attach a Prometheus exporter after startup.
type AtomicObserver struct {
	once sync.Once
	v    atomic.Value
}

type observerHolder struct {
	obs Observer
}

// NewAtomicObserver returns an initialized atomic observer that starts
// out delegating to NoopObserver.
func NewAtomicObserver() *AtomicObserver {
	a := &AtomicObserver{}
	a.once.Do(func() { a.v.Store(&observerHolder{obs: NoopObserver}) })
	return a
}

// Set replaces the delegate, falling back to NoopObserver on nil.
func (a *AtomicObserver) Set(obs Observer) {
	if obs == nil {
		obs = NoopObserver
	}
	a.once.Do(func() { a.v.Store(&observerHolder{obs: NoopObserver}) })
	a.v.Store(&observerHolder{obs: obs})
}

func (a *AtomicObserver) load() Observer {
	a.once.Do(func() { a.v.Store(&observerHolder{obs: NoopObserver}) })
	return a.v.Load().(*observerHolder).obs
}

func (a *AtomicObserver) Opened()          { a.load().Opened() }
func (a *AtomicObserver) Saved()           { a.load().Saved() }
func (a *AtomicObserver) DecryptFailed()   { a.load().DecryptFailed() }
func (a *AtomicObserver) IntegrityFailed() { a.load().IntegrityFailed() }
