package observability

import "testing"

type countingObserver struct {
	opened, saved, decryptFailed, integrityFailed int
}

func (c *countingObserver) Opened()          { c.opened++ }
func (c *countingObserver) Saved()           { c.saved++ }
func (c *countingObserver) DecryptFailed()   { c.decryptFailed++ }
func (c *countingObserver) IntegrityFailed() { c.integrityFailed++ }

func TestNoopObserverDiscardsEvents(t *testing.T) {
	// Must not panic; there is nothing else to assert about a no-op.
	NoopObserver.Opened()
	NoopObserver.Saved()
	NoopObserver.DecryptFailed()
	NoopObserver.IntegrityFailed()
}

func TestAtomicObserverSwapsDelegate(t *testing.T) {
	a := NewAtomicObserver()
	a.Opened() // delegates to NoopObserver before Set

	c := &countingObserver{}
	a.Set(c)
	a.Opened()
	a.Saved()
	a.DecryptFailed()
	a.IntegrityFailed()
	if c.opened != 1 || c.saved != 1 || c.decryptFailed != 1 || c.integrityFailed != 1 {
		t.Fatalf("unexpected counts: %+v", c)
	}
}

func TestAtomicObserverSetNilFallsBackToNoop(t *testing.T) {
	a := NewAtomicObserver()
	a.Set(nil)
	a.Opened() // must not panic
}
