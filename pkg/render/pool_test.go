package render

import "testing"

func TestPoolAcquireRelease(t *testing.T) {
	p := NewPool(2)

	if _, ok := p.Acquire("div"); ok {
		t.Error("empty pool should miss")
	}

	h := &struct{}{}
	p.Release("div", h)

	got, ok := p.Acquire("div")
	if !ok || got != h {
		t.Error("expected the released handle back")
	}

	hits, misses := p.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("stats = %d/%d, want 1/1", hits, misses)
	}
}

func TestPoolTypesAreSeparate(t *testing.T) {
	p := NewPool(4)
	p.Release("div", &struct{}{})

	if _, ok := p.Acquire("span"); ok {
		t.Error("handles must not cross node types")
	}
}

func TestPoolCapacity(t *testing.T) {
	p := NewPool(1)
	p.Release("div", &struct{ a int }{1})
	p.Release("div", &struct{ a int }{2})

	if _, ok := p.Acquire("div"); !ok {
		t.Fatal("expected one retained handle")
	}
	if _, ok := p.Acquire("div"); ok {
		t.Error("over-capacity handles should be dropped")
	}
}

func TestPoolNilRelease(t *testing.T) {
	p := NewPool(1)
	p.Release("div", nil)
	if _, ok := p.Acquire("div"); ok {
		t.Error("nil handles must not be parked")
	}
}
