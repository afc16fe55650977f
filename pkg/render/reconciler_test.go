package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/treeline-dev/treeline/pkg/rtree"
)

// fakeNode is a test double for a render-target node.
type fakeNode struct {
	typ      string
	attrs    map[string]string
	text     string
	children []*fakeNode
	parent   *fakeNode
}

// fakeTarget implements Target over an in-memory tree. Setting failOps
// makes the next N operations fail, for exercising recovery paths.
type fakeTarget struct {
	root    *fakeNode
	created int
	failOps int
}

var errInjected = errors.New("injected target failure")

func newFakeTarget() *fakeTarget {
	return &fakeTarget{root: &fakeNode{typ: "root"}}
}

func (t *fakeTarget) fail() bool {
	if t.failOps > 0 {
		t.failOps--
		return true
	}
	return false
}

func (t *fakeTarget) CreateNode(typ string) (NodeHandle, error) {
	if t.fail() {
		return nil, errInjected
	}
	t.created++
	return &fakeNode{typ: typ, attrs: make(map[string]string)}, nil
}

func (t *fakeTarget) SetAttribute(n NodeHandle, key, value string) error {
	if t.fail() {
		return errInjected
	}
	node := n.(*fakeNode)
	if value == "" {
		delete(node.attrs, key)
		return nil
	}
	node.attrs[key] = value
	return nil
}

func (t *fakeTarget) SetText(n NodeHandle, text string) error {
	if t.fail() {
		return errInjected
	}
	n.(*fakeNode).text = text
	return nil
}

func (t *fakeTarget) InsertChild(parent, child NodeHandle, index int) error {
	if t.fail() {
		return errInjected
	}
	p := parent.(*fakeNode)
	c := child.(*fakeNode)
	if c.parent != nil {
		detachFake(c)
	}
	if index < 0 || index > len(p.children) {
		index = len(p.children)
	}
	p.children = append(p.children, nil)
	copy(p.children[index+1:], p.children[index:])
	p.children[index] = c
	c.parent = p
	return nil
}

func (t *fakeTarget) RemoveNode(n NodeHandle) error {
	if t.fail() {
		return errInjected
	}
	detachFake(n.(*fakeNode))
	return nil
}

func detachFake(c *fakeNode) {
	p := c.parent
	if p == nil {
		return
	}
	for i, sibling := range p.children {
		if sibling == c {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	c.parent = nil
}

// renderText flattens the target tree's text content.
func renderText(n *fakeNode) string {
	var b strings.Builder
	var walk func(*fakeNode)
	walk = func(n *fakeNode) {
		b.WriteString(n.text)
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// fallbackObserver records reconciler notifications.
type fallbackObserver struct {
	NopObserver
	applied   []string
	failed    int
	fallbacks int
}

func (o *fallbackObserver) Applied(mode string, ops int) { o.applied = append(o.applied, mode) }
func (o *fallbackObserver) ApplyFailed(string, error)    { o.failed++ }
func (o *fallbackObserver) FallbackTriggered(int)        { o.fallbacks++ }

func page(text string) *rtree.Node {
	return rtree.El("div", rtree.Attrs{"class": "page"}, rtree.Text(text))
}

func TestReconcilerInitialMount(t *testing.T) {
	target := newFakeTarget()
	rec := NewReconciler(target, target.root)

	if err := rec.Render(page("hello")); err != nil {
		t.Fatalf("Render: %v", err)
	}

	if len(target.root.children) != 1 {
		t.Fatalf("expected one mounted child, got %d", len(target.root.children))
	}
	div := target.root.children[0]
	if div.typ != "div" || div.attrs["class"] != "page" {
		t.Errorf("unexpected mounted element: %+v", div)
	}
	if renderText(target.root) != "hello" {
		t.Errorf("text = %q", renderText(target.root))
	}
}

func TestReconcilerBatchedUpdate(t *testing.T) {
	target := newFakeTarget()
	rec := NewReconciler(target, target.root)

	rec.Render(page("one"))
	created := target.created

	if err := rec.Render(page("two")); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if renderText(target.root) != "two" {
		t.Errorf("text = %q", renderText(target.root))
	}
	if target.created != created {
		t.Errorf("a text update must not create nodes, created %d more", target.created-created)
	}
}

func TestReconcilerDirectMode(t *testing.T) {
	target := newFakeTarget()
	rec := NewReconciler(target, target.root, WithMode(ModeDirect))

	rec.Render(page("one"))
	if err := rec.Render(page("two")); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if renderText(target.root) != "two" {
		t.Errorf("text = %q", renderText(target.root))
	}
	if rec.Mode() != ModeDirect {
		t.Errorf("mode = %v", rec.Mode())
	}
}

func TestReconcilerUnmount(t *testing.T) {
	target := newFakeTarget()
	rec := NewReconciler(target, target.root)

	rec.Render(page("x"))
	if err := rec.Render(nil); err != nil {
		t.Fatalf("Render(nil): %v", err)
	}
	if len(target.root.children) != 0 {
		t.Errorf("expected empty target after unmount, got %d children", len(target.root.children))
	}
}

func TestReconcilerRecoversFromBatchedFailure(t *testing.T) {
	target := newFakeTarget()
	obs := &fallbackObserver{}
	rec := NewReconciler(target, target.root,
		WithFailureThreshold(3),
		WithRenderObserver(obs),
	)

	rec.Render(page("one"))

	// The failing pass is recovered by a remount; the frame still lands.
	target.failOps = 1
	if err := rec.Render(page("two")); err != nil {
		t.Fatalf("recovery should succeed: %v", err)
	}
	if renderText(target.root) != "two" {
		t.Errorf("text = %q", renderText(target.root))
	}
	if obs.failed != 1 {
		t.Errorf("expected 1 ApplyFailed, got %d", obs.failed)
	}
	if rec.FellBack() {
		t.Error("one failure under threshold 3 must not trigger fallback")
	}

	// A clean pass resets the consecutive-failure counter.
	if err := rec.Render(page("three")); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if rec.Mode() != ModeBatched {
		t.Errorf("mode = %v, want batched", rec.Mode())
	}
}

func TestReconcilerFallbackIsOneWay(t *testing.T) {
	target := newFakeTarget()
	obs := &fallbackObserver{}
	rec := NewReconciler(target, target.root,
		WithFailureThreshold(1),
		WithRenderObserver(obs),
	)

	rec.Render(page("one"))

	target.failOps = 1
	if err := rec.Render(page("two")); err != nil {
		t.Fatalf("recovery should succeed: %v", err)
	}

	if !rec.FellBack() {
		t.Fatal("threshold reached, fallback should have fired")
	}
	if rec.Mode() != ModeDirect {
		t.Errorf("mode = %v, want direct", rec.Mode())
	}
	if obs.fallbacks != 1 {
		t.Errorf("expected 1 FallbackTriggered, got %d", obs.fallbacks)
	}

	// Batched mode cannot be re-enabled for this session.
	rec.SetMode(ModeBatched)
	if rec.Mode() != ModeDirect {
		t.Error("SetMode(ModeBatched) after fallback must be ignored")
	}

	// Rendering continues on the direct strategy.
	if err := rec.Render(page("three")); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if renderText(target.root) != "three" {
		t.Errorf("text = %q", renderText(target.root))
	}
	last := obs.applied[len(obs.applied)-1]
	if last != "direct" {
		t.Errorf("last pass mode = %q, want direct", last)
	}
}

func keyedList(keys []string) *rtree.Node {
	children := make([]*rtree.Node, len(keys))
	for i, k := range keys {
		children[i] = rtree.El("li", nil, rtree.Text(k)).WithKey(k)
	}
	return rtree.El("ul", nil, children...)
}

func TestReconcilerKeyedReorderAppliesOrder(t *testing.T) {
	base := []string{"a", "b", "c", "d", "e", "f", "g"}

	// Includes permutations where a child keeps its index on paper but is
	// displaced by earlier moves, and a mixed remove/insert shuffle.
	perms := [][]string{
		{"a", "f", "c", "e", "b", "g", "d"},
		{"g", "f", "e", "d", "c", "b", "a"},
		{"b", "a", "d", "c", "f", "e", "g"},
		{"g", "a", "b", "c", "d", "e", "f"},
		{"d", "a", "h", "g", "b"},
		{"a", "b", "c", "d", "e", "f", "g"},
	}

	for _, mode := range []Mode{ModeBatched, ModeDirect} {
		target := newFakeTarget()
		rec := NewReconciler(target, target.root, WithMode(mode))

		if err := rec.Render(keyedList(base)); err != nil {
			t.Fatalf("%s: initial Render: %v", mode, err)
		}
		for _, perm := range perms {
			if err := rec.Render(keyedList(perm)); err != nil {
				t.Fatalf("%s: Render(%v): %v", mode, perm, err)
			}
			want := strings.Join(perm, "")
			if got := renderText(target.root); got != want {
				t.Errorf("%s: applied order = %q, want %q", mode, got, want)
			}
		}
	}
}

func TestReconcilerPoolReuse(t *testing.T) {
	target := newFakeTarget()
	rec := NewReconciler(target, target.root)

	list := func(n int) *rtree.Node {
		children := make([]*rtree.Node, n)
		for i := range children {
			children[i] = rtree.El("li", rtree.Attrs{"slot": i}, rtree.Text("item"))
		}
		return rtree.El("ul", nil, children...)
	}

	rec.Render(list(3))
	rec.Render(list(1))
	rec.Render(list(3))

	hits, _ := rec.PoolStats()
	if hits == 0 {
		t.Error("regrowing the list should reuse recycled handles")
	}
	if got := len(target.root.children[0].children); got != 3 {
		t.Errorf("expected 3 list items, got %d", got)
	}
}

func TestModeString(t *testing.T) {
	if ModeDirect.String() != "direct" || ModeBatched.String() != "batched" {
		t.Error("unexpected Mode strings")
	}
}
