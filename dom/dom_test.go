package dom

import (
	"testing"

	"golang.org/x/net/html"
)

func parse(t *testing.T, markup string) *html.Node {
	t.Helper()
	doc, err := ParseString(markup)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	return doc
}

func TestAttr(t *testing.T) {
	doc := parse(t, `<div data-tid="marker" id="x"></div>`)

	n := FindByAttr(doc, "data-tid", "marker")
	if n == nil {
		t.Fatal("expected to find node")
	}
	if got := Attr(n, "id"); got != "x" {
		t.Errorf("id = %q, want %q", got, "x")
	}
	if got := Attr(n, "missing"); got != "" {
		t.Errorf("missing attr = %q, want empty", got)
	}
}

func TestHasClass(t *testing.T) {
	doc := parse(t, `<div class="a b c"></div>`)
	n := FindByClass(doc, "b")
	if n == nil {
		t.Fatal("expected to find node by class")
	}
	if !HasClass(n, "a") || !HasClass(n, "c") {
		t.Error("expected all classes present")
	}
	if HasClass(n, "ab") {
		t.Error("partial class name should not match")
	}
}

func TestFindByAttr_FirstInDocumentOrder(t *testing.T) {
	doc := parse(t, `<div data-k="v" id="first"></div><div data-k="v" id="second"></div>`)

	n := FindByAttr(doc, "data-k", "v")
	if n == nil {
		t.Fatal("expected match")
	}
	if got := Attr(n, "id"); got != "first" {
		t.Errorf("id = %q, want %q", got, "first")
	}
}

func TestFindAllByAttr(t *testing.T) {
	doc := parse(t, `<ul><li data-k="v">1</li><li data-k="other">2</li><li data-k="v">3</li></ul>`)

	all := FindAllByAttr(doc, "data-k", "v")
	if len(all) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(all))
	}
	if Text(all[0]) != "1" || Text(all[1]) != "3" {
		t.Errorf("matches out of order: %q, %q", Text(all[0]), Text(all[1]))
	}
}

func TestFindAllByClass_Nested(t *testing.T) {
	doc := parse(t, `<div class="item"><div class="item">inner</div></div>`)

	all := FindAllByClass(doc, "item")
	if len(all) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(all))
	}
}

func TestFindByID(t *testing.T) {
	doc := parse(t, `<div><span id="target">hi</span></div>`)

	if FindByID(doc, "target") == nil {
		t.Error("expected to find element by id")
	}
	if FindByID(doc, "nope") != nil {
		t.Error("expected nil for missing id")
	}
}

func TestText(t *testing.T) {
	doc := parse(t, `<div id="t">  hello <b>bold</b> world  </div>`)

	n := FindByID(doc, "t")
	if got := Text(n); got != "hello bold world" {
		t.Errorf("Text = %q, want %q", got, "hello bold world")
	}
}

func TestText_Empty(t *testing.T) {
	doc := parse(t, `<div id="t">   </div>`)

	if got := Text(FindByID(doc, "t")); got != "" {
		t.Errorf("Text = %q, want empty", got)
	}
}
