package content

import "testing"

func TestSourceKindValid(t *testing.T) {
	valid := []SourceKind{KindNote, KindGeneric, KindVideo, KindSocial}
	for _, k := range valid {
		if !k.Valid() {
			t.Errorf("%q.Valid() = false, want true", k)
		}
	}
	for _, k := range []SourceKind{"", "podcast", "url", "NOTE"} {
		if k.Valid() {
			t.Errorf("%q.Valid() = true, want false", k)
		}
	}
}

func TestRecordSnippet(t *testing.T) {
	r := Record{Body: "hello world"}
	if got := r.Snippet(100); got != "hello world" {
		t.Errorf("Snippet(100) = %q, want full body", got)
	}
	if got := r.Snippet(5); got != "hello" {
		t.Errorf("Snippet(5) = %q, want %q", got, "hello")
	}
	if got := (Record{}).Snippet(5); got != "" {
		t.Errorf("Snippet on empty body = %q, want empty", got)
	}
}

func TestRecordSnippetPreservesUTF8(t *testing.T) {
	r := Record{Body: "héllo"} // é is two bytes; a cut at 2 lands inside it
	if got := r.Snippet(2); got != "h" {
		t.Errorf("Snippet(2) = %q, want %q", got, "h")
	}
	if got := r.Snippet(3); got != "hé" {
		t.Errorf("Snippet(3) = %q, want %q", got, "hé")
	}
}
