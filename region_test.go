package htmlinclude

import (
	"bytes"
	"context"
	"testing"
)

func TestRegion_Text(t *testing.T) {
	r := newRegion()
	r.SetText(`Loading “a<b>”…`)

	if r.IsMarkup() {
		t.Error("IsMarkup() = true after SetText")
	}
	if got := r.Text(); got != `Loading “a<b>”…` {
		t.Errorf("Text() = %q", got)
	}
	if got := r.HTML(); got != `Loading “a&lt;b&gt;”…` {
		t.Errorf("HTML() = %q, want escaped text", got)
	}
	if r.Nodes() != nil {
		t.Error("Nodes() should be nil for text content")
	}
}

func TestRegion_HTML(t *testing.T) {
	tests := []struct {
		name     string
		markup   string
		wantHTML string
		wantText string
	}{
		{"paragraph", "<p>hi</p>", "<p>hi</p>", "hi"},
		{"text and elements", "a <b>bold</b> c", "a <b>bold</b> c", "a bold c"},
		{"unclosed tags are closed", "<ul><li>one<li>two</ul>", "<ul><li>one</li><li>two</li></ul>", "onetwo"},
		{"script kept verbatim", "<script>x()</script>", "<script>x()</script>", "x()"},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRegion()
			r.SetHTML(tt.markup)

			if !r.IsMarkup() {
				t.Error("IsMarkup() = false after SetHTML")
			}
			if got := r.HTML(); got != tt.wantHTML {
				t.Errorf("HTML() = %q, want %q", got, tt.wantHTML)
			}
			if got := r.Text(); got != tt.wantText {
				t.Errorf("Text() = %q, want %q", got, tt.wantText)
			}
		})
	}
}

func TestRegion_ReplacesWholesale(t *testing.T) {
	r := newRegion()
	r.SetHTML("<p>one</p>")
	r.SetText("Loading…")

	if r.IsMarkup() || r.HTML() != "Loading…" {
		t.Errorf("after SetText: markup=%v HTML=%q", r.IsMarkup(), r.HTML())
	}

	r.SetHTML("<p>two</p>")
	if r.HTML() != "<p>two</p>" {
		t.Errorf("after SetHTML: HTML=%q", r.HTML())
	}
}

func TestRegion_Render(t *testing.T) {
	r := newRegion()
	r.SetHTML("<p>hi</p>")

	var buf bytes.Buffer
	if err := r.Render().Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	want := `<template shadowrootmode="closed"><p>hi</p></template>`
	if buf.String() != want {
		t.Errorf("Render() = %q, want %q", buf.String(), want)
	}
}
