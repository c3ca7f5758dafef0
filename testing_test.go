package htmlinclude

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestTestInclude_Success(t *testing.T) {
	f := NewFakeFetcher().Respond("ok.html", 200, "<p>hi</p>")

	result, err := TestInclude(f, Attrs{{AttrSrc, "ok.html"}})
	if err != nil {
		t.Fatalf("TestInclude() error = %v", err)
	}

	if result == nil {
		t.Fatal("TestInclude() returned nil result")
	}
	if !result.Loaded || result.Failed {
		t.Errorf("loaded=%v failed=%v", result.Loaded, result.Failed)
	}
	if !result.HTMLContains("<p>hi</p>") {
		t.Errorf("HTML = %q", result.HTML)
	}
	if result.Text != "hi" {
		t.Errorf("Text = %q", result.Text)
	}
	if !result.IsOK() {
		t.Error("IsOK() = false")
	}
}

func TestTestInclude_Errors(t *testing.T) {
	f := NewFakeFetcher()

	result, err := TestInclude(f, Attrs{{AttrSrc, "missing.html"}})
	if err != nil {
		t.Fatalf("TestInclude() error = %v", err)
	}
	if !result.HasError(ErrFetchFailed) {
		t.Errorf("HasError(ErrFetchFailed) = false, errors = %v", result.Errors)
	}
	if result.HasError(ErrMissingSrc) {
		t.Error("HasError(ErrMissingSrc) = true")
	}
}

func TestTestIncludeWithContext_Timeout(t *testing.T) {
	f := NewFakeFetcher()
	release := f.Hold("slow.html")
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := TestIncludeWithContext(ctx, f, Attrs{{AttrSrc, "slow.html"}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
}

func TestFakeFetcher(t *testing.T) {
	boom := errors.New("boom")
	f := NewFakeFetcher().
		Respond("ok.html", 200, "ok").
		Fail("down.html", boom).
		FailBody("cut.html", 200, boom)
	ctx := context.Background()

	resp, err := f.Fetch(ctx, "ok.html")
	if err != nil || !resp.OK() || resp.Status() != 200 || resp.StatusText() != "OK" {
		t.Fatalf("ok.html: resp=%v err=%v", resp, err)
	}
	if body, _ := resp.Text(ctx); body != "ok" {
		t.Errorf("ok.html body = %q", body)
	}

	if _, err := f.Fetch(ctx, "down.html"); !errors.Is(err, boom) {
		t.Errorf("down.html error = %v", err)
	}

	resp, _ = f.Fetch(ctx, "cut.html")
	if _, err := resp.Text(ctx); !errors.Is(err, boom) {
		t.Errorf("cut.html body error = %v", err)
	}

	resp, _ = f.Fetch(ctx, "other.html")
	if resp.OK() || resp.Status() != http.StatusNotFound || resp.StatusText() != "Not Found" {
		t.Errorf("unknown URI: status %d %q", resp.Status(), resp.StatusText())
	}

	want := []string{"ok.html", "down.html", "cut.html", "other.html"}
	if diff := cmp.Diff(want, f.Calls()); diff != "" {
		t.Errorf("Calls() mismatch (-want +got):\n%s", diff)
	}
}

func TestFakeFetcher_Hold(t *testing.T) {
	f := NewFakeFetcher().Respond("held.html", 200, "late")
	release := f.Hold("held.html")

	done := make(chan string, 1)
	go func() {
		resp, err := f.Fetch(context.Background(), "held.html")
		if err != nil {
			done <- err.Error()
			return
		}
		body, _ := resp.Text(context.Background())
		done <- body
	}()

	select {
	case got := <-done:
		t.Fatalf("held fetch completed early with %q", got)
	case <-time.After(20 * time.Millisecond):
	}

	release()
	release()

	if got := <-done; got != "late" {
		t.Errorf("body = %q", got)
	}
}

func TestParseTriggerHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   []string
	}{
		{"bare", "html-include:failed", []string{"html-include:failed"}},
		{"json", `{"html-include:failed":{"src":"a"}}`, []string{"html-include:failed"}},
		{"broken json", `{"oops`, []string{`{"oops`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, parseTriggerHeader(tt.header)); diff != "" {
				t.Errorf("parseTriggerHeader mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
