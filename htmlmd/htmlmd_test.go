package htmlmd

import (
	"strings"
	"testing"
)

func TestConvert_BasicStructure(t *testing.T) {
	c := New()
	md := c.Convert(`<div><p>お問い合わせありがとうございます。</p><ul><li>明日発送</li></ul></div>`)
	if !strings.Contains(md, "お問い合わせありがとうございます。") {
		t.Errorf("paragraph lost: %q", md)
	}
	if !strings.Contains(md, "- 明日発送") {
		t.Errorf("list item not converted: %q", md)
	}
}

func TestConvert_StripsScripts(t *testing.T) {
	c := New()
	md := c.Convert(`<div onclick="steal()"><script>alert(1)</script><p>本文</p></div>`)
	if strings.Contains(md, "alert") || strings.Contains(md, "steal") {
		t.Errorf("script content leaked: %q", md)
	}
	if !strings.Contains(md, "本文") {
		t.Errorf("visible text lost: %q", md)
	}
}

func TestConvert_Empty(t *testing.T) {
	c := New()
	if got := c.Convert("  \n "); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("短いテキスト", 100); got != "短いテキスト" {
		t.Errorf("no-op truncate: %q", got)
	}
	got := Truncate("あいうえおかきくけこ", 5)
	if got != "あいうえお…" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("text", 0); got != "text" {
		t.Errorf("max=0 disables truncation: %q", got)
	}
}
