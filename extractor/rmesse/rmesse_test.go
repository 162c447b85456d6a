package rmesse

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hazyhaar/inqwatch/inquiry"
	"github.com/hazyhaar/inqwatch/textsource"
)

const inquiryURL = "https://rmesse.rms.rakuten.co.jp/inquiry/detail/100234"

// pageHTML is a reduced R-Messe inquiry page: customer side panel, chat
// region between the landmark phrases, order anchor, status phrase.
const pageHTML = `<html><body>
<header><h1>R-Messe</h1></header>
<aside>
  <h2>お客様情報</h2>
  <div>
    <div>田中太郎 様</div>
    <div>楽天会員</div>
    <div>〒100-0001 東京都千代田区</div>
    <div>カテゴリー：配送について</div>
    <div>受付日時：2024/06/01 09:55</div>
  </div>
</aside>
<main>
  <h2>お問い合わせ内容</h2>
  <div class="chat">
    <div>2024/06/01 10:00</div>
    <div>田中太郎 様</div>
    <div>こんにちは</div>
    <div>2024/06/01 10:05</div>
    <div>スタッフ</div>
    <div>ご連絡ありがとうございます</div>
  </div>
  <div>返信を入力</div>
  <a href="/order/123456-20240601-0012345678">123456-20240601-0012345678</a>
  <div>配送中</div>
</main>
</body></html>`

func mustExtract(t *testing.T, htmlStr, url string) *inquiry.Data {
	t.Helper()
	doc, err := textsource.New(htmlStr, nil, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return New().Extract(context.Background(), doc, url)
}

func TestMatch(t *testing.T) {
	e := New()
	if !e.Match(inquiryURL) {
		t.Error("R-Messe URL must match")
	}
	if e.Match("https://sellercentral.amazon.co.jp/inquiry/1") {
		t.Error("foreign host must not match")
	}
}

func TestInquiryID(t *testing.T) {
	e := New()
	cases := []struct {
		url  string
		want string
		ok   bool
	}{
		{inquiryURL, "100234", true},
		{"https://rmesse.rms.rakuten.co.jp/inquiry/5551234", "5551234", true},
		{"https://rmesse.rms.rakuten.co.jp/settings", "", false},
		{"https://rmesse.rms.rakuten.co.jp/inquiry/detail", "", false},
	}
	for _, c := range cases {
		got, ok := e.InquiryID(c.url)
		if got != c.want || ok != c.ok {
			t.Errorf("InquiryID(%q) = %q,%v want %q,%v", c.url, got, ok, c.want, c.ok)
		}
	}
}

func TestExtract_FullPage(t *testing.T) {
	d := mustExtract(t, pageHTML, inquiryURL)
	if d == nil {
		t.Fatal("extraction returned nil")
	}
	if d.InquiryID != "100234" || d.Platform != inquiry.PlatformRakuten {
		t.Errorf("identity: %+v", d)
	}
	if d.CustomerName != "田中太郎" {
		t.Errorf("customerName: %q", d.CustomerName)
	}
	if d.Category != "配送について" {
		t.Errorf("category: %q", d.Category)
	}
	if d.ReceivedTime != "2024/06/01 09:55" {
		t.Errorf("receivedTime: %q", d.ReceivedTime)
	}
	if d.OrderNumber != "123456-20240601-0012345678" {
		t.Errorf("orderNumber: %q", d.OrderNumber)
	}
	if d.Fulfillment != inquiry.FulfillmentShipping {
		t.Errorf("fulfillment: %q", d.Fulfillment)
	}

	if len(d.Thread) != 2 {
		t.Fatalf("thread: %+v", d.Thread)
	}
	if d.Thread[0].Role != inquiry.RoleCustomer || d.Thread[0].Text != "こんにちは" {
		t.Errorf("thread[0]: %+v", d.Thread[0])
	}
	if d.Thread[1].Role != inquiry.RoleStaff || d.Thread[1].Time != "2024/06/01 10:05" {
		t.Errorf("thread[1]: %+v", d.Thread[1])
	}
	if d.Content != "こんにちは" {
		t.Errorf("content derived from thread: %q", d.Content)
	}
	if d.ContentMarkdown == "" {
		t.Error("chat region markdown should be populated")
	}
}

func TestExtract_Idempotent(t *testing.T) {
	a := mustExtract(t, pageHTML, inquiryURL)
	b := mustExtract(t, pageHTML, inquiryURL)
	if inquiry.Fingerprint(a) != inquiry.Fingerprint(b) {
		t.Error("unchanged page must extract to structurally equal records")
	}
}

func TestExtract_NoInquiryIDAborts(t *testing.T) {
	d := mustExtract(t, pageHTML, "https://rmesse.rms.rakuten.co.jp/settings")
	if d != nil {
		t.Errorf("missing inquiry id must abort extraction, got %+v", d)
	}
}

func TestExtract_LegacyContentFallback(t *testing.T) {
	// No chat landmarks at all: the fixed content container is used and the
	// thread stays empty.
	htmlStr := `<html><body>
	  <div class="inquiry-content">商品がまだ届いていません。確認をお願いします。</div>
	</body></html>`
	d := mustExtract(t, htmlStr, inquiryURL)
	if d == nil {
		t.Fatal("extraction returned nil")
	}
	if len(d.Thread) != 0 {
		t.Errorf("no thread expected: %+v", d.Thread)
	}
	if !strings.Contains(d.Content, "商品がまだ届いていません") {
		t.Errorf("legacy content: %q", d.Content)
	}
	if d.CustomerName != inquiry.CustomerNameUnknown {
		t.Errorf("unrecoverable name must fall back to sentinel: %q", d.CustomerName)
	}
	if d.Fulfillment != inquiry.FulfillmentUnknown {
		t.Errorf("fulfillment must default to unknown: %q", d.Fulfillment)
	}
}

func TestExtract_ChatInsideFrame(t *testing.T) {
	mainHTML := `<html><body><div>コンソール外枠</div></body></html>`
	frameHTML := `<html><body>
	  <div>お問い合わせ内容</div>
	  <div>2024/06/01 10:00</div>
	  <div>山田花子 様</div>
	  <div>` + strings.Repeat("注文について質問です。", 3) + `</div>
	  <div>返信を入力</div>
	</body></html>`
	doc, err := textsource.New(mainHTML, []string{frameHTML}, nil)
	if err != nil {
		t.Fatal(err)
	}
	d := New().Extract(context.Background(), doc, inquiryURL)
	if d == nil {
		t.Fatal("extraction returned nil")
	}
	if len(d.Thread) != 1 || d.Thread[0].Role != inquiry.RoleCustomer {
		t.Fatalf("thread from frame: %+v", d.Thread)
	}
}

func TestCustomerNameCardFallback(t *testing.T) {
	// Panel heading exists but no postal/detail context: the card regex on
	// the page text supplies the name.
	htmlStr := `<html><body>
	  <div>佐藤一郎 様</div>
	  <div>お問い合わせ内容</div>
	  <div>2024/06/01 10:00</div>
	  <div>佐藤一郎 様</div>
	  <div>質問があります、よろしくお願いします</div>
	  <div>返信を入力</div>
	</body></html>`
	d := mustExtract(t, htmlStr, inquiryURL)
	if d == nil {
		t.Fatal("extraction returned nil")
	}
	if d.CustomerName != "佐藤一郎" {
		t.Errorf("card fallback name: %q", d.CustomerName)
	}
}

func TestCustomerNameFromCard_HonorificInRunningText(t *testing.T) {
	// 様 embedded in ordinary words must not produce a name; only a
	// whitespace-separated "name 様" line counts.
	for _, text := range []string{
		"お客様情報\n〒100-0001 東京都千代田区",
		"いつもご利用ありがとうございます。お客様へのご案内です。",
		"様",
	} {
		if name, ok := customerNameFromCard(text); ok {
			t.Errorf("card text %q: got name %q, want not found", text, name)
		}
	}
	if name, ok := customerNameFromCard("お客様情報\n田中太郎 様"); !ok || name != "田中太郎" {
		t.Errorf("separated honorific: got %q, %v", name, ok)
	}
}

func TestFulfillmentStatus_MostSpecificFirst(t *testing.T) {
	// A page mentioning both delivery completion and shipping picks the
	// more specific delivered group.
	text := "配送中 のち 配達完了"
	if got := fulfillmentStatus(text); got != inquiry.FulfillmentDelivered {
		t.Errorf("got %q, want delivered", got)
	}
	if got := fulfillmentStatus("該当なし"); got != inquiry.FulfillmentUnknown {
		t.Errorf("got %q, want unknown", got)
	}
}

type fakeFiller struct {
	selectors []string
	content   string
	ok        bool
	err       error
}

func (f *fakeFiller) Fill(_ context.Context, selectors []string, content string) (bool, error) {
	f.selectors = selectors
	f.content = content
	return f.ok, f.err
}

func TestFillReply(t *testing.T) {
	e := New()
	f := &fakeFiller{ok: true}
	if !e.FillReply(context.Background(), f, "返信テキスト") {
		t.Fatal("fill should succeed")
	}
	if f.content != "返信テキスト" {
		t.Errorf("content: %q", f.content)
	}
	if len(f.selectors) == 0 || f.selectors[0] != "textarea.reply-input" {
		t.Errorf("selector priority: %v", f.selectors)
	}

	if e.FillReply(context.Background(), &fakeFiller{err: errors.New("boom")}, "x") {
		t.Error("fill errors must report false, not propagate")
	}
}
