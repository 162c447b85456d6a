package rmesse

import (
	"regexp"

	"github.com/hazyhaar/inqwatch/chatlog"
	"github.com/hazyhaar/inqwatch/inquiry"
)

// All landmark phrases and patterns R-Messe extraction depends on live in
// this one table. The page has no stable API; these literals are the de
// facto protocol, and layout drift is fixed by editing data, not logic.
var markers = struct {
	// URL surface.
	host        string
	inquiryPath *regexp.Regexp

	// Chat section landmarks.
	chat        chatlog.Markers
	threadRules chatlog.ParseRules

	// Honorific marking a customer name. Doubles as the shadow-root
	// presence marker.
	honorific string

	// Customer panel.
	panelTitle    string
	panelContext  []string // a panel ancestor must contain one of these
	accountLabels []string // the line before one of these is the name

	// Sidebar card patterns.
	cardName *regexp.Regexp
	category *regexp.Regexp
	received *regexp.Regexp

	// Order number: strict anchor-text shape, then labeled full-text form.
	orderAnchor  *regexp.Regexp
	orderLabeled *regexp.Regexp

	// Fulfillment phrase groups, most specific first.
	statusGroups []statusGroup

	// Reply input, in priority order.
	replySelectors []string

	// Legacy content container classes.
	contentClasses []string
}{
	host:        "rmesse.rms.rakuten.co.jp",
	inquiryPath: regexp.MustCompile(`/inquiry/(?:detail/)?(\d[0-9A-Za-z-]{3,})`),

	chat: chatlog.Markers{
		Start:         "お問い合わせ内容",
		End:           "返信を入力",
		EndAlt:        "返信テンプレート",
		FallbackStart: regexp.MustCompile(`\d{4}/\d{2}/\d{2} \d{2}:\d{2}\n[^\n]*様`),
	},
	threadRules: chatlog.ParseRules{
		Timestamp:      regexp.MustCompile(`^(\d{4}/\d{2}/\d{2} \d{2}:\d{2})`),
		CustomerSuffix: "様",
	},

	honorific: "様",

	panelTitle:    "お客様情報",
	panelContext:  []string{"〒", "ご注文詳細"},
	accountLabels: []string{"楽天会員", "非会員", "ゲスト購入"},

	// The separator before the honorific is mandatory: without it, 様
	// embedded in running text (お客様情報, お客様へ) matches as a name.
	cardName: regexp.MustCompile(`(?m)^([^\s　]{1,20})[\s　]+様`),
	category: regexp.MustCompile(`カテゴリー?\s*[:：]?\s*([^\n]+)`),
	received: regexp.MustCompile(`受付日時\s*[:：]?\s*(\d{4}/\d{2}/\d{2}[^\n]*)`),

	orderAnchor:  regexp.MustCompile(`^\d{6}-\d{8}-\d{10}$`),
	orderLabeled: regexp.MustCompile(`注文番号\s*[:：]?\s*(\d{6}-\d{8}-\d{10})`),

	statusGroups: []statusGroup{
		{inquiry.FulfillmentDelivered, []string{"配達完了", "お届け完了", "お届け済み"}},
		{inquiry.FulfillmentShipping, []string{"配送中", "発送済み", "出荷済み"}},
		{inquiry.FulfillmentNotShipped, []string{"未発送", "発送準備中", "出荷前"}},
	},

	replySelectors: []string{
		`textarea.reply-input`,
		`textarea[name="reply"]`,
		`textarea[name="replyMessage"]`,
		`textarea`,
	},

	contentClasses: []string{"inquiry-content", "message-body"},
}

type statusGroup struct {
	status  inquiry.FulfillmentStatus
	phrases []string
}
