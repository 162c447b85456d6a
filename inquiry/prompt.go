package inquiry

import (
	"fmt"
	"strings"
)

// DefaultPrompt is the base system prompt handed to the copilot LLM when the
// operator has not configured a custom one.
const DefaultPrompt = `あなたは日本の EC サイトのカスタマーサポート担当者です。
丁寧で専門的な日本語で、お客様のお問い合わせに回答してください。
回答は簡潔で分かりやすく、必要に応じて箇条書きを使ってください。`

// BuildSystemPrompt renders the inquiry context block appended to the base
// prompt. A nil inquiry returns the base prompt unchanged.
func BuildSystemPrompt(d *Data, customPrompt string) string {
	base := customPrompt
	if base == "" {
		base = DefaultPrompt
	}
	if d == nil {
		return base
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\n【現在のお問い合わせ情報】\n")
	fmt.Fprintf(&b, "- お問い合わせ番号: %s\n", d.InquiryID)
	fmt.Fprintf(&b, "- お客様名: %s\n", d.CustomerName)
	if d.Category != "" {
		fmt.Fprintf(&b, "- カテゴリー: %s\n", d.Category)
	}
	if d.OrderNumber != "" {
		fmt.Fprintf(&b, "- 注文番号: %s\n", d.OrderNumber)
	}
	if d.ReceivedTime != "" {
		fmt.Fprintf(&b, "- 受付日時: %s\n", d.ReceivedTime)
	}
	if d.Fulfillment != "" && d.Fulfillment != FulfillmentUnknown {
		fmt.Fprintf(&b, "- 配送状況: %s\n", d.Fulfillment)
	}

	b.WriteString("\n【お問い合わせ内容】\n")
	switch {
	case len(d.Thread) > 0:
		for _, m := range d.Thread {
			label := "お客様"
			if m.Role != RoleCustomer {
				label = "店舗"
			}
			if m.Time != "" {
				fmt.Fprintf(&b, "[%s %s] %s\n", m.Time, label, m.Text)
			} else {
				fmt.Fprintf(&b, "[%s] %s\n", label, m.Text)
			}
		}
	case d.ContentMarkdown != "":
		b.WriteString(d.ContentMarkdown)
		b.WriteByte('\n')
	default:
		b.WriteString(d.Content)
		b.WriteByte('\n')
	}

	b.WriteString("\n上記の情報に基づいて、適切な返信を作成してください。")
	return b.String()
}
