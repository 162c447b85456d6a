// Package draft parses the fixed five-section copilot output format and
// decides whether a generated reply is safe to auto-fill into the page.
//
// The section markers are the literal strings the copilot prompt instructs
// the model to emit. They are data, not logic: a prompt revision only needs
// to touch this table.
package draft

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Section markers, verbatim from the copilot prompt contract.
const (
	MarkerDraft       = "✅ 推荐回复（草稿）"
	MarkerConfirm     = "🔎 需要确认"
	MarkerAssumptions = "🧩 已使用的前提/依据"
	MarkerRisk        = "⚠️ 风险提示"
	MarkerFinal       = "📌 最终可发送版本"
)

// markerOrder is the canonical section order; each section ends at the
// nearest following marker that actually occurs in the input.
var markerOrder = []string{
	MarkerDraft,
	MarkerConfirm,
	MarkerAssumptions,
	MarkerRisk,
	MarkerFinal,
}

// Draft holds the five sections parsed out of one copilot response. Missing
// sections are empty strings, never an error.
type Draft struct {
	DraftReply   string `json:"draft_reply"`
	ConfirmItems string `json:"confirm_items"`
	Assumptions  string `json:"assumptions"`
	RiskFlags    string `json:"risk_flags"`
	FinalVersion string `json:"final_version"`
}

// BlockReason explains a denied fill.
type BlockReason string

const (
	// BlockConfirmPending: unresolved confirmation items remain.
	BlockConfirmPending BlockReason = "confirm_pending"
	// BlockHasPlaceholder: the draft still contains a {placeholder} token.
	BlockHasPlaceholder BlockReason = "has_placeholder"
	// BlockNoContent: neither the final version nor the draft qualifies.
	BlockNoContent BlockReason = "no_content"
)

// GateResult is the fill decision derived from one draft.
type GateResult struct {
	CanFill     bool        `json:"can_fill"`
	FillContent string      `json:"fill_content"`
	BlockReason BlockReason `json:"block_reason,omitempty"`
}

// GateConfig tunes the gate. The length thresholds were inherited from the
// production prompt contract; they are configuration, not constants.
type GateConfig struct {
	// MinFinalLen is the minimum length (in runes, after placeholder
	// stripping) for the final version to qualify. Default: 10.
	MinFinalLen int
	// MinDraftLen is the minimum draft-reply length to qualify. Default: 10.
	MinDraftLen int
}

func (c *GateConfig) defaults() {
	if c.MinFinalLen <= 0 {
		c.MinFinalLen = 10
	}
	if c.MinDraftLen <= 0 {
		c.MinDraftLen = 10
	}
}

var (
	// pendingPlaceholders are stripped from the final version before the
	// length check: the model emits them while confirmations are open.
	pendingPlaceholders = []*regexp.Regexp{
		regexp.MustCompile(`（確認完了後に生成）`),
		regexp.MustCompile(`\(確認完了後に生成\)`),
	}
	// confirmNone matches a confirm-items section that says "nothing to
	// confirm" (bare or single list item).
	confirmNone = regexp.MustCompile(`(?m)^-?\s*なし\s*$`)
	// templateToken matches an unresolved {placeholder} in the draft.
	templateToken = regexp.MustCompile(`\{[^}]+\}`)
)

// Parse extracts the five sections from a copilot response. For each marker
// present, the section runs from just after the marker to the start of the
// nearest following marker that occurs; absent markers yield empty strings.
func Parse(content string) Draft {
	return Draft{
		DraftReply:   section(content, 0),
		ConfirmItems: section(content, 1),
		Assumptions:  section(content, 2),
		RiskFlags:    section(content, 3),
		FinalVersion: section(content, 4),
	}
}

func section(content string, i int) string {
	start := strings.Index(content, markerOrder[i])
	if start < 0 {
		return ""
	}
	rest := content[start+len(markerOrder[i]):]
	end := len(rest)
	for _, m := range markerOrder[i+1:] {
		if idx := strings.Index(rest, m); idx >= 0 && idx < end {
			end = idx
		}
	}
	return strings.TrimSpace(rest[:end])
}

// CheckFillGate evaluates the fill policy over raw copilot output:
//  1. a substantial final version always fills;
//  2. otherwise the draft fills when confirmations are "なし" and no
//     template token remains;
//  3. otherwise the fill is denied with the first applicable reason.
func CheckFillGate(content string, cfg GateConfig) GateResult {
	cfg.defaults()
	d := Parse(content)

	finalClean := d.FinalVersion
	for _, re := range pendingPlaceholders {
		finalClean = re.ReplaceAllString(finalClean, "")
	}
	finalClean = strings.TrimSpace(finalClean)
	if utf8.RuneCountInString(finalClean) > cfg.MinFinalLen {
		return GateResult{CanFill: true, FillContent: finalClean}
	}

	// An absent confirm section counts as "nothing to confirm".
	confirmIsNone := d.ConfirmItems == "" || d.ConfirmItems == "なし" ||
		confirmNone.MatchString(d.ConfirmItems)
	hasPlaceholder := templateToken.MatchString(d.DraftReply)

	if confirmIsNone && !hasPlaceholder && utf8.RuneCountInString(d.DraftReply) > cfg.MinDraftLen {
		return GateResult{CanFill: true, FillContent: d.DraftReply}
	}

	switch {
	case !confirmIsNone:
		return GateResult{BlockReason: BlockConfirmPending}
	case hasPlaceholder:
		return GateResult{BlockReason: BlockHasPlaceholder}
	default:
		return GateResult{BlockReason: BlockNoContent}
	}
}

// IsCopilotFormat reports whether the text carries the five-section format
// at all. Non-copilot text bypasses the gate and fills unconditionally.
func IsCopilotFormat(content string) bool {
	return strings.Contains(content, MarkerDraft) || strings.Contains(content, MarkerConfirm)
}
