// Package command turns raw chat text into a tagged command. Parsing
// is the only place that knows the literal keywords.
package command

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

type Kind int

const (
	Chat Kind = iota
	On
	Off
	Clear
	CostReport
	CostReset
	Menu
	Debug
	NewChat
	HistoryList
	HistorySelect
	Summarize
)

var kindNames = map[Kind]string{
	Chat:          "chat",
	On:            "on",
	Off:           "off",
	Clear:         "clear",
	CostReport:    "cost_report",
	CostReset:     "cost_reset",
	Menu:          "menu",
	Debug:         "debug",
	NewChat:       "new_chat",
	HistoryList:   "history_list",
	HistorySelect: "history_select",
	Summarize:     "summarize",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Keywords users can type; the first of each list is shown in menus.
const (
	KeywordOn           = "on"
	KeywordOff          = "off"
	KeywordMenu         = "メインメニュー"
	KeywordNewChat      = "新しいチャット"
	KeywordHistoryList  = "過去の履歴"
	KeywordSelectPrefix = "履歴選択:"
	KeywordSummarize    = "サマリー作成"
)

var (
	ClearAliases     = []string{"クリア", "履歴クリア", "リセット", "clear"}
	CostAliases      = []string{"コスト", "料金", "cost"}
	CostResetAliases = []string{"コストリセット", "料金リセット", "cost reset"}
	MenuAliases      = []string{KeywordMenu, "menu"}
	DebugAliases     = []string{"デバッグ", "debug"}
)

// Command is the parsed form of one message. Arg is set for
// HistorySelect only; Text always holds the original message.
type Command struct {
	Kind Kind
	Arg  string
	Text string
}

// Normalize applies NFKC, so full-width "ＯＮ" and half-width "ｸﾘｱ"
// match their canonical keywords, and trims surrounding space.
func Normalize(text string) string {
	return strings.TrimSpace(norm.NFKC.String(text))
}

// Parse checks keywords in router priority order; first match wins.
func Parse(text string) Command {
	n := Normalize(text)
	cmd := Command{Kind: Chat, Text: text}

	switch {
	case strings.EqualFold(n, KeywordOn):
		cmd.Kind = On
	case strings.EqualFold(n, KeywordOff):
		cmd.Kind = Off
	case oneOf(n, ClearAliases):
		cmd.Kind = Clear
	case oneOf(n, CostAliases):
		cmd.Kind = CostReport
	case oneOf(n, CostResetAliases):
		cmd.Kind = CostReset
	case oneOf(n, MenuAliases):
		cmd.Kind = Menu
	case oneOf(n, DebugAliases):
		cmd.Kind = Debug
	case n == KeywordNewChat:
		cmd.Kind = NewChat
	case n == KeywordHistoryList:
		cmd.Kind = HistoryList
	case strings.HasPrefix(n, KeywordSelectPrefix):
		cmd.Kind = HistorySelect
		cmd.Arg = strings.TrimSpace(strings.TrimPrefix(n, KeywordSelectPrefix))
	case n == KeywordSummarize:
		cmd.Kind = Summarize
	}
	return cmd
}

func oneOf(s string, aliases []string) bool {
	for _, a := range aliases {
		if s == a {
			return true
		}
	}
	return false
}
