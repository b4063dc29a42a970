package router

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"line-chat-ai/internal/command"
	"line-chat-ai/internal/pricing"
	"line-chat-ai/internal/session"
	"line-chat-ai/internal/transcript"
)

const (
	textChatOn        = "チャットをONにしました 💬\nメッセージを送るとAIが返信します。停止するには「off」と送信してください。"
	textChatOff       = "チャットをOFFにしました 💤\n再開するには「on」と送信してください。"
	textClearedFmt    = "会話履歴をクリアしました 🧹（%d往復分）"
	textCostReset     = "利用料金の集計をリセットしました 🔄"
	textFallback      = "申し訳ございません。現在、AIサービスに接続できません。しばらく後にお試しください。"
	textNotConfigured = "AIサービスのAPIキーが設定されていません。管理者にお問い合わせください。"
	textNoTranscripts = "この機能は現在利用できません。"

	textNewChatFailed  = "チャットファイルの作成に失敗しました。もう一度お試しください。"
	textNewChatFmt     = "新しいチャットを開始しました 📝\n作成時刻: %s\n\n何かご質問はありますか？"
	textChatIsOffHint  = "\n\n※ チャットは現在OFFです。「on」と送信すると会話できます。"
	textHistoryPick    = "過去のチャット履歴を選択してください 📋"
	textHistoryNone    = "まだチャット履歴がありません。\n「新しいチャット」を開始してください 😊"
	textHistoryMissing = "チャット履歴が見つかりませんでした。"
	textHistoryFmt     = "📋 チャット履歴 (%s):\n\n%s\n\n続きからチャットできます。"
	textHistoryEmpty   = "📋 チャット履歴 (%s) は空です。\n\n新しくチャットを開始できます。"
	textHistoryOmitted = "...(省略)...\n"
	textNoActiveChat   = "アクティブなチャットがありません。\n「新しいチャット」を開始してください。"
	textSummaryDone    = "📝 チャット履歴のサマリーを作成しました。\n\n今後のメッセージではこのサマリーが文脈として活用されます。"
	textSummaryFailed  = "サマリーの作成に失敗しました。チャット内容が空か、APIエラーが発生しました。"

	textWelcome = `LineChatAIへようこそ！🤖

このBotでは、AIアシスタントと会話できます。

💬 on / off: 会話の開始・停止
📝 新しいチャット: 新しい会話を開始
📋 過去の履歴: 過去の会話を確認・継続

まずは「on」と送信するか、下のメニューからお選びください。`

	defaultUserName = "ユーザー"
	labelBackToMenu = "メインメニューに戻る"

	// historyPreviewLimit and historyPreviewTail are in runes.
	historyPreviewLimit = 1000
	historyPreviewTail  = 800
	historyMenuLimit    = 10
)

var printer = message.NewPrinter(language.Japanese)

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

func (r *Router) mainMenu() []QuickReply {
	items := []QuickReply{
		{Label: "ON", Text: command.KeywordOn},
		{Label: "OFF", Text: command.KeywordOff},
		{Label: "コスト", Text: command.CostAliases[0]},
		{Label: "クリア", Text: command.ClearAliases[0]},
	}
	if r.transcripts != nil {
		items = append(items,
			QuickReply{Label: command.KeywordNewChat, Text: command.KeywordNewChat},
			QuickReply{Label: command.KeywordHistoryList, Text: command.KeywordHistoryList},
		)
	}
	return items
}

func historyMenu(ids []string) []QuickReply {
	if len(ids) > historyMenuLimit {
		ids = ids[:historyMenuLimit]
	}
	items := make([]QuickReply, 0, len(ids)+1)
	for _, id := range ids {
		items = append(items, QuickReply{Label: transcript.Label(id), Text: command.KeywordSelectPrefix + id})
	}
	return append(items, QuickReply{Label: labelBackToMenu, Text: command.KeywordMenu})
}

func (r *Router) statusText(user session.UserID) string {
	var b strings.Builder
	b.WriteString("🎯 メインメニュー\n\n")
	fmt.Fprintf(&b, "チャット: %s\n", onOff(r.store.Enabled(user)))
	fmt.Fprintf(&b, "会話履歴: %d往復\n", len(r.store.History(user))/2)
	if r.transcripts != nil {
		active := "なし"
		if id, ok := r.store.ActiveConversation(user); ok {
			active = transcript.DisplayTime(id)
		}
		fmt.Fprintf(&b, "アクティブなチャット: %s\n", active)
	}
	b.WriteString("\nコマンド一覧:\n")
	b.WriteString("・on / off … 会話の開始・停止\n")
	fmt.Fprintf(&b, "・%s … 会話履歴を消去\n", strings.Join(command.ClearAliases[:2], " / "))
	fmt.Fprintf(&b, "・%s … 利用料金を表示\n", command.CostAliases[0])
	fmt.Fprintf(&b, "・%s … 利用料金をリセット\n", command.CostResetAliases[0])
	fmt.Fprintf(&b, "・%s … 内部情報を表示", command.DebugAliases[0])
	if r.transcripts != nil {
		fmt.Fprintf(&b, "\n・%s … 新しい会話ファイルを作成\n", command.KeywordNewChat)
		fmt.Fprintf(&b, "・%s … 過去の会話を選択\n", command.KeywordHistoryList)
		fmt.Fprintf(&b, "・%s … 現在の会話を要約", command.KeywordSummarize)
	}
	return b.String()
}

func usd(d decimal.Decimal) string { return "$" + d.StringFixed(4) }

func (r *Router) costText(user session.UserID) string {
	u := r.store.Usage(user)
	c := pricing.Calculate(u, r.opts.Prices)
	var b strings.Builder
	b.WriteString("💰 利用状況\n\n")
	b.WriteString(printer.Sprintf("入力トークン: %d\n", u.InputTokens))
	b.WriteString(printer.Sprintf("キャッシュ入力トークン: %d\n", u.CachedInputTokens))
	b.WriteString(printer.Sprintf("出力トークン: %d\n\n", u.OutputTokens))
	fmt.Fprintf(&b, "入力: %s\n", usd(c.Input))
	fmt.Fprintf(&b, "キャッシュ入力: %s\n", usd(c.CachedInput))
	fmt.Fprintf(&b, "出力: %s\n", usd(c.Output))
	fmt.Fprintf(&b, "合計: %s", usd(c.Total))
	if r.opts.USDJPYRate > 0 {
		fmt.Fprintf(&b, "（約 ¥%s）", pricing.InJPY(c.Total, r.opts.USDJPYRate).StringFixed(2))
	}
	return b.String()
}

func (r *Router) debugText(user session.UserID) string {
	history := r.store.History(user)
	stats := r.store.Stats()
	key := "未設定"
	if r.opts.APIKeyConfigured {
		key = "設定済み"
	}
	var b strings.Builder
	b.WriteString("🔧 デバッグ情報\n\n")
	fmt.Fprintf(&b, "APIキー: %s\n", key)
	fmt.Fprintf(&b, "プロバイダ: %s / モデル: %s\n", r.opts.Provider, r.opts.Model)
	fmt.Fprintf(&b, "ユーザーID: %s\n", user)
	fmt.Fprintf(&b, "チャット: %s\n", onOff(r.store.Enabled(user)))
	fmt.Fprintf(&b, "履歴: %d件 (%d/%d)\n", len(history), len(history), session.MaxTurns)
	b.WriteString(printer.Sprintf("推定コンテキストトークン: %d\n", r.countTokens(history)))
	if r.transcripts != nil {
		active := "なし"
		if id, ok := r.store.ActiveConversation(user); ok {
			active = id
		}
		fmt.Fprintf(&b, "アクティブなチャット: %s\n", active)
	}
	fmt.Fprintf(&b, "\nユーザー数: %d (ON: %d)\n", stats.Users, stats.EnabledUsers)
	fmt.Fprintf(&b, "保持ターン合計: %d\n", stats.TotalTurns)
	fmt.Fprintf(&b, "アクティブなチャット数: %d", stats.ActiveConversations)
	return b.String()
}

// previewTail keeps the end of long transcripts, counting runes.
func previewTail(history string) string {
	runes := []rune(history)
	if len(runes) <= historyPreviewLimit {
		return history
	}
	return textHistoryOmitted + string(runes[len(runes)-historyPreviewTail:])
}
