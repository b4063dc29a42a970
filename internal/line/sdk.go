package line

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"line-chat-ai/internal/router"
	"line-chat-ai/internal/session"
)

const (
	// maxTextRunes is the Messaging API limit for one text message.
	maxTextRunes = 5000
	// maxQuickReplies is the Messaging API limit for quick reply items.
	maxQuickReplies = 13
	// maxLabelRunes is the Messaging API limit for an action label.
	maxLabelRunes = 20
)

// SDK implements Parser and Messenger on top of line-bot-sdk-go.
type SDK struct {
	secret string
	api    *messaging_api.MessagingApiAPI
}

func NewSDK(channelToken, channelSecret string) (*SDK, error) {
	api, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init messaging api: %w", err)
	}
	return &SDK{secret: channelSecret, api: api}, nil
}

func (s *SDK) Parse(r *http.Request) ([]Inbound, error) {
	cb, err := webhook.ParseRequest(s.secret, r)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			return nil, ErrInvalidSignature
		}
		return nil, fmt.Errorf("parse webhook: %w", err)
	}

	out := make([]Inbound, 0, len(cb.Events))
	for _, event := range cb.Events {
		switch e := event.(type) {
		case webhook.MessageEvent:
			text, ok := e.Message.(webhook.TextMessageContent)
			if !ok {
				continue
			}
			userID := sourceUserID(e.Source)
			if userID == "" {
				continue
			}
			out = append(out, Inbound{
				ReplyToken: e.ReplyToken,
				Event:      router.Event{Kind: router.EventMessage, UserID: session.UserID(userID), Text: text.Text},
			})
		case webhook.FollowEvent:
			userID := sourceUserID(e.Source)
			if userID == "" {
				continue
			}
			out = append(out, Inbound{
				ReplyToken: e.ReplyToken,
				Event:      router.Event{Kind: router.EventFollow, UserID: session.UserID(userID)},
			})
		}
	}
	return out, nil
}

func sourceUserID(src webhook.SourceInterface) string {
	switch s := src.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	}
	return ""
}

func (s *SDK) Reply(replyToken string, reply router.Reply) error {
	_, err := s.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   []messaging_api.MessageInterface{toTextMessage(reply)},
	})
	if err != nil {
		return fmt.Errorf("reply message: %w", err)
	}
	return nil
}

func (s *SDK) DisplayName(userID string) (string, error) {
	profile, err := s.api.GetProfile(userID)
	if err != nil {
		return "", fmt.Errorf("get profile: %w", err)
	}
	return profile.DisplayName, nil
}

func toTextMessage(reply router.Reply) messaging_api.TextMessage {
	msg := messaging_api.TextMessage{Text: truncateRunes(reply.Text, maxTextRunes)}
	if len(reply.QuickReplies) == 0 {
		return msg
	}
	items := reply.QuickReplies
	if len(items) > maxQuickReplies {
		items = items[:maxQuickReplies]
	}
	qr := &messaging_api.QuickReply{Items: make([]messaging_api.QuickReplyItem, 0, len(items))}
	for _, it := range items {
		qr.Items = append(qr.Items, messaging_api.QuickReplyItem{
			Type:   "action",
			Action: &messaging_api.MessageAction{Label: truncateRunes(it.Label, maxLabelRunes), Text: it.Text},
		})
	}
	msg.QuickReply = qr
	return msg
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
