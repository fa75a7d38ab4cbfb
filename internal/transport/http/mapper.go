package http

import (
	"fmt"

	"github.com/conversia/relay-server/internal/proto"
	"github.com/conversia/relay-server/internal/relay"
)

// inboundToCommand maps a wire message to a relay command. A non-nil error
// frame means the message was rejected at the protocol level; field-level
// validation happens in the hub.
func inboundToCommand(in proto.Inbound) (*relay.Command, *proto.ErrorFrame) {
	switch in.Type {
	case proto.TypeAuthenticate:
		return &relay.Command{Kind: relay.CommandAuthenticate, Token: in.Token}, nil
	case proto.TypeSubscribe:
		return &relay.Command{Kind: relay.CommandSubscribe, Room: in.Room}, nil
	case proto.TypeUnsubscribe:
		return &relay.Command{Kind: relay.CommandUnsubscribe, Room: in.Room}, nil
	case proto.TypePing:
		return &relay.Command{Kind: relay.CommandPing}, nil
	case proto.TypeChatMessage:
		return &relay.Command{
			Kind:        relay.CommandChatMessage,
			Room:        in.Room,
			Content:     in.Content,
			MessageType: in.MessageType,
			Metadata:    in.Metadata,
		}, nil
	case proto.TypeTypingIndicator:
		return &relay.Command{Kind: relay.CommandTypingIndicator, Room: in.Room, IsTyping: in.IsTyping}, nil
	case proto.TypeReadReceipt:
		return &relay.Command{Kind: relay.CommandReadReceipt, Room: in.Room, MessageID: in.MessageID}, nil
	default:
		frame := proto.NewErrorFrame(relay.ErrCodeUnknownType, fmt.Sprintf("unknown message type %q", in.Type))
		return nil, &frame
	}
}

// outboundFromEvent maps a relay event to its wire frame.
func outboundFromEvent(ev *relay.Event) any {
	switch ev.Kind {
	case relay.EventConnected:
		return proto.ConnectionAck{
			Type:      proto.TypeConnection,
			Status:    "connected",
			ClientID:  ev.ConnID,
			Timestamp: ev.At,
		}
	case relay.EventAuthenticated:
		return proto.AuthResult{
			Type:   proto.TypeAuthResult,
			Status: "success",
			User: proto.UserInfo{
				ID:         ev.Identity.UserID,
				Email:      ev.Identity.Email,
				BusinessID: ev.Identity.BusinessID,
				Role:       ev.Identity.Role,
			},
			Timestamp: ev.At,
		}
	case relay.EventSubscription:
		return proto.SubscriptionAck{
			Type:      proto.TypeSubscription,
			Status:    ev.SubStatus,
			Room:      ev.Room,
			Timestamp: ev.At,
		}
	case relay.EventRoomInfo:
		users := make([]proto.OnlineUser, 0, len(ev.Members))
		for _, m := range ev.Members {
			users = append(users, proto.OnlineUser{
				ID:          m.UserID,
				BusinessID:  m.BusinessID,
				Role:        m.Role,
				ConnectedAt: m.ConnectedAt,
			})
		}
		return proto.RoomInfo{
			Type:        proto.TypeRoomInfo,
			Room:        ev.Room,
			OnlineUsers: users,
			TotalUsers:  len(users),
			Timestamp:   ev.At,
		}
	case relay.EventChatMessage:
		return proto.ChatMessage{
			Type:        proto.TypeChatMessage,
			Room:        ev.Room,
			Content:     ev.Message.Content,
			MessageType: ev.Message.MessageType,
			Sender: proto.Sender{
				ID:         ev.Message.SenderID,
				BusinessID: ev.Message.SenderBusinessID,
			},
			Metadata:  ev.Message.Metadata,
			Timestamp: ev.At,
		}
	case relay.EventTypingIndicator:
		return proto.TypingIndicator{
			Type:       proto.TypeTypingIndicator,
			Room:       ev.Room,
			UserID:     ev.Typing.UserID,
			BusinessID: ev.Typing.BusinessID,
			IsTyping:   ev.Typing.IsTyping,
			Timestamp:  ev.At,
		}
	case relay.EventReadReceipt:
		return proto.ReadReceipt{
			Type:       proto.TypeReadReceipt,
			Room:       ev.Room,
			UserID:     ev.Receipt.UserID,
			BusinessID: ev.Receipt.BusinessID,
			MessageID:  ev.Receipt.MessageID,
			Timestamp:  ev.At,
		}
	case relay.EventUserOnline:
		return proto.PresenceChange{Type: proto.TypeUserOnline, UserID: ev.UserID, Timestamp: ev.At}
	case relay.EventUserOffline:
		return proto.PresenceChange{Type: proto.TypeUserOffline, UserID: ev.UserID, Timestamp: ev.At}
	case relay.EventNotification:
		return proto.Notification{
			Type:      proto.TypeNotification,
			Title:     ev.Notification.Title,
			Body:      ev.Notification.Body,
			Data:      ev.Notification.Data,
			Timestamp: ev.At,
		}
	case relay.EventSystemMessage:
		return proto.SystemMessage{
			Type:      proto.TypeSystemMessage,
			Room:      ev.Room,
			Message:   ev.System.Text,
			Level:     ev.System.Level,
			Timestamp: ev.At,
		}
	case relay.EventPong:
		return proto.Pong{Type: proto.TypePong, Timestamp: ev.At}
	case relay.EventError:
		return proto.ErrorFrame{
			Type:      proto.TypeError,
			Code:      ev.Err.Code,
			Message:   ev.Err.Message,
			Timestamp: ev.At,
		}
	}
	return nil
}
