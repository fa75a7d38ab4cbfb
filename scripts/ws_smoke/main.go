package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/conversia/relay-server/internal/proto"
)

// Manual smoke check against a running relay: connect, authenticate,
// subscribe, send a chat message, and print every frame until a pong arrives.
func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	token := flag.String("token", "", "JWT to authenticate with (skip auth when empty)")
	room := flag.String("room", "chat:smoke", "room name to subscribe to")
	text := flag.String("text", "hello from smoke test", "chat message to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(msg proto.Inbound) error {
		if err := wsjson.Write(ctx, conn, msg); err != nil {
			return fmt.Errorf("send %s: %w", msg.Type, err)
		}
		return nil
	}

	if *token != "" {
		if err := send(proto.Inbound{Type: proto.TypeAuthenticate, Token: *token}); err != nil {
			return err
		}
		if err := send(proto.Inbound{Type: proto.TypeSubscribe, Room: *room}); err != nil {
			return err
		}
		if err := send(proto.Inbound{Type: proto.TypeChatMessage, Room: *room, Content: *text}); err != nil {
			return err
		}
	}
	if err := send(proto.Inbound{Type: proto.TypePing}); err != nil {
		return err
	}

	for {
		var frame map[string]any
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		frameType, _ := frame["type"].(string)
		fmt.Printf("Received frame: type=%s\n", frameType)

		switch frameType {
		case proto.TypeError:
			fmt.Printf("Error: code=%v message=%v\n", frame["code"], frame["message"])
		case proto.TypeRoomInfo:
			fmt.Printf("RoomInfo: room=%v totalUsers=%v\n", frame["room"], frame["totalUsers"])
		case proto.TypePong:
			// Pong is the last frame we asked for; the relay round-trip works.
			return nil
		}
	}
}
