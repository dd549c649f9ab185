package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"brickwall.dev/internal/protocol"
)

func main() {
	var (
		url       = flag.String("url", "ws://localhost:8080/v1/guide/ws", "guide ws url")
		name      = flag.String("name", "visitor", "visitor name")
		timeOfDay = flag.String("time", "day", "time of day sent with each question (day, sunset, night)")
		ask       = flag.String("ask", "", "ask one question, print the reply and exit")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		Name:            *name,
		TimeOfDay:       *timeOfDay,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	replies := make(chan protocol.ReplyMsg, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			switch base.Type {
			case protocol.TypeWelcome:
				var w protocol.WelcomeMsg
				if err := json.Unmarshal(msg, &w); err != nil {
					continue
				}
				logger.Printf("WELCOME session=%s world=%s digest=%.12s", w.SessionID, w.WorldID, w.WorldDigest)
				fmt.Printf("guide> %s\n", w.Message.Text)

			case protocol.TypeReply:
				var r protocol.ReplyMsg
				if err := json.Unmarshal(msg, &r); err != nil {
					continue
				}
				fmt.Printf("guide> %s\n", r.Message.Text)
				select {
				case replies <- r:
				default:
				}

			case protocol.TypeError:
				var e protocol.ErrorMsg
				if err := json.Unmarshal(msg, &e); err != nil {
					continue
				}
				logger.Print(errorLine(e))
			}
		}
	}()

	var seq uint64
	send := func(text string) bool {
		seq++
		chat := protocol.ChatMsg{
			Type:            protocol.TypeChat,
			ProtocolVersion: protocol.Version,
			Seq:             seq,
			Text:            text,
			TimeOfDay:       *timeOfDay,
		}
		if err := conn.WriteJSON(chat); err != nil {
			logger.Printf("send CHAT: %v", err)
			return false
		}
		return true
	}

	if q := strings.TrimSpace(*ask); q != "" {
		if !send(q) {
			os.Exit(1)
		}
		select {
		case <-replies:
		case <-done:
			os.Exit(1)
		case <-time.After(60 * time.Second):
			logger.Printf("timed out waiting for a reply")
			os.Exit(1)
		}
		return
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-stop:
			return
		case <-done:
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if !send(line) {
				return
			}
		}
	}
}

// errorLine formats a server ERROR, flagging codes this client was not built with.
func errorLine(e protocol.ErrorMsg) string {
	if !protocol.IsKnownCode(e.Code) {
		return fmt.Sprintf("ERROR seq=%d unrecognised code %q (protocol_version=%s): %s", e.Seq, e.Code, e.ProtocolVersion, e.Message)
	}
	return fmt.Sprintf("ERROR seq=%d code=%s: %s", e.Seq, e.Code, e.Message)
}
