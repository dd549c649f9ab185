package protocol_test

import (
	"encoding/json"
	"testing"

	"brickwall.dev/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	validate := func(name, doc string) {
		t.Helper()
		if err := protocol.Validate(name, []byte(doc)); err != nil {
			t.Fatalf("validate %s: %v", name, err)
		}
	}

	validate(protocol.SchemaChatRequest, `{
	  "history":[
	    {"role":"model","text":"Welcome to the Great Wall!","timestamp":1700000000000},
	    {"role":"user","text":"How long is the wall?","timestamp":1700000005000}
	  ],
	  "time_of_day":"sunset"
	}`)
	validate(protocol.SchemaHello, `{"type":"HELLO","protocol_version":"1.0","name":"visitor","time_of_day":"day"}`)
	validate(protocol.SchemaChat, `{"type":"CHAT","protocol_version":"1.0","seq":3,"text":"Who built it?"}`)
	validate(protocol.SchemaReply, `{"type":"REPLY","protocol_version":"1.0","seq":3,"message":{"role":"model","text":"Many dynasties!","timestamp":1}}`)
	validate(protocol.SchemaWelcome, `{"type":"WELCOME","protocol_version":"1.0","session_id":"G1","world_id":"great_wall","world_digest":"ab","message":{"role":"model","text":"hi","timestamp":1}}`)
}

func TestSchemas_RejectInvalid(t *testing.T) {
	cases := []struct{ name, doc string }{
		{protocol.SchemaChatRequest, `{"history":[]}`},
		{protocol.SchemaChatRequest, `{"history":[{"role":"system","text":"x"}]}`},
		{protocol.SchemaChatRequest, `{"history":[{"role":"user","text":"x"}],"time_of_day":"noon"}`},
		{protocol.SchemaChat, `{"type":"CHAT","protocol_version":"1.0","seq":0,"text":"x"}`},
		{protocol.SchemaChat, `{"type":"CHAT","protocol_version":"1.0","seq":1,"text":""}`},
		{protocol.SchemaHello, `{"type":"CHAT","protocol_version":"1.0"}`},
	}
	for _, c := range cases {
		if err := protocol.Validate(c.name, []byte(c.doc)); err == nil {
			t.Fatalf("%s accepted %s", c.name, c.doc)
		}
	}
	if _, err := protocol.Schema("missing.schema.json"); err == nil {
		t.Fatalf("expected unknown schema error")
	}
}

func TestSchemas_MessagesMarshalValid(t *testing.T) {
	reply := protocol.ReplyMsg{
		Type:            protocol.TypeReply,
		ProtocolVersion: protocol.Version,
		Seq:             1,
		Message:         protocol.ChatMessage{Role: protocol.RoleModel, Text: "Bricks!", Timestamp: 5},
	}
	raw, _ := json.Marshal(reply)
	if err := protocol.Validate(protocol.SchemaReply, raw); err != nil {
		t.Fatalf("reply: %v", err)
	}
	req := protocol.ChatRequest{History: []protocol.ChatMessage{{Role: protocol.RoleUser, Text: "hi"}}}
	raw, _ = json.Marshal(req)
	if err := protocol.Validate(protocol.SchemaChatRequest, raw); err != nil {
		t.Fatalf("request: %v", err)
	}
}
