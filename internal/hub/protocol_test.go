package hub

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestEncodeFrameTerminated(t *testing.T) {
	frame, err := encodeFrame(handshakeRequest{Protocol: "json", Version: 1})
	if err != nil {
		t.Fatalf("encodeFrame failed: %v", err)
	}
	if frame[len(frame)-1] != recordSeparator {
		t.Error("frame not terminated with the record separator")
	}
	var req handshakeRequest
	if err := json.Unmarshal(frame[:len(frame)-1], &req); err != nil {
		t.Fatalf("frame body not valid JSON: %v", err)
	}
	if req.Protocol != "json" || req.Version != 1 {
		t.Errorf("round-tripped %+v", req)
	}
}

func TestSplitFrames(t *testing.T) {
	data := bytes.Join([][]byte{
		[]byte(`{"type":6}`),
		[]byte(`{"type":1,"target":"ReceiveNotification","arguments":[{}]}`),
		{},
	}, []byte{recordSeparator})

	frames, err := splitFrames(data)
	if err != nil {
		t.Fatalf("splitFrames failed: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	var msg hubMessage
	if err := json.Unmarshal(frames[1], &msg); err != nil {
		t.Fatalf("second frame: %v", err)
	}
	if msg.Type != typeInvocation || msg.Target != receiveEvent {
		t.Errorf("second frame decoded to %+v", msg)
	}
}

func TestSplitFramesRejectsUnterminated(t *testing.T) {
	if _, err := splitFrames([]byte(`{"type":6}`)); err == nil {
		t.Fatal("expected error for an unterminated frame")
	}
}

func TestParseHandshakeResponse(t *testing.T) {
	if err := parseHandshakeResponse([]byte(`{}`)); err != nil {
		t.Errorf("empty handshake response should succeed, got %v", err)
	}
	if err := parseHandshakeResponse([]byte(`{"error":"unsupported protocol"}`)); err == nil {
		t.Error("expected error from a rejecting handshake response")
	}
}
