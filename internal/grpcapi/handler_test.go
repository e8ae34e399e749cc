package grpcapi

import (
	"context"
	"encoding/json"
	"testing"
)

func TestHandlerDispatch(t *testing.T) {
	svc, _ := setupTestService(t)
	h := NewHandler(svc)
	ctx := context.Background()

	resp := h.Handle(ctx, &RPCRequest{Method: "no.such.method"})
	if resp.Error == "" {
		t.Error("unknown method did not error")
	}

	resp = h.Handle(ctx, &RPCRequest{
		Method: "auth.login",
		Params: json.RawMessage(`{"badge":"F0","passcode":"PASS1234"}`),
	})
	if resp.Error != "" {
		t.Fatalf("login: %s", resp.Error)
	}
	var lr LoginResult
	if err := json.Unmarshal(resp.Result, &lr); err != nil {
		t.Fatalf("decode login result: %v", err)
	}
	if lr.AgentName != "AGENT FALCON" {
		t.Errorf("agent = %q", lr.AgentName)
	}

	resp = h.Handle(ctx, &RPCRequest{
		Method: "auth.verify",
		Params: json.RawMessage(`{"code":"042086"}`),
	})
	if resp.Error != "" {
		t.Fatalf("verify: %s", resp.Error)
	}

	resp = h.Handle(ctx, &RPCRequest{Method: "poi.list"})
	if resp.Error != "" {
		t.Fatalf("poi.list: %s", resp.Error)
	}
	var pois []json.RawMessage
	if err := json.Unmarshal(resp.Result, &pois); err != nil {
		t.Fatalf("decode pois: %v", err)
	}
	if len(pois) != 2 {
		t.Errorf("pois = %d, want 2", len(pois))
	}

	// Wrong credentials surface as an RPC error, not a transport fault.
	h.Handle(ctx, &RPCRequest{Method: "auth.logout"})
	resp = h.Handle(ctx, &RPCRequest{
		Method: "auth.login",
		Params: json.RawMessage(`{"badge":"F0","passcode":"WRONG"}`),
	})
	if resp.Error == "" {
		t.Error("bad credentials did not error")
	}
}

func TestHandlerRejectsMalformedParams(t *testing.T) {
	svc, _ := setupTestService(t)
	h := NewHandler(svc)

	resp := h.Handle(context.Background(), &RPCRequest{
		Method: "poi.get",
		Params: json.RawMessage(`{"id":`),
	})
	if resp.Error == "" {
		t.Error("malformed params did not error")
	}

	resp = h.Handle(context.Background(), &RPCRequest{Method: "poi.get"})
	if resp.Error == "" {
		t.Error("missing params did not error")
	}
}
