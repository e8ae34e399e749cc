// client.go is the operator-side counterpart of the JSON-RPC relay
// transport. Requests travel as JSON payloads over a single gRPC unary
// method, so no generated stubs are needed on either side.
package grpcapi

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

const callMethod = "/spectre.v1.ConsoleService/Call"

// jsonCodec carries RPCRequest/RPCResponse values as raw JSON frames.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return "json" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// Client is a thin relay client.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to a relay with the given transport credentials.
func Dial(addr string, creds credentials.TransportCredentials) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	)
	if err != nil {
		return nil, fmt.Errorf("dialing relay %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// DialInsecure connects without TLS. Local/dev use only.
func DialInsecure(addr string) (*Client, error) {
	return Dial(addr, insecure.NewCredentials())
}

// Call invokes one relay method. A non-nil result receives the decoded
// payload; an RPC-level error string comes back as a Go error.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	req := &RPCRequest{Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encoding params: %w", err)
		}
		req.Params = raw
	}

	var resp RPCResponse
	if err := c.conn.Invoke(ctx, callMethod, req, &resp); err != nil {
		return fmt.Errorf("relay call %s: %w", method, err)
	}
	if resp.Error != "" {
		return fmt.Errorf("%s", resp.Error)
	}
	if result != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("decoding result: %w", err)
		}
	}
	return nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
