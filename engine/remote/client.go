// Package remote serves an engine.Engine over Connect and consumes one as
// an engine.Engine, so sessions can drive a model hosted in another
// process.
//
// Messages are google.protobuf.Struct values, which keeps the wire format
// readable with the Connect JSON codec and needs no generated code.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/chat/engine"
)

// ErrNoResponse is returned when a stream ends without a response frame.
var ErrNoResponse = errors.New("remote: stream ended without a response")

// Client is an engine.Engine backed by a remote Generate procedure.
type Client struct {
	client *connect.Client[structpb.Struct, structpb.Struct]
}

// NewClient creates a Client calling the server at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		client: connect.NewClient[structpb.Struct, structpb.Struct](
			httpClient,
			strings.TrimRight(baseURL, "/")+GenerateProcedure,
			opts...,
		),
	}
}

// Generate streams tokens from the server into cb. Once cb returns false
// the remaining tokens are discarded, but the stream is read to its final
// frame so the reported position matches the server's engine.
//
// TODO: stop generation on the server when cb declines, which needs a
// bidirectional stream.
func (c *Client) Generate(ctx context.Context, prompt string, cfg engine.Config, cb engine.TokenCallback) (*engine.Response, error) {
	msg, err := toStruct(generateRequest{Prompt: prompt, Config: cfg})
	if err != nil {
		return nil, err
	}

	stream, err := c.client.CallServerStream(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, mapError(ctx, err)
	}
	defer stream.Close()

	var resp *engine.Response
	for stream.Receive() {
		var frame generateFrame
		if err := fromStruct(stream.Msg(), &frame); err != nil {
			return nil, err
		}
		if frame.Response != nil {
			resp = frame.Response
			continue
		}
		if cb != nil && frame.Token != "" && !cb(frame.Token) {
			cb = nil
		}
	}
	if err := stream.Err(); err != nil {
		return nil, mapError(ctx, err)
	}
	if resp == nil {
		return nil, ErrNoResponse
	}
	return resp, nil
}

// mapError restores the local identity of errors the handler coded.
func mapError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("remote: generate: %w", ctxErr)
	}
	if connect.CodeOf(err) == connect.CodeInvalidArgument {
		return fmt.Errorf("remote: generate: %w: %w", engine.ErrInvalidConfig, err)
	}
	return fmt.Errorf("remote: generate: %w", err)
}
