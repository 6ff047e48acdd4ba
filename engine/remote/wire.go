package remote

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/chat/engine"
)

// GenerateProcedure is the Connect procedure served by NewHandler.
const GenerateProcedure = "/chat.engine.v1.EngineService/Generate"

// generateRequest is the body of a Generate call.
type generateRequest struct {
	Prompt string        `json:"prompt"`
	Config engine.Config `json:"config"`
}

// generateFrame is one message of the response stream: a token while
// generation is in progress, then a single frame carrying the response.
type generateFrame struct {
	Token    string           `json:"token,omitempty"`
	Response *engine.Response `json:"response,omitempty"`
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("remote: encode: %w", err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("remote: encode: %w", err)
	}
	return s, nil
}

func fromStruct(s *structpb.Struct, v any) error {
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("remote: decode: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("remote: decode: %w", err)
	}
	return nil
}
