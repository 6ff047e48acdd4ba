package remote

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/chat/engine"
)

// NewHandler serves e as the Generate procedure. It returns the path to
// mount the handler on, following generated Connect handler constructors.
func NewHandler(e engine.Engine, opts ...connect.HandlerOption) (string, http.Handler) {
	h := connect.NewServerStreamHandler(GenerateProcedure, generate(e), opts...)
	return GenerateProcedure, h
}

func generate(e engine.Engine) func(context.Context, *connect.Request[structpb.Struct], *connect.ServerStream[structpb.Struct]) error {
	return func(ctx context.Context, req *connect.Request[structpb.Struct], stream *connect.ServerStream[structpb.Struct]) error {
		var in generateRequest
		if err := fromStruct(req.Msg, &in); err != nil {
			return connect.NewError(connect.CodeInvalidArgument, err)
		}

		var sendErr error
		cb := func(token string) bool {
			frame, err := toStruct(generateFrame{Token: token})
			if err == nil {
				err = stream.Send(frame)
			}
			if err != nil {
				sendErr = err
				return false
			}
			return true
		}

		resp, err := e.Generate(ctx, in.Prompt, in.Config, cb)
		if err != nil {
			return connect.NewError(codeOf(err), err)
		}
		if sendErr != nil {
			return sendErr
		}

		frame, err := toStruct(generateFrame{Response: resp})
		if err != nil {
			return connect.NewError(connect.CodeInternal, err)
		}
		return stream.Send(frame)
	}
}

func codeOf(err error) connect.Code {
	switch {
	case errors.Is(err, engine.ErrInvalidConfig):
		return connect.CodeInvalidArgument
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	default:
		return connect.CodeUnknown
	}
}
