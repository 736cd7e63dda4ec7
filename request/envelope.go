package request

import (
	"encoding/json"

	"github.com/petehayes102/hostagent/command"
	"github.com/petehayes102/hostagent/hosterrors"
	"github.com/petehayes102/hostagent/protocol"
)

// envelope is the wire-level Result<Value, String> shape from
// host/remote.rs's `Plain::call` — exactly one of Ok or Err is present.
type envelope struct {
	Ok  json.RawMessage `json:"Ok,omitempty"`
	Err *string         `json:"Err,omitempty"`
}

// WriteResponse writes the outcome of running a Request onto enc: a
// Child response streams its body after an {"Ok":null} header, a value
// response is a single {"Ok": value} header with no body, and a failed
// Exec becomes {"Err": message} with no body, using hosterrors.Display to
// flatten the error chain the way error_chain::display_chain does in the
// original's agent main.rs.
func WriteResponse(enc *protocol.Encoder, resp Response, execErr error) error {
	if execErr != nil {
		msg := hosterrors.Display(execErr)
		data, err := json.Marshal(envelope{Err: &msg})
		if err != nil {
			return err
		}
		return protocol.WriteHeaderOnly(enc, json.RawMessage(data))
	}

	if resp.Child != nil {
		data, err := json.Marshal(envelope{Ok: json.RawMessage("null")})
		if err != nil {
			return err
		}
		if err := enc.WriteHeader(json.RawMessage(data), true); err != nil {
			return err
		}
		return command.WriteChildBody(enc, resp.Child)
	}

	data, err := json.Marshal(envelope{Ok: resp.Value})
	if err != nil {
		return err
	}
	return protocol.WriteHeaderOnly(enc, json.RawMessage(data))
}

// ReadResponse reads one Message off dec and decodes its Result envelope.
// An {"Err": message} header is translated into a hosterrors.Remote,
// draining any body first so the Decoder is left ready for the next
// message.
func ReadResponse(dec *protocol.Decoder) (Response, error) {
	msg, err := protocol.ReadMessage(dec)
	if err != nil {
		return Response{}, err
	}

	var env envelope
	if err := json.Unmarshal(msg.Header, &env); err != nil {
		if msg.Body != nil {
			_ = msg.Body.Drain()
		}
		return Response{}, hosterrors.NewMalformed(err)
	}

	if env.Err != nil {
		if msg.Body != nil {
			_ = msg.Body.Drain()
		}
		return Response{}, hosterrors.NewRemote(*env.Err)
	}

	if msg.HasBody {
		return Response{Child: command.ChildFromBody(msg.Body)}, nil
	}
	return Response{Value: env.Ok}, nil
}
