package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"score/internal/domain"
)

// ErrDecode is returned when a payload cannot be turned into an execution
var ErrDecode = errors.New("unable to decode execution payload")

// ExecutionCodec converts execution contexts to and from message payloads
type ExecutionCodec interface {
	Encode(execution *domain.Execution) ([]byte, error)
	Decode(payload []byte) (*domain.Execution, error)
}

type jsonCodec struct{}

// NewJSONCodec returns the JSON payload codec
func NewJSONCodec() ExecutionCodec {
	return jsonCodec{}
}

func (jsonCodec) Encode(execution *domain.Execution) ([]byte, error) {
	if execution == nil {
		return nil, errors.New("cannot encode nil execution")
	}
	data, err := json.Marshal(execution)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal execution %d: %w", execution.ExecutionID, err)
	}
	return data, nil
}

func (jsonCodec) Decode(payload []byte) (*domain.Execution, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}
	var execution domain.Execution
	if err := json.Unmarshal(payload, &execution); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if execution.Variables == nil {
		execution.Variables = make(map[string]any)
	}
	return &execution, nil
}

// IsDecodeError reports whether err is a payload decode failure
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrDecode)
}
