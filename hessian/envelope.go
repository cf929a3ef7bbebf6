package hessian

import (
	"bytes"
	"fmt"

	hessian2 "github.com/apache/dubbo-go-hessian2"
)

const (
	maxMethodNameLength = 255
	replyPrefixLength   = 4

	markerVersion = 'H'
	markerCall    = 'C'
	markerReply   = 'R'
	markerFault   = 'F'
)

var versionMajorMinor = []byte{0x02, 0x00}

// EncodeCall builds a Hessian 2.0 call envelope:
//
//	H x02 x00   # version
//	C           # call
//	x04 add2    # method name, length prefixed
//	x92         # argument count
//	x92 x93     # arguments
func EncodeCall(method string, args []any) ([]byte, error) {
	if len(method) > maxMethodNameLength {
		return nil, fmt.Errorf("%w: %d", ErrMethodNameTooLong, len(method))
	}

	var buf bytes.Buffer
	buf.WriteByte(markerVersion)
	buf.Write(versionMajorMinor)
	buf.WriteByte(markerCall)
	buf.WriteByte(byte(len(method)))
	buf.WriteString(method)

	encoder := hessian2.NewEncoder()

	// A Go int is encoded as a 64 bit long; the count must be a Hessian int.
	if err := encoder.Encode(int32(len(args))); err != nil {
		return nil, fmt.Errorf("encode argument count: %w", err)
	}

	for i, arg := range args {
		if err := encoder.Encode(arg); err != nil {
			return nil, fmt.Errorf("encode argument %d: %w", i, err)
		}
	}

	buf.Write(encoder.Buffer())

	return buf.Bytes(), nil
}

// DecodeReply unframes a Hessian 2.0 reply body and decodes its value.
// Fault replies are returned as *CallError matching ErrFault.
func DecodeReply(content []byte) (any, error) {
	if len(content) < replyPrefixLength || content[0] != markerVersion {
		return nil, decodeError(content, "not a hessian 2.0 reply")
	}

	value, err := hessian2.NewDecoder(content[replyPrefixLength:]).Decode()
	if err != nil {
		return nil, decodeError(content, err.Error())
	}

	switch content[3] {
	case markerReply:
		return value, nil
	case markerFault:
		return nil, faultError(content, value)
	default:
		return nil, decodeError(content, fmt.Sprintf("unknown reply marker %q", content[3]))
	}
}

func decodeError(content []byte, message string) *CallError {
	return &CallError{
		Kind:       ErrDecode,
		StatusCode: 200,
		Content:    content,
		Message:    message,
	}
}

func faultError(content []byte, value any) *CallError {
	fault := make(map[string]any)

	switch m := value.(type) {
	case map[any]any:
		for key, v := range m {
			fault[fmt.Sprint(key)] = v
		}
	case map[string]any:
		for key, v := range m {
			fault[key] = v
		}
	}

	message, _ := fault["message"].(string)

	return &CallError{
		Kind:       ErrFault,
		StatusCode: 200,
		Content:    content,
		Message:    message,
		Fault:      fault,
	}
}
