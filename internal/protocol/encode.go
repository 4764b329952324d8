package protocol

import "github.com/infinispan/go-hotrod/internal/errs"

// Encode renders req to its wire bytes, including the leading magic byte.
func Encode(req Request) ([]byte, error) {
	req.Header().Magic = MagicRequest
	req.Header().Version = ProtocolVersion

	e := NewEncoder()
	var err error

	switch m := req.(type) {
	case *GetRequest:
		m.Opcode = OpGetRequest
		err = EncodeFields(e, m, getRequestFields)
	case *PutRequest:
		m.Opcode = OpPutRequest
		err = EncodeFields(e, m, putRequestFields)
	case *PutIfAbsentRequest:
		m.Opcode = OpPutIfAbsentRequest
		err = EncodeFields(e, m, putIfAbsentRequestFields)
	case *ReplaceRequest:
		m.Opcode = OpReplaceRequest
		err = EncodeFields(e, m, replaceRequestFields)
	case *RemoveRequest:
		m.Opcode = OpRemoveRequest
		err = EncodeFields(e, m, removeRequestFields)
	case *ContainsKeyRequest:
		m.Opcode = OpContainsKeyRequest
		err = EncodeFields(e, m, containsKeyRequestFields)
	case *PingRequest:
		m.Opcode = OpPingRequest
		err = EncodeFields(e, m, pingRequestFields)
	default:
		return nil, errs.NewEncodeError("unknown request type %T", req)
	}

	if err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}
