package protocol

import "github.com/infinispan/go-hotrod/internal/errs"

// Decode reads one response from d. The response's own opcode (not the
// request that triggered it) selects which concrete type to build: a failed
// request always comes back as *ErrorResponse regardless of what was asked.
func Decode(d *Decoder) (Response, error) {
	var header ResponseHeader
	if err := DecodeFields(d, &header, responseHeaderFields); err != nil {
		return nil, err
	}

	if header.Magic != MagicResponse {
		return nil, errs.NewDecodeError("bad response magic 0x%x", header.Magic)
	}

	if header.Opcode == OpErrorResponse {
		resp := &ErrorResponse{ResponseHeader: header}
		if err := DecodeFields(d, resp, errorResponseFields); err != nil {
			return nil, err
		}
		return resp, nil
	}

	switch header.Opcode {
	case OpGetResponse:
		resp := &GetResponse{ResponseHeader: header}
		return resp, DecodeFields(d, resp, getResponseFields)
	case OpPutResponse:
		resp := &PutResponse{ResponseHeader: header}
		return resp, DecodeFields(d, resp, putResponseFields)
	case OpPutIfAbsentResponse:
		resp := &PutIfAbsentResponse{ResponseHeader: header}
		return resp, DecodeFields(d, resp, putIfAbsentResponseFields)
	case OpReplaceResponse:
		resp := &ReplaceResponse{ResponseHeader: header}
		return resp, DecodeFields(d, resp, replaceResponseFields)
	case OpRemoveResponse:
		resp := &RemoveResponse{ResponseHeader: header}
		return resp, DecodeFields(d, resp, removeResponseFields)
	case OpContainsKeyResponse:
		resp := &ContainsKeyResponse{ResponseHeader: header}
		return resp, DecodeFields(d, resp, containsKeyResponseFields)
	case OpPingResponse:
		resp := &PingResponse{ResponseHeader: header}
		return resp, DecodeFields(d, resp, pingResponseFields)
	default:
		return nil, errs.NewDecodeError("unknown response opcode 0x%x", header.Opcode)
	}
}
