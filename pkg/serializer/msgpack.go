// Package serializer msgpack 编解码，用于存档与脚本包
package serializer

import (
	"bytes"
	"io"
	"reflect"

	"github.com/hashicorp/go-msgpack/v2/codec"
	"github.com/lk2023060901/xdooria-ai/pkg/pool/bytebuff"
)

// msgpackHandle RawToString=true，map 解码为 map[string]any
var msgpackHandle = func() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.MapType = reflect.TypeOf(map[string]any{})
	h.RawToString = true
	return h
}()

// Encode 使用 msgpack 编码，返回的切片归调用方所有
func Encode(v any) ([]byte, error) {
	buf := bytebuff.Get()
	if err := codec.NewEncoder(buf, msgpackHandle).Encode(v); err != nil {
		bytebuff.Put(buf)
		return nil, err
	}
	return bytebuff.Detach(buf), nil
}

// Decode 使用 msgpack 解码
func Decode(data []byte, v any) error {
	return codec.NewDecoder(bytes.NewReader(data), msgpackHandle).Decode(v)
}

// NewEncoder 创建流式编码器
func NewEncoder(w io.Writer) *codec.Encoder {
	return codec.NewEncoder(w, msgpackHandle)
}

// NewDecoder 创建流式解码器
func NewDecoder(r io.Reader) *codec.Decoder {
	return codec.NewDecoder(r, msgpackHandle)
}
