// Package compress 提供存档与脚本包使用的压缩算法
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compressor 压缩器接口
type Compressor interface {
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte) ([]byte, error)
	Name() string
}

// Type 压缩算法类型
type Type string

const (
	TypeNone   Type = "none"
	TypeSnappy Type = "snappy"
	TypeZstd   Type = "zstd"
	TypeLZ4    Type = "lz4"
)

// ErrCorrupt 压缩数据损坏
var ErrCorrupt = errors.New("compress: corrupt input")

var factories = map[Type]func() (Compressor, error){
	TypeNone:   func() (Compressor, error) { return noneCompressor{}, nil },
	TypeSnappy: func() (Compressor, error) { return snappyCompressor{}, nil },
	TypeZstd:   newZstdCompressor,
	TypeLZ4:    func() (Compressor, error) { return lz4Compressor{}, nil },
}

// New 创建压缩器，空字符串等同于 none
func New(t Type) (Compressor, error) {
	if t == "" {
		t = TypeNone
	}
	factory, ok := factories[t]
	if !ok {
		return nil, fmt.Errorf("unsupported compression type: %s", t)
	}
	return factory()
}

// MustNew 同 New，失败时 panic
func MustNew(t Type) Compressor {
	c, err := New(t)
	if err != nil {
		panic(err)
	}
	return c
}

// List 返回支持的算法，按名称排序
func List() []Type {
	types := make([]Type, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

type noneCompressor struct{}

func (noneCompressor) Compress(src []byte) ([]byte, error)   { return src, nil }
func (noneCompressor) Decompress(src []byte) ([]byte, error) { return src, nil }
func (noneCompressor) Name() string                          { return string(TypeNone) }

type snappyCompressor struct{}

func (snappyCompressor) Compress(src []byte) ([]byte, error) {
	return snappy.Encode(nil, src), nil
}

func (snappyCompressor) Decompress(src []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return out, nil
}

func (snappyCompressor) Name() string { return string(TypeSnappy) }

// zstdCompressor EncodeAll/DecodeAll 可并发调用
type zstdCompressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newZstdCompressor() (Compressor, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, err
	}
	return &zstdCompressor{encoder: encoder, decoder: decoder}, nil
}

func (c *zstdCompressor) Compress(src []byte) ([]byte, error) {
	return c.encoder.EncodeAll(src, nil), nil
}

func (c *zstdCompressor) Decompress(src []byte) ([]byte, error) {
	out, err := c.decoder.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return out, nil
}

func (c *zstdCompressor) Name() string { return string(TypeZstd) }

// lz4Compressor 块格式: 4 字节原始长度 (大端) + 1 字节标记 + 数据
// 标记 0 表示原样存储，1 表示 lz4 块
type lz4Compressor struct{}

const (
	lz4Stored     = 0
	lz4Compressed = 1
)

func (lz4Compressor) Compress(src []byte) ([]byte, error) {
	dst := make([]byte, 5+lz4.CompressBlockBound(len(src)))
	binary.BigEndian.PutUint32(dst, uint32(len(src)))

	var c lz4.Compressor
	n, err := c.CompressBlock(src, dst[5:])
	if err != nil {
		return nil, err
	}
	if n == 0 || n >= len(src) {
		dst[4] = lz4Stored
		n = copy(dst[5:], src)
	} else {
		dst[4] = lz4Compressed
	}
	return dst[:5+n], nil
}

func (lz4Compressor) Decompress(src []byte) ([]byte, error) {
	if len(src) < 5 {
		return nil, ErrCorrupt
	}
	size := binary.BigEndian.Uint32(src)
	body := src[5:]

	switch src[4] {
	case lz4Stored:
		if uint32(len(body)) != size {
			return nil, ErrCorrupt
		}
		return append([]byte(nil), body...), nil
	case lz4Compressed:
		dst := make([]byte, size)
		n, err := lz4.UncompressBlock(body, dst)
		if err != nil || uint32(n) != size {
			return nil, fmt.Errorf("%w: lz4 block", ErrCorrupt)
		}
		return dst, nil
	default:
		return nil, ErrCorrupt
	}
}

func (lz4Compressor) Name() string { return string(TypeLZ4) }
