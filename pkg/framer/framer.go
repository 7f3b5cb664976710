// Package framer 存档与脚本包的文件信封编解码
package framer

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-ai/pkg/checksum"
	"github.com/lk2023060901/xdooria-ai/pkg/compress"
	"github.com/lk2023060901/xdooria-ai/pkg/config"
	"github.com/lk2023060901/xdooria-ai/pkg/pool/bytebuff"
)

// Magic 文件信封魔数
const Magic = "XDAF"

// Version 当前信封格式版本
const Version byte = 1

// Kind 信封内容类型
type Kind uint16

const (
	KindSave   Kind = 1
	KindBundle Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindSave:
		return "save"
	case KindBundle:
		return "bundle"
	default:
		return "unknown"
	}
}

// FlagCompressed payload 已压缩
const FlagCompressed byte = 1 << 0

var (
	// ErrBadMagic 魔数不匹配
	ErrBadMagic = errors.New("framer: bad magic")
	// ErrVersion 不支持的版本
	ErrVersion = errors.New("framer: unsupported version")
	// ErrTruncated 数据不完整
	ErrTruncated = errors.New("framer: truncated envelope")
	// ErrChecksum 校验和不匹配
	ErrChecksum = errors.New("framer: checksum mismatch")
	// ErrKind 内容类型不符
	ErrKind = errors.New("framer: unexpected kind")
)

// Framer 文件信封处理器接口
type Framer interface {
	// Encode 按配置压缩 payload 并封装
	Encode(kind Kind, payload []byte) ([]byte, error)
	// Decode 校验并解封，自动识别压缩算法
	Decode(data []byte) (Kind, []byte, error)
}

// Config Framer 配置
type Config struct {
	// 压缩算法
	Compress compress.Type `mapstructure:"compress"`
	// 小于此字节数不压缩
	CompressMinBytes int `mapstructure:"compress_min_bytes"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Compress:         compress.TypeNone,
		CompressMinBytes: 256,
	}
}

type framerImpl struct {
	config     *Config
	compressor compress.Compressor
	hasher     checksum.Hasher
}

// New 创建 Framer
func New(cfg *Config) (Framer, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to merge framer config")
	}
	c, err := compress.New(newCfg.Compress)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create compressor")
	}
	return &framerImpl{
		config:     newCfg,
		compressor: c,
		hasher:     checksum.MustNew(checksum.TypeXXHash),
	}, nil
}

// headerSize magic(4) + version(1) + kind(2) + flags(1) + nameLen(1)
const headerSize = 9

// trailerSize checksum(4) + length(4)
const trailerSize = 8

func (f *framerImpl) Encode(kind Kind, payload []byte) ([]byte, error) {
	body := payload
	var flags byte
	name := compress.TypeNone

	if f.config.Compress != compress.TypeNone && len(payload) >= f.config.CompressMinBytes {
		compressed, err := f.compressor.Compress(payload)
		if err != nil {
			return nil, errors.Wrap(err, "compress failed")
		}
		body = compressed
		flags |= FlagCompressed
		name = f.config.Compress
	}

	buf := bytebuff.Get()
	buf.B = append(buf.B, Magic...)
	buf.B = append(buf.B, Version)
	buf.B = binary.BigEndian.AppendUint16(buf.B, uint16(kind))
	buf.B = append(buf.B, flags, byte(len(name)))
	buf.B = append(buf.B, name...)
	buf.B = binary.BigEndian.AppendUint32(buf.B, f.hasher.Sum(body))
	buf.B = binary.BigEndian.AppendUint32(buf.B, uint32(len(body)))
	buf.B = append(buf.B, body...)
	return bytebuff.Detach(buf), nil
}

func (f *framerImpl) Decode(data []byte) (Kind, []byte, error) {
	if len(data) < headerSize {
		return 0, nil, ErrTruncated
	}
	if string(data[:4]) != Magic {
		return 0, nil, ErrBadMagic
	}
	if data[4] != Version {
		return 0, nil, errors.Wrapf(ErrVersion, "version %d", data[4])
	}
	kind := Kind(binary.BigEndian.Uint16(data[5:7]))
	flags := data[7]
	nameLen := int(data[8])

	rest := data[headerSize:]
	if len(rest) < nameLen+trailerSize {
		return 0, nil, ErrTruncated
	}
	name := compress.Type(rest[:nameLen])
	rest = rest[nameLen:]
	sum := binary.BigEndian.Uint32(rest[:4])
	length := binary.BigEndian.Uint32(rest[4:8])
	rest = rest[trailerSize:]
	if uint64(len(rest)) != uint64(length) {
		return 0, nil, errors.Wrapf(ErrTruncated, "payload length %d, have %d", length, len(rest))
	}
	if !f.hasher.Verify(rest, sum) {
		return 0, nil, ErrChecksum
	}

	if flags&FlagCompressed == 0 {
		out := make([]byte, len(rest))
		copy(out, rest)
		return kind, out, nil
	}
	c, err := compress.New(name)
	if err != nil {
		return 0, nil, errors.Wrap(err, "unknown envelope compression")
	}
	out, err := c.Decompress(rest)
	if err != nil {
		return 0, nil, errors.Wrap(err, "decompress failed")
	}
	return kind, out, nil
}

// DecodeKind 解封并要求内容类型为 want
func DecodeKind(f Framer, data []byte, want Kind) ([]byte, error) {
	kind, payload, err := f.Decode(data)
	if err != nil {
		return nil, err
	}
	if kind != want {
		return nil, errors.Wrapf(ErrKind, "got %s, want %s", kind, want)
	}
	return payload, nil
}
