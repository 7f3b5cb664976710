package ai

import (
	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-ai/pkg/bt"
	"github.com/lk2023060901/xdooria-ai/pkg/framer"
	"github.com/lk2023060901/xdooria-ai/pkg/serializer"
)

// BundleVersion 脚本包格式版本
const BundleVersion = 1

// Bundle 预编译脚本包：原型键 -> 字节码
type Bundle struct {
	Version int               `codec:"version"`
	Entries map[string][]byte `codec:"entries"`
}

// NewBundle 创建空脚本包
func NewBundle() *Bundle {
	return &Bundle{Version: BundleVersion, Entries: make(map[string][]byte)}
}

// Add 编码并加入一棵树
func (b *Bundle) Add(a Archetype, t *bt.Tree) error {
	data, err := bt.Encode(t)
	if err != nil {
		return errors.Wrapf(err, "encode %s", a)
	}
	b.Entries[a.String()] = data
	return nil
}

// Tree 解码指定原型的树
func (b *Bundle) Tree(a Archetype, opts ...bt.CompileOption) (*bt.Tree, bool, error) {
	data, ok := b.Entries[a.String()]
	if !ok {
		return nil, false, nil
	}
	t, err := bt.Decode(data, opts...)
	if err != nil {
		return nil, true, errors.Wrapf(err, "bundle entry %s", a)
	}
	return t, true, nil
}

// MarshalBundle msgpack 序列化后封装为 bundle 信封
func MarshalBundle(b *Bundle, f framer.Framer) ([]byte, error) {
	payload, err := serializer.Encode(b)
	if err != nil {
		return nil, errors.Wrap(err, "encode bundle")
	}
	return f.Encode(framer.KindBundle, payload)
}

// UnmarshalBundle 解封并校验版本与原型键
func UnmarshalBundle(data []byte, f framer.Framer) (*Bundle, error) {
	payload, err := framer.DecodeKind(f, data, framer.KindBundle)
	if err != nil {
		return nil, err
	}
	b := NewBundle()
	if err := serializer.Decode(payload, b); err != nil {
		return nil, errors.Wrap(err, "decode bundle")
	}
	if b.Version != BundleVersion {
		return nil, errors.Newf("unsupported bundle version %d", b.Version)
	}
	for key := range b.Entries {
		if _, err := ParseArchetype(key); err != nil {
			return nil, err
		}
	}
	return b, nil
}
