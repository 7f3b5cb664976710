// Package checksum 提供存档和脚本字节码使用的校验和算法
package checksum

import (
	"fmt"
	"hash/crc32"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Hasher 校验和计算器
type Hasher interface {
	// Sum 计算数据的校验和
	Sum(data []byte) uint32
	// Verify 校验数据
	Verify(data []byte, expected uint32) bool
	// Name 返回算法名称
	Name() string
}

// Type 校验算法类型
type Type string

const (
	// TypeCRC32 IEEE 多项式
	TypeCRC32 Type = "crc32"
	// TypeCRC32C Castagnoli 多项式，有硬件加速
	TypeCRC32C Type = "crc32c"
	// TypeXXHash xxhash64 取低 32 位
	TypeXXHash Type = "xxhash"
)

var hashers = map[Type]Hasher{
	TypeCRC32:  tableHasher{name: TypeCRC32, table: crc32.IEEETable},
	TypeCRC32C: tableHasher{name: TypeCRC32C, table: crc32.MakeTable(crc32.Castagnoli)},
	TypeXXHash: xxhashHasher{},
}

// New 返回指定算法的校验器，所有实现都无状态且并发安全
func New(t Type) (Hasher, error) {
	h, ok := hashers[t]
	if !ok {
		return nil, fmt.Errorf("unsupported checksum type: %s", t)
	}
	return h, nil
}

// MustNew 同 New，失败时 panic
func MustNew(t Type) Hasher {
	h, err := New(t)
	if err != nil {
		panic(err)
	}
	return h
}

// List 返回支持的算法，按名称排序
func List() []Type {
	types := make([]Type, 0, len(hashers))
	for t := range hashers {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

type tableHasher struct {
	name  Type
	table *crc32.Table
}

func (h tableHasher) Sum(data []byte) uint32 {
	return crc32.Checksum(data, h.table)
}

func (h tableHasher) Verify(data []byte, expected uint32) bool {
	return h.Sum(data) == expected
}

func (h tableHasher) Name() string {
	return string(h.name)
}

type xxhashHasher struct{}

func (xxhashHasher) Sum(data []byte) uint32 {
	return uint32(xxhash.Sum64(data))
}

func (h xxhashHasher) Verify(data []byte, expected uint32) bool {
	return h.Sum(data) == expected
}

func (xxhashHasher) Name() string {
	return string(TypeXXHash)
}
