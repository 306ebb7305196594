package util

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"sync/atomic"
	"time"
)

var (
	objectCounter uint32
	machineId     [5]byte
)

func init() {
	if _, err := rand.Read(machineId[:]); err != nil {
		panic(err)
	}
	var seed [4]byte
	if _, err := rand.Read(seed[:]); err != nil {
		panic(err)
	}
	objectCounter = binary.BigEndian.Uint32(seed[:])
}

// Generate 生成 objectId 风格的唯一id：4字节时间戳 + 5字节随机机器标识 + 3字节自增计数
func Generate() string {
	var b [12]byte
	binary.BigEndian.PutUint32(b[0:4], uint32(time.Now().Unix()))
	copy(b[4:9], machineId[:])
	c := atomic.AddUint32(&objectCounter, 1)
	b[9] = byte(c >> 16)
	b[10] = byte(c >> 8)
	b[11] = byte(c)
	return hex.EncodeToString(b[:])
}

// MustPanic err非空即panic，仅用于启动阶段
func MustPanic(err error) {
	if err != nil {
		panic(err)
	}
}
