// Package strings provides pooled string building utilities for the wire
// encoder hot path.
package strings

import (
	"fmt"
	"strconv"
	"sync"
	"time"
	"unsafe"
)

// BytesToString converts a byte slice to a string without allocation.
// WARNING: The returned string shares memory with the byte slice.
// Do not modify the byte slice after calling this function.
func BytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return *(*string)(unsafe.Pointer(&b))
}

// StringToBytes converts a string to a byte slice without allocation.
// WARNING: Do not modify the returned slice.
func StringToBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// Builder provides efficient string building on a reusable byte buffer.
type Builder struct {
	buf []byte
}

// NewBuilder creates a new string builder with the given capacity.
func NewBuilder(capacity int) *Builder {
	return &Builder{buf: make([]byte, 0, capacity)}
}

// WriteString appends a string to the builder.
func (b *Builder) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

// WriteBytes appends raw bytes to the builder.
func (b *Builder) WriteBytes(data []byte) {
	b.buf = append(b.buf, data...)
}

// WriteByte appends a single byte to the builder.
func (b *Builder) WriteByte(c byte) {
	b.buf = append(b.buf, c)
}

// Write implements io.Writer.
func (b *Builder) Write(p []byte) (n int, err error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// String returns the accumulated string without copying.
// The result is invalidated by further writes or Reset.
func (b *Builder) String() string {
	return BytesToString(b.buf)
}

// Bytes returns the accumulated bytes without copying.
func (b *Builder) Bytes() []byte {
	return b.buf
}

// Len returns the number of accumulated bytes.
func (b *Builder) Len() int {
	return len(b.buf)
}

// Reset clears the builder for reuse, keeping the allocated capacity.
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
}

// Grow ensures capacity for at least n more bytes.
func (b *Builder) Grow(n int) {
	if cap(b.buf)-len(b.buf) < n {
		grown := make([]byte, len(b.buf), len(b.buf)+n)
		copy(grown, b.buf)
		b.buf = grown
	}
}

// BuilderSize selects the pooled builder capacity class.
type BuilderSize int

const (
	// Small is for short fragments such as single encoded fields.
	Small BuilderSize = iota
	// Medium is for rows and statements.
	Medium
	// Large is for whole payloads.
	Large
)

var (
	smallPool  = sync.Pool{New: func() interface{} { return NewBuilder(256) }}
	mediumPool = sync.Pool{New: func() interface{} { return NewBuilder(4 * 1024) }}
	largePool  = sync.Pool{New: func() interface{} { return NewBuilder(64 * 1024) }}
)

// GetBuilder gets a pooled builder of the given size class.
func GetBuilder(size BuilderSize) *Builder {
	var b *Builder
	switch size {
	case Large:
		b = largePool.Get().(*Builder)
	case Medium:
		b = mediumPool.Get().(*Builder)
	default:
		b = smallPool.Get().(*Builder)
	}
	b.Reset()
	return b
}

// PutBuilder returns a builder to its pool.
func PutBuilder(b *Builder, size BuilderSize) {
	switch size {
	case Large:
		largePool.Put(b)
	case Medium:
		mediumPool.Put(b)
	default:
		smallPool.Put(b)
	}
}

// Clone returns a copy of s backed by freshly allocated memory. Use it to
// detach results built on pooled buffers before the buffer is reused.
func Clone(s string) string {
	if len(s) == 0 {
		return ""
	}
	b := make([]byte, len(s))
	copy(b, s)
	return BytesToString(b)
}

// Concat concatenates strings with a single allocation.
func Concat(parts ...string) string {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	buf := make([]byte, 0, total)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return BytesToString(buf)
}

// Sprintf is a pooled replacement for fmt.Sprintf.
func Sprintf(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}

	size := Small
	if estimated := len(format) + len(args)*16; estimated > 16*1024 {
		size = Large
	} else if estimated > 1024 {
		size = Medium
	}

	b := GetBuilder(size)
	defer PutBuilder(b, size)

	fmt.Fprintf(b, format, args...)
	return Clone(b.String())
}

// ValueToString converts a value to its string form, avoiding fmt for the
// common scalar types. It is used for cache index keys, so the mapping must
// stay stable across calls.
func ValueToString(value interface{}) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format("2006-01-02 15:04:05")
	case []byte:
		return BytesToString(v)
	default:
		return Sprintf("%v", value)
	}
}
