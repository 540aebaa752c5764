package tensor

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
)

const (
	dtypeF32    = "F32"
	metadataKey = "__metadata__"
	// maxHeaderSize guards against reading a corrupt length prefix.
	maxHeaderSize = 100 << 20
)

type headerEntry struct {
	DType       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int `json:"data_offsets"`
}

// Bundle is a named set of tensors plus string metadata, stored in the safetensors
// layout: an 8 byte little-endian header length, a JSON header, then raw data.
type Bundle struct {
	Tensors  map[string]*Tensor
	Metadata map[string]string
}

// NewBundle returns an empty bundle.
func NewBundle() *Bundle {
	return &Bundle{Tensors: map[string]*Tensor{}, Metadata: map[string]string{}}
}

// Names returns tensor names in the order they are laid out on disk.
func (b *Bundle) Names() []string {
	names := make([]string, 0, len(b.Tensors))
	for name := range b.Tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WriteTo encodes the bundle to w.
func (b *Bundle) WriteTo(w io.Writer) (int64, error) {
	header := make(map[string]any, len(b.Tensors)+1)
	if len(b.Metadata) > 0 {
		header[metadataKey] = b.Metadata
	}
	offset := 0
	for _, name := range b.Names() {
		t := b.Tensors[name]
		if t.Numel() != len(t.Data) {
			return 0, fmt.Errorf("tensor %s: shape %v does not match %d elements", name, t.Shape, len(t.Data))
		}
		size := 4 * len(t.Data)
		header[name] = headerEntry{DType: dtypeF32, Shape: t.Shape, DataOffsets: [2]int{offset, offset + size}}
		offset += size
	}
	hdr, err := json.Marshal(header)
	if err != nil {
		return 0, fmt.Errorf("encode header: %w", err)
	}
	// header is padded with spaces to keep the data section 8 byte aligned
	if pad := len(hdr) % 8; pad != 0 {
		hdr = append(hdr, bytes.Repeat([]byte(" "), 8-pad)...)
	}

	var written int64
	var prefix [8]byte
	binary.LittleEndian.PutUint64(prefix[:], uint64(len(hdr)))
	n, err := w.Write(prefix[:])
	written += int64(n)
	if err != nil {
		return written, err
	}
	n, err = w.Write(hdr)
	written += int64(n)
	if err != nil {
		return written, err
	}
	buf := make([]byte, 0, 64*1024)
	for _, name := range b.Names() {
		for _, v := range b.Tensors[name].Data {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
			if len(buf) == cap(buf) {
				n, err = w.Write(buf)
				written += int64(n)
				if err != nil {
					return written, err
				}
				buf = buf[:0]
			}
		}
	}
	n, err = w.Write(buf)
	written += int64(n)
	return written, err
}

// ReadBundle decodes a safetensors stream holding F32 tensors.
func ReadBundle(r io.Reader) (*Bundle, error) {
	var prefix [8]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, fmt.Errorf("read header length: %w", err)
	}
	size := binary.LittleEndian.Uint64(prefix[:])
	if size > maxHeaderSize {
		return nil, fmt.Errorf("header length %d exceeds limit", size)
	}
	hdr := make([]byte, size)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(hdr, &raw); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}

	b := NewBundle()
	entries := map[string]headerEntry{}
	end := 0
	for name, msg := range raw {
		if name == metadataKey {
			if err := json.Unmarshal(msg, &b.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
			continue
		}
		var e headerEntry
		if err := json.Unmarshal(msg, &e); err != nil {
			return nil, fmt.Errorf("decode entry %s: %w", name, err)
		}
		if e.DType != dtypeF32 {
			return nil, fmt.Errorf("tensor %s: unsupported dtype %s", name, e.DType)
		}
		entries[name] = e
		if e.DataOffsets[1] > end {
			end = e.DataOffsets[1]
		}
	}
	data := make([]byte, end)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	for name, e := range entries {
		lo, hi := e.DataOffsets[0], e.DataOffsets[1]
		if lo < 0 || hi < lo || (hi-lo)%4 != 0 {
			return nil, fmt.Errorf("tensor %s: bad offsets %v", name, e.DataOffsets)
		}
		vals := make([]float32, (hi-lo)/4)
		for i := range vals {
			vals[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[lo+4*i:]))
		}
		t, err := FromData(vals, e.Shape...)
		if err != nil {
			return nil, fmt.Errorf("tensor %s: %w", name, err)
		}
		b.Tensors[name] = t
	}
	return b, nil
}
