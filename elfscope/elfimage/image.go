package elfimage

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
)

// Image is a read-only ELF file held in memory. Every structure read goes
// through ReadAt or Slice, which check the requested range against the
// buffer length first.
type Image struct {
	data []byte
}

func Validate(data []byte) (*Image, error) {
	if len(data) < len(elf.ELFMAG) {
		return nil, fmt.Errorf("%d bytes is too short for an ELF file: %w", len(data), ErrInvalidFormat)
	}
	if !bytes.Equal(data[:len(elf.ELFMAG)], []byte(elf.ELFMAG)) {
		return nil, fmt.Errorf("bad magic % x: %w", data[:len(elf.ELFMAG)], ErrInvalidFormat)
	}
	return &Image{data: data}, nil
}

func (i *Image) Bytes() []byte {
	return i.data
}

func (i *Image) Len() int {
	return len(i.data)
}

// Slice returns the bytes in [off, off+size) without copying.
func (i *Image) Slice(off, size uint64) ([]byte, error) {
	end := off + size
	if end < off || end > uint64(len(i.data)) {
		return nil, fmt.Errorf("range 0x%x+0x%x past end of file (0x%x): %w", off, size, len(i.data), ErrInvalidFormat)
	}
	return i.data[off:end:end], nil
}

// ReadAt decodes the fixed-size value v from the image at off, in native
// byte order.
func (i *Image) ReadAt(off uint64, v any) error {
	size := binary.Size(v)
	if size < 0 {
		return fmt.Errorf("cannot decode %T", v)
	}
	b, err := i.Slice(off, uint64(size))
	if err != nil {
		return err
	}
	if _, err := binary.Decode(b, binary.NativeEndian, v); err != nil {
		return fmt.Errorf("decoding %T at 0x%x: %w", v, off, err)
	}
	return nil
}
