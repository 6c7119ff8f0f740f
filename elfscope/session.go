package main

import (
	"fmt"
	"math"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/chains-project/elfscope/elfscope/elfheader"
	"github.com/chains-project/elfscope/elfscope/elfimage"
)

// maxMapSize is the largest file a single mapping can hold on this platform.
var maxMapSize int64 = math.MaxInt

// session is one mapped ELF file. The mapping stays valid until Close.
type session struct {
	path string
	file *os.File
	data []byte
	img  *elfimage.Image
	hdr  *elfheader.Header
}

func openSession(path string) (*session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !fi.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	if fi.Size() == 0 {
		f.Close()
		return nil, fmt.Errorf("%s is empty: %w", path, elfimage.ErrInvalidFormat)
	}

	if fi.Size() > maxMapSize {
		f.Close()
		return nil, fmt.Errorf("%s is too large to map (%d bytes): %w", path, fi.Size(), elfimage.ErrOutOfRange)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mapping %s: %w", path, err)
	}

	s := &session{path: path, file: f, data: data}
	if s.img, err = elfimage.Validate(data); err == nil {
		s.hdr, err = elfheader.Parse(s.img)
	}
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("%s is not a usable ELF32 file: %w", path, err)
	}

	logrus.Debugf("mapped %s (%d bytes)", path, len(data))
	return s, nil
}

func (s *session) Close() error {
	var err error
	if s.data != nil {
		err = unix.Munmap(s.data)
		s.data = nil
	}
	if s.file != nil {
		if cerr := s.file.Close(); err == nil {
			err = cerr
		}
		s.file = nil
	}
	s.img = nil
	s.hdr = nil
	return err
}
