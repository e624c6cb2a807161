package utils

import (
	"bytes"

	"github.com/pkg/errors"
	"golang.org/x/text/transform"

	"github.com/mogaika/shoestring/config"
)

// BytesToString decodes a zero padded fixed-width name with the configured charmap.
func BytesToString(bs []byte) string {
	n := bytes.IndexByte(bs, 0)
	if n < 0 {
		n = len(bs)
	}

	s, _, err := transform.Bytes(config.GetEncoding().NewDecoder(), bs[0:n])
	if err != nil {
		panic(err)
	}

	return string(s)
}

// StringToBytesBuffer encodes s into a zero padded buffer of exactly bufSize bytes.
func StringToBytesBuffer(s string, bufSize int, nilTerminate bool) ([]byte, error) {
	bs, _, err := transform.Bytes(config.GetEncoding().NewEncoder(), []byte(s))
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to encode %q", s)
	}
	if nilTerminate {
		bs = append(bs, 0)
	}
	if len(bs) > bufSize {
		return nil, errors.Errorf("String %q does not fit into %d bytes", s, bufSize)
	}
	r := make([]byte, bufSize)
	copy(r, bs)
	return r, nil
}
