package store

import (
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// compressThreshold is the byte size above which a tool operation's
// raw_input/raw_result blob is zstd-compressed before being persisted, per
// rekal-dev-rekal-cli's use of the same codec for its own on-disk frames.
// Small blobs aren't worth the framing overhead.
const compressThreshold = 2048

const compressedPrefix = "zstd:"

var (
	encoderOnce sync.Once
	encoder     *zstd.Encoder
	decoderOnce sync.Once
	decoder     *zstd.Decoder
)

func zstdEncoder() *zstd.Encoder {
	encoderOnce.Do(func() {
		encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	return encoder
}

func zstdDecoder() *zstd.Decoder {
	decoderOnce.Do(func() {
		decoder, _ = zstd.NewReader(nil)
	})
	return decoder
}

// maybeCompress compresses s when it exceeds compressThreshold, returning
// a base64 payload tagged with compressedPrefix; short blobs pass through
// unchanged.
func maybeCompress(s string) string {
	if len(s) <= compressThreshold {
		return s
	}
	compressed := zstdEncoder().EncodeAll([]byte(s), nil)
	return compressedPrefix + base64.StdEncoding.EncodeToString(compressed)
}

// maybeDecompress reverses maybeCompress, passing through any value that
// doesn't carry the compressed-payload tag.
func maybeDecompress(s string) (string, error) {
	if !strings.HasPrefix(s, compressedPrefix) {
		return s, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, compressedPrefix))
	if err != nil {
		return "", fmt.Errorf("chatvault: decode compressed blob: %w", err)
	}
	decoded, err := zstdDecoder().DecodeAll(raw, nil)
	if err != nil {
		return "", fmt.Errorf("chatvault: decompress blob: %w", err)
	}
	return string(decoded), nil
}
