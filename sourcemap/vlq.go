package sourcemap

import (
	"fmt"
	"strings"
)

const (
	vlqBaseShift       = 5
	vlqBase            = 1 << vlqBaseShift
	vlqBaseMask        = vlqBase - 1
	vlqContinuationBit = vlqBase
)

const base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

var base64Index = func() (idx [256]int8) {
	for i := range idx {
		idx[i] = -1
	}
	for i := range len(base64Chars) {
		idx[base64Chars[i]] = int8(i)
	}
	return idx
}()

// writeVLQ appends base64 VLQ encoding of v.
func writeVLQ(sb *strings.Builder, v int) {
	u := v << 1
	if v < 0 {
		u = (-v << 1) | 1
	}
	for {
		digit := u & vlqBaseMask
		u >>= vlqBaseShift
		if u > 0 {
			digit |= vlqContinuationBit
		}
		sb.WriteByte(base64Chars[digit])
		if u == 0 {
			return
		}
	}
}

// readVLQ decodes single value from s starting at pos and returns it with
// position after it.
func readVLQ(s string, pos int) (int, int, error) {
	var (
		u     int
		shift uint
	)
	for {
		if pos >= len(s) {
			return 0, pos, fmt.Errorf("unexpected end of VLQ value")
		}
		digit := base64Index[s[pos]]
		if digit < 0 {
			return 0, pos, fmt.Errorf("invalid base64 character %q at %d", s[pos], pos)
		}
		pos++
		u |= int(digit&vlqBaseMask) << shift
		if digit&vlqContinuationBit == 0 {
			break
		}
		shift += vlqBaseShift
	}
	v := u >> 1
	if u&1 != 0 {
		v = -v
	}
	return v, pos, nil
}
