package metaindex

import (
	"fmt"
	"strconv"
)

// normalizeKey converts a metadata value into the canonical string used as
// an exact-match posting key, adapted from the teacher's
// NormalizeMetadataValue (internal/storage/metadata.go): there it
// validates/stringifies whole JSON documents, here it canonicalizes a
// single scalar so equal values always produce equal keys regardless of
// their original numeric representation (json.Unmarshal decodes all JSON
// numbers as float64, so 1 and 1.0 must collide).
func normalizeKey(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "\x00nil"
	case string:
		return "s:" + t
	case bool:
		if t {
			return "b:true"
		}
		return "b:false"
	case float64:
		return "n:" + strconv.FormatFloat(t, 'g', -1, 64)
	case float32:
		return "n:" + strconv.FormatFloat(float64(t), 'g', -1, 64)
	case int:
		return "n:" + strconv.FormatFloat(float64(t), 'g', -1, 64)
	case int64:
		return "n:" + strconv.FormatFloat(float64(t), 'g', -1, 64)
	default:
		return "x:" + fmt.Sprintf("%v", t)
	}
}

// compare orders two metadata values for sorted range postings. Values of
// differing incomparable types sort by type tag so a field mixing types
// (a data-quality bug, not a normal case) still produces a total order
// instead of panicking.
func compare(a, b interface{}) int {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	as, asok := a.(string)
	bs, bsok := b.(string)
	if asok && bsok {
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	}

	ka, kb := normalizeKey(a), normalizeKey(b)
	switch {
	case ka < kb:
		return -1
	case ka > kb:
		return 1
	default:
		return 0
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}
