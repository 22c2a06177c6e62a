package bytebuf

import "github.com/joshuapare/growbuf/internal/buf"

// nextCapacity returns the capacity to grow to when need bytes no longer fit into
// capacity. ok is false when the doubled size overflows int.
func nextCapacity(capacity, need int) (int, bool) {
	return buf.Double(capacity, need)
}
