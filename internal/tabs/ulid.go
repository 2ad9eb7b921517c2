package tabs

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Tab ids are ULIDs: 26 Crockford Base32 characters, a 48-bit millisecond
// timestamp followed by 80 bits of which the first 16 are a per-millisecond
// sequence. Ids issued by one generator sort in creation order.

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

type idGenerator struct {
	mu      sync.Mutex
	lastTS  uint64
	lastSeq uint16
	now     func() time.Time
}

func newIDGenerator() *idGenerator {
	return &idGenerator{now: time.Now}
}

func (g *idGenerator) next() string {
	g.mu.Lock()
	ts := uint64(g.now().UnixMilli())
	if ts <= g.lastTS {
		// Same millisecond, or the clock stepped back.
		ts = g.lastTS
		g.lastSeq++
	} else {
		g.lastTS = ts
		g.lastSeq = 0
	}
	seq := g.lastSeq
	g.mu.Unlock()

	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], ts<<16)
	rand.Read(b[8:])
	binary.BigEndian.PutUint16(b[6:8], seq)
	return encodeULID(b)
}

// encodeULID writes 128 bits as 26 base32 digits, most significant first.
// The leading digit carries only the top 3 bits.
func encodeULID(b [16]byte) string {
	hi := binary.BigEndian.Uint64(b[0:8])
	lo := binary.BigEndian.Uint64(b[8:16])

	var out [26]byte
	for i := 25; i >= 0; i-- {
		out[i] = crockford[lo&31]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out[:])
}
