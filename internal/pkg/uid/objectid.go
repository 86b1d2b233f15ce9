package uid

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

var ErrNoNodeIdentity = errors.New("uid: neither /etc/machine-id nor hostname is available")

// ObjectID generates 24-char hex ids shaped like MongoDB object ids:
// 4 bytes unix seconds, 5 bytes node, 3 bytes counter. They sort by creation
// second and are safe inside object storage keys.
type ObjectID struct {
	node    [5]byte
	counter atomic.Uint32
	now     func() time.Time
}

func NewObjectIDGenerator() (*ObjectID, error) {
	src := machineID()
	if src == "" {
		return nil, ErrNoNodeIdentity
	}

	g := &ObjectID{now: time.Now}
	sum := sha256.Sum256([]byte(src + "/" + hostPID()))
	copy(g.node[:], sum[:5])

	var seed [4]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, err
	}
	g.counter.Store(binary.BigEndian.Uint32(seed[:]))

	return g, nil
}

func machineID() string {
	if b, err := os.ReadFile("/etc/machine-id"); err == nil {
		if s := strings.TrimSpace(string(b)); s != "" {
			return s
		}
	}
	if h, err := os.Hostname(); err == nil {
		return strings.TrimSpace(h)
	}
	return ""
}

func hostPID() string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(os.Getpid()))
	return hex.EncodeToString(b[:])
}

func (g *ObjectID) Generate() string {
	var raw [12]byte
	binary.BigEndian.PutUint32(raw[0:4], uint32(g.now().Unix()))
	copy(raw[4:9], g.node[:])

	c := g.counter.Add(1)
	raw[9] = byte(c >> 16)
	raw[10] = byte(c >> 8)
	raw[11] = byte(c)

	return hex.EncodeToString(raw[:])
}
