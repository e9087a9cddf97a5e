package uniqueid

import (
	"encoding/base64"
	"encoding/binary"
	"math/rand"
	"time"
)

// UniqueId returns a URL-safe identifier built from the current timestamp
// and 8 random bytes. Used to tag outbound replication commands with a
// requester identity so a node can recognize and drop its own echoes.
func UniqueId() string {
	b := make([]byte, 16)

	ts := time.Now().UnixMicro()
	binary.BigEndian.PutUint64(b[:8], uint64(ts))

	_, err := rand.Read(b[8:])
	if err != nil {
		panic(err)
	}

	return base64.RawURLEncoding.EncodeToString(b)
}
