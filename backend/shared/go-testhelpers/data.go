package testhelpers

import (
	"fmt"
	"sync/atomic"
	"time"
)

var phoneSeq atomic.Int64

// UniquePhone returns a fresh E.164 number under the +1555 test prefix.
func UniquePhone() string {
	n := phoneSeq.Add(1)
	return fmt.Sprintf("+1555%07d", (time.Now().UnixNano()/1000+n)%10_000_000)
}
