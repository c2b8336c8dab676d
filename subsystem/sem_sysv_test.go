// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux && (amd64 || arm64)

package subsystem

import (
	"math/rand"
	"testing"

	"golang.org/x/sys/unix"
	"periph.io/x/crate/conn/bus/busreg"
)

const semGetVal = 12 // GETVAL

func TestSysvIPC(t *testing.T) {
	key := randomKey()
	var p sysvIPC
	if _, err := p.lookup(key); err != errNotExist {
		t.Skipf("System V IPC unavailable: %v", err)
	}
	s, err := p.createExclusive(key)
	if err != nil {
		t.Skipf("System V IPC unavailable: %v", err)
	}
	id := s.(*sysvSem).id
	removeSem(t, id)
	if v := semValue(t, id); v != 1 {
		t.Fatalf("value after creation = %d", v)
	}
	if _, err := p.createExclusive(key); err != errExist {
		t.Fatalf("second createExclusive() = %v", err)
	}
	if err := s.wait(); err != nil {
		t.Fatal(err)
	}
	if v := semValue(t, id); v != 0 {
		t.Fatalf("value after wait = %d", v)
	}
	if err := s.post(); err != nil {
		t.Fatal(err)
	}
	if v := semValue(t, id); v != 1 {
		t.Fatalf("value after post = %d", v)
	}
	s2, err := p.lookup(key)
	if err != nil {
		t.Fatal(err)
	}
	if s2.(*sysvSem).id != id {
		t.Fatalf("lookup() id = %d, expected %d", s2.(*sysvSem).id, id)
	}
}

func TestLock_System(t *testing.T) {
	s := New(busreg.New(), WithKey(randomKey()))
	if err := s.Lock(); err != nil {
		t.Skipf("System V IPC unavailable: %v", err)
	}
	id := s.sem.(*sysvSem).id
	removeSem(t, id)
	if v := semValue(t, id); v != 0 {
		t.Fatalf("value while locked = %d", v)
	}
	if err := s.Unlock(); err != nil {
		t.Fatal(err)
	}
	if v := semValue(t, id); v != 1 {
		t.Fatalf("value after Unlock() = %d", v)
	}
}

//

// randomKey returns a key unlikely to collide with a real bus lock.
func randomKey() uint32 {
	return 0x7e000000 | rand.Uint32()&0xffffff
}

func semValue(t *testing.T, id uintptr) int {
	v, _, errno := unix.Syscall(unix.SYS_SEMCTL, id, 0, semGetVal)
	if errno != 0 {
		t.Fatalf("semctl(GETVAL): %v", errno)
	}
	return int(v)
}

func removeSem(t *testing.T, id uintptr) {
	t.Cleanup(func() {
		if _, _, errno := unix.Syscall(unix.SYS_SEMCTL, id, 0, unix.IPC_RMID); errno != 0 {
			t.Errorf("semctl(IPC_RMID): %v", errno)
		}
	})
}
