// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package subsystem

import (
	"errors"
	"fmt"
	"testing"

	"periph.io/x/crate/conn/bus"
)

func TestLock(t *testing.T) {
	s := newTest(t)
	var log []string
	s.Install(&fakeIface{name: "0", log: &log}, Owned)
	s.Install(&fakeIface{name: "1", log: &log}, Borrowed)
	s.Install(&fakeIface{name: "2", log: &log}, Owned)
	if err := s.Lock(); err != nil {
		t.Fatal(err)
	}
	if !s.Locked() {
		t.Fatal("Locked() = false")
	}
	p := s.ipc.(*fakeIPC)
	if p.sem.value != 0 || p.sem.waits != 1 {
		t.Fatalf("semaphore %+v", p.sem)
	}
	if err := s.Unlock(); err != nil {
		t.Fatal(err)
	}
	if s.Locked() {
		t.Fatal("Locked() = true")
	}
	if p.sem.value != 1 || p.sem.posts != 1 {
		t.Fatalf("semaphore %+v", p.sem)
	}
	// Same order on lock and unlock.
	expected := "[0.OnLock 1.OnLock 2.OnLock 0.OnUnlock 1.OnUnlock 2.OnUnlock]"
	if fmt.Sprint(log) != expected {
		t.Fatalf("log = %v", log)
	}
	// The semaphore is created once.
	if err := s.Lock(); err != nil {
		t.Fatal(err)
	}
	if err := s.Unlock(); err != nil {
		t.Fatal(err)
	}
	if p.lookups != 1 || p.creates != 1 {
		t.Fatalf("lookups=%d creates=%d", p.lookups, p.creates)
	}
}

func TestLock_Recursive(t *testing.T) {
	s := newTest(t)
	if err := s.Lock(); err != nil {
		t.Fatal(err)
	}
	p := s.ipc.(*fakeIPC)
	if err := s.Lock(); err != bus.ErrLockHeld {
		t.Fatalf("Lock() = %v", err)
	}
	if p.sem.waits != 1 {
		t.Fatalf("the semaphore was touched a second time: %+v", p.sem)
	}
	if !s.Locked() {
		t.Fatal("the failed Lock() released the lock")
	}
}

func TestUnlock_NotLocked(t *testing.T) {
	s := newTest(t)
	if err := s.Unlock(); err != bus.ErrNotLocked {
		t.Fatalf("Unlock() = %v", err)
	}
	if p := s.ipc.(*fakeIPC); p.lookups != 0 || p.creates != 0 {
		t.Fatal("Unlock() touched the semaphore")
	}
}

func TestLock_OnLockFailure(t *testing.T) {
	s := newTest(t)
	var log []string
	e := errors.New("arbitration lost")
	s.Install(&fakeIface{name: "0", log: &log}, Owned)
	s.Install(&fakeIface{name: "1", log: &log, lockErr: e}, Owned)
	s.Install(&fakeIface{name: "2", log: &log}, Owned)
	if err := s.Lock(); !errors.Is(err, e) {
		t.Fatalf("Lock() = %v", err)
	}
	if s.Locked() {
		t.Fatal("Locked() = true")
	}
	if p := s.ipc.(*fakeIPC); p.sem.value != 1 {
		t.Fatalf("the semaphore wasn't given back: %+v", p.sem)
	}
	if fmt.Sprint(log) != "[0.OnLock 1.OnLock 0.OnUnlock]" {
		t.Fatalf("log = %v", log)
	}
}

func TestWith(t *testing.T) {
	s := newTest(t)
	called := false
	err := s.With(func() error {
		called = true
		if !s.Locked() {
			t.Fatal("not locked")
		}
		return nil
	})
	if err != nil || !called || s.Locked() {
		t.Fatalf("With() = %v, called=%t locked=%t", err, called, s.Locked())
	}
	e := errors.New("inner")
	if err := s.With(func() error { return e }); err != e {
		t.Fatalf("With() = %v", err)
	}
	if s.Locked() {
		t.Fatal("With() didn't unlock on failure")
	}
}

func TestOpenSemaphore_Existing(t *testing.T) {
	p := &fakeIPC{exists: true, sem: &fakeSem{value: 1}}
	s, err := openSemaphore(p, DefaultKey, func() { t.Fatal("unexpected pause") })
	if err != nil || s != p.sem {
		t.Fatalf("openSemaphore() = %v, %v", s, err)
	}
	if p.creates != 0 {
		t.Fatal("an existing semaphore must not be created")
	}
}

func TestOpenSemaphore_LostRace(t *testing.T) {
	// Another process creates the semaphore between our lookup and our
	// creation attempt.
	p := &fakeIPC{raceLost: 1}
	pauses := 0
	s, err := openSemaphore(p, DefaultKey, func() { pauses++ })
	if err != nil {
		t.Fatal(err)
	}
	if pauses != 1 || p.lookups != 2 || p.creates != 1 {
		t.Fatalf("pauses=%d lookups=%d creates=%d", pauses, p.lookups, p.creates)
	}
	if s != p.sem || p.sem.initializedBy != "other" {
		t.Fatalf("semaphore %+v", p.sem)
	}
}

func TestOpenSemaphore_Errors(t *testing.T) {
	e := errors.New("EACCES")
	if _, err := openSemaphore(&fakeIPC{lookupErr: e}, 1, func() {}); err != e {
		t.Fatalf("openSemaphore() = %v", err)
	}
	if _, err := openSemaphore(&fakeIPC{createErr: e}, 1, func() {}); err != e {
		t.Fatalf("openSemaphore() = %v", err)
	}
	// The semaphore keeps disappearing.
	p := &fakeIPC{raceLost: maxCreateAttempts, vanish: true}
	if _, err := openSemaphore(p, 1, func() {}); err == nil {
		t.Fatal("expected openSemaphore() to give up")
	}
	if p.creates != maxCreateAttempts {
		t.Fatalf("creates=%d", p.creates)
	}
}

func TestLock_OpenFailure(t *testing.T) {
	s := newTest(t)
	e := errors.New("EPERM")
	s.ipc = &fakeIPC{lookupErr: e}
	if err := s.Lock(); err != e {
		t.Fatalf("Lock() = %v", err)
	}
	if s.Locked() {
		t.Fatal("Locked() = true")
	}
}

func TestIOErr(t *testing.T) {
	err := ioErr("semop", errors.New("boom"))
	var b *bus.Error
	if !errors.As(err, &b) || b.Reason != "I/O error" {
		t.Fatalf("ioErr() = %v", err)
	}
}

//

// fakeIPC is an in-memory ipc.
type fakeIPC struct {
	exists    bool
	sem       *fakeSem
	lookups   int
	creates   int
	raceLost  int  // createExclusive calls that lose against another process
	vanish    bool // the semaphore disappears right after being created by the other process
	lookupErr error
	createErr error
}

func (f *fakeIPC) lookup(key uint32) (semaphore, error) {
	f.lookups++
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if !f.exists {
		return nil, errNotExist
	}
	return f.sem, nil
}

func (f *fakeIPC) createExclusive(key uint32) (semaphore, error) {
	f.creates++
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.raceLost > 0 {
		f.raceLost--
		if !f.vanish {
			f.exists = true
			f.sem = &fakeSem{value: 1, initializedBy: "other"}
		}
		return nil, errExist
	}
	f.exists = true
	f.sem = &fakeSem{value: 1, initializedBy: "us"}
	return f.sem, nil
}

type fakeSem struct {
	value         int
	waits         int
	posts         int
	initializedBy string
}

func (f *fakeSem) wait() error {
	f.waits++
	if f.value == 0 {
		return errors.New("would block forever")
	}
	f.value--
	return nil
}

func (f *fakeSem) post() error {
	f.posts++
	f.value++
	return nil
}
