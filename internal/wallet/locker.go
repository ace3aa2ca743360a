// Copyright 2021 Kaleido

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package wallet

import (
	"context"
	"sync"
)

// Locker serializes work on a single wallet label. The returned func
// releases the lock and must be called exactly once
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

type keyedLocker struct {
	mux   sync.Mutex
	locks map[string]*keyedLock
}

// NewKeyedLocker is an in-process lock per key
func NewKeyedLocker() Locker {
	return &keyedLocker{
		locks: make(map[string]*keyedLock),
	}
}

func (k *keyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	k.mux.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{ch: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mux.Unlock()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			k.release(key, l)
		}, nil
	case <-ctx.Done():
		k.release(key, l)
		return nil, ctx.Err()
	}
}

func (k *keyedLocker) release(key string, l *keyedLock) {
	k.mux.Lock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
	k.mux.Unlock()
}

type chainLocker []Locker

// ChainLockers takes each lock in order, releasing in reverse
func ChainLockers(lockers ...Locker) Locker {
	return chainLocker(lockers)
}

func (c chainLocker) Lock(ctx context.Context, key string) (func(), error) {
	unlocks := make([]func(), 0, len(c))
	unlockAll := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, l := range c {
		unlock, err := l.Lock(ctx, key)
		if err != nil {
			unlockAll()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return unlockAll, nil
}
