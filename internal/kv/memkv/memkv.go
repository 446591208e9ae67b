// Package memkv is an in-memory implementation of the kv.Keyspace
// contract, backed by a single mutex-guarded map per partition. It is
// the default backend for tests and for single-process deployments
// that do not need durability across restarts.
package memkv

import (
	"bytes"
	"context"
	"sync"

	"github.com/prn-tf/castore/internal/kv"
)

type partition struct {
	name string
}

func (p *partition) partitionName() string { return p.name }

// Keyspace is a memkv.Keyspace: one RWMutex-guarded map per partition.
// It never persists to disk; restarting the process loses all data.
type Keyspace struct {
	mu         sync.RWMutex
	partitions map[string]map[string][]byte
}

// New returns an empty Keyspace.
func New() *Keyspace {
	return &Keyspace{partitions: make(map[string]map[string][]byte)}
}

func (ks *Keyspace) Partition(_ context.Context, name string) (kv.Partition, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if _, ok := ks.partitions[name]; !ok {
		ks.partitions[name] = make(map[string][]byte)
	}
	return &partition{name: name}, nil
}

func (ks *Keyspace) ReadTx(_ context.Context) (kv.ReadTx, error) {
	ks.mu.RLock()
	return &readTx{ks: ks}, nil
}

func (ks *Keyspace) WriteTx(_ context.Context) (kv.WriteTx, error) {
	ks.mu.Lock()
	return &writeTx{ks: ks, staged: make(map[string]map[string][]byte)}, nil
}

func (ks *Keyspace) Close() error { return nil }

type readTx struct {
	ks   *Keyspace
	done bool
}

func (tx *readTx) Get(_ context.Context, p kv.Partition, key []byte) ([]byte, bool, error) {
	table := tx.ks.partitions[p.(*partition).name]
	v, ok := table[string(key)]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

func (tx *readTx) Discard() error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.ks.mu.RUnlock()
	return nil
}

type writeTx struct {
	ks     *Keyspace
	staged map[string]map[string][]byte
	done   bool
}

func (tx *writeTx) ContainsKey(_ context.Context, p kv.Partition, key []byte) (bool, error) {
	name := p.(*partition).name
	if staged, ok := tx.staged[name]; ok {
		if _, ok := staged[string(key)]; ok {
			return true, nil
		}
	}
	_, ok := tx.ks.partitions[name][string(key)]
	return ok, nil
}

func (tx *writeTx) Get(_ context.Context, p kv.Partition, key []byte) ([]byte, bool, error) {
	name := p.(*partition).name
	if staged, ok := tx.staged[name]; ok {
		if v, ok := staged[string(key)]; ok {
			return bytes.Clone(v), true, nil
		}
	}
	v, ok := tx.ks.partitions[name][string(key)]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

func (tx *writeTx) Insert(_ context.Context, p kv.Partition, key []byte, value []byte) error {
	name := p.(*partition).name
	if tx.staged[name] == nil {
		tx.staged[name] = make(map[string][]byte)
	}
	tx.staged[name][string(key)] = bytes.Clone(value)
	return nil
}

func (tx *writeTx) Commit(_ context.Context) error {
	if tx.done {
		return nil
	}
	tx.done = true
	defer tx.ks.mu.Unlock()
	for name, kvs := range tx.staged {
		table := tx.ks.partitions[name]
		if table == nil {
			table = make(map[string][]byte)
			tx.ks.partitions[name] = table
		}
		for k, v := range kvs {
			table[k] = v
		}
	}
	return nil
}

func (tx *writeTx) Rollback(_ context.Context) error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.ks.mu.Unlock()
	return nil
}
