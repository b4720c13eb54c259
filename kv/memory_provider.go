package kv

import "sync"

// MemoryProvider is a map-backed Provider for tests that don't want to
// touch disk. Ground truth semantics match LevelDBProvider/BoltProvider:
// a missing key returns (nil, nil).
type MemoryProvider struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryProvider returns an empty in-memory Provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{data: make(map[string][]byte)}
}

func (p *MemoryProvider) Get(key []byte) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.data[string(key)]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (p *MemoryProvider) Put(key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	p.data[string(key)] = v
	return nil
}

func (p *MemoryProvider) Delete(key []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.data, string(key))
	return nil
}

func (p *MemoryProvider) Has(key []byte) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.data[string(key)]
	return ok, nil
}

func (p *MemoryProvider) Batch() Batch {
	return &memoryBatch{p: p}
}

func (p *MemoryProvider) Close() error { return nil }

type memoryOp struct {
	del   bool
	key   []byte
	value []byte
}

type memoryBatch struct {
	p   *MemoryProvider
	ops []memoryOp
}

func (b *memoryBatch) Put(key, value []byte) {
	b.ops = append(b.ops, memoryOp{key: key, value: value})
}

func (b *memoryBatch) Delete(key []byte) {
	b.ops = append(b.ops, memoryOp{del: true, key: key})
}

func (b *memoryBatch) Reset() { b.ops = b.ops[:0] }

func (b *memoryBatch) Write() error {
	for _, op := range b.ops {
		if op.del {
			if err := b.p.Delete(op.key); err != nil {
				return err
			}
			continue
		}
		if err := b.p.Put(op.key, op.value); err != nil {
			return err
		}
	}
	return nil
}
