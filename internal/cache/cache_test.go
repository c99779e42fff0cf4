package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryBasicOperations(t *testing.T) {
	c := NewMemory(1024)

	if err := c.Put("k", []byte("value")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, ok := c.Get("k")
	if !ok || string(got) != "value" {
		t.Errorf("Get = %q, %v", got, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) = ok")
	}

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Size != 5 || s.Items != 1 {
		t.Errorf("Stats = %+v", s)
	}
	if s.HitRate() != 0.5 {
		t.Errorf("HitRate = %v", s.HitRate())
	}

	c.Clear()
	if s := c.Stats(); s.Size != 0 || s.Items != 0 {
		t.Errorf("Stats after Clear = %+v", s)
	}
}

func TestMemoryLRUEviction(t *testing.T) {
	c := NewMemory(10)
	_ = c.Put("a", []byte("aaaa"))
	_ = c.Put("b", []byte("bbbb"))
	c.Get("a")
	_ = c.Put("c", []byte("cccc"))

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry survived")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s evicted", k)
		}
	}
	if s := c.Stats(); s.Evictions != 1 || s.Size != 8 {
		t.Errorf("Stats = %+v", s)
	}
}

func TestMemoryReplaceAndTooLarge(t *testing.T) {
	c := NewMemory(8)
	_ = c.Put("a", []byte("1234"))
	_ = c.Put("a", []byte("12"))
	if s := c.Stats(); s.Size != 2 || s.Items != 1 {
		t.Errorf("Stats after replace = %+v", s)
	}
	if err := c.Put("big", make([]byte, 9)); !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("Put(big) error = %v", err)
	}
}

func TestMemoryPrune(t *testing.T) {
	c := NewMemory(100)
	_ = c.Put("old", []byte("x"))
	time.Sleep(20 * time.Millisecond)
	_ = c.Put("new", []byte("y"))

	if n := c.Prune(10 * time.Millisecond); n != 1 {
		t.Errorf("Prune = %d, want 1", n)
	}
	if _, ok := c.Get("new"); !ok {
		t.Error("fresh entry pruned")
	}
}

func TestMemoryConcurrentAccess(t *testing.T) {
	c := NewMemory(1 << 16)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := string(rune('a' + (i+j)%26))
				_ = c.Put(key, []byte{byte(j)})
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
	if s := c.Stats(); s.Items > 26 {
		t.Errorf("Items = %d", s.Items)
	}
}

type countingSynth struct {
	calls int
	err   error
}

func (s *countingSynth) Synthesize(_ context.Context, text, voiceID, _ string) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte(voiceID + ":" + text), nil
}

func TestCachingSynthesizer(t *testing.T) {
	next := &countingSynth{}
	s := NewSynthesizer(next, NewMemory(1024), "model", nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		data, err := s.Synthesize(ctx, "Hello.", "v1", "key")
		if err != nil || string(data) != "v1:Hello." {
			t.Fatalf("Synthesize = %q, %v", data, err)
		}
	}
	if next.calls != 1 {
		t.Errorf("calls = %d, want 1", next.calls)
	}

	if _, err := s.Synthesize(ctx, "Hello.", "v2", "key"); err != nil {
		t.Fatal(err)
	}
	if next.calls != 2 {
		t.Errorf("other voice served from cache")
	}
	if st := s.Stats(); st.Hits != 2 || st.Items != 2 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestCachingSynthesizerExpire(t *testing.T) {
	next := &countingSynth{}
	s := NewSynthesizer(next, NewMemory(1024), "model", nil)
	ctx, cancel := context.WithCancel(context.Background())

	if _, err := s.Synthesize(ctx, "Hello.", "v1", "key"); err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		s.Expire(ctx, time.Millisecond, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for s.Stats().Items != 0 {
		if time.Now().After(deadline) {
			t.Fatal("entry never expired")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	if _, err := s.Synthesize(context.Background(), "Hello.", "v1", "key"); err != nil {
		t.Fatal(err)
	}
	if next.calls != 2 {
		t.Errorf("calls = %d, want 2 after expiry", next.calls)
	}
}

func TestCachingSynthesizerSkipsFailures(t *testing.T) {
	next := &countingSynth{err: errors.New("API 500")}
	s := NewSynthesizer(next, NewMemory(1024), "model", nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := s.Synthesize(ctx, "Hello.", "v1", "key"); err == nil {
			t.Fatal("Synthesize error = nil")
		}
	}
	if next.calls != 2 {
		t.Errorf("calls = %d, want 2", next.calls)
	}
}

func TestKey(t *testing.T) {
	if Key("m", "v", "t") == Key("m", "vt", "") {
		t.Error("keys collide across field boundaries")
	}
	if Key("m", "v", "t") != Key("m", "v", "t") {
		t.Error("key not deterministic")
	}
}
