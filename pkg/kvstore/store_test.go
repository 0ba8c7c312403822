package kvstore_test

import (
	"encoding/binary"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josenovais97/distributed-systems/pkg/kvstore"
)

func TestPutGet(t *testing.T) {
	t.Parallel()
	st := kvstore.New()

	st.Put("a", []byte{1, 2, 3})
	v, ok := st.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, v)

	st.Put("a", []byte{4})
	v, ok = st.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte{4}, v, "last write wins")
}

func TestGet_AbsenceIsNotEmptyValue(t *testing.T) {
	t.Parallel()
	st := kvstore.New()

	v, ok := st.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, v)

	st.Put("empty", nil)
	v, ok = st.Get("empty")
	assert.True(t, ok)
	assert.NotNil(t, v)
	assert.Empty(t, v)
}

func TestMultiPutMultiGet(t *testing.T) {
	t.Parallel()
	st := kvstore.New()

	st.MultiPut(map[string][]byte{"x": {9}, "y": {8}})
	got := st.MultiGet([]string{"x", "y", "z"})
	assert.Equal(t, map[string][]byte{"x": {9}, "y": {8}}, got)
	assert.Equal(t, 2, st.Len())
}

func TestMultiPut_EmptyBatch(t *testing.T) {
	t.Parallel()
	st := kvstore.New()
	st.MultiPut(nil)
	st.MultiPut(map[string][]byte{})
	assert.Zero(t, st.Len())
}

func TestMultiGet_Empty(t *testing.T) {
	t.Parallel()
	st := kvstore.New()
	st.Put("a", []byte("1"))

	got := st.MultiGet(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	assert.Empty(t, st.MultiGet([]string{"nope"}))
}

func TestMultiGet_DuplicateKeys(t *testing.T) {
	t.Parallel()
	st := kvstore.New()
	st.Put("a", []byte("1"))
	assert.Equal(t, map[string][]byte{"a": []byte("1")}, st.MultiGet([]string{"a", "a"}))
}

func TestStore_CopiesValues(t *testing.T) {
	t.Parallel()
	st := kvstore.New()

	in := []byte("abc")
	st.Put("k", in)
	in[0] = 'X'

	out, _ := st.Get("k")
	assert.Equal(t, []byte("abc"), out)
	out[1] = 'Y'

	again, _ := st.Get("k")
	assert.Equal(t, []byte("abc"), again)

	batch := map[string][]byte{"m": []byte("mm")}
	st.MultiPut(batch)
	batch["m"][0] = 'Z'
	res := st.MultiGet([]string{"m"})
	assert.Equal(t, []byte("mm"), res["m"])
	res["m"][0] = 'Q'
	res = st.MultiGet([]string{"m"})
	assert.Equal(t, []byte("mm"), res["m"])
}

func TestMultiPut_DisjointConcurrentBatches(t *testing.T) {
	t.Parallel()
	st := kvstore.New()

	var wg sync.WaitGroup
	for _, prefix := range []string{"left", "right"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			batch := make(map[string][]byte)
			for i := range 50 {
				batch[fmt.Sprintf("%s-%d", prefix, i)] = []byte(prefix)
			}
			st.MultiPut(batch)
		}()
	}
	wg.Wait()

	keys := make([]string, 0, 100)
	for _, prefix := range []string{"left", "right"} {
		for i := range 50 {
			keys = append(keys, fmt.Sprintf("%s-%d", prefix, i))
		}
	}
	assert.Len(t, st.MultiGet(keys), 100)
}

func encode(n uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, n)
}

func TestMultiPut_AtomicUnderConcurrentReads(t *testing.T) {
	t.Parallel()
	const rounds = 500
	st := kvstore.New()
	keys := []string{"a", "b", "c", "d"}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := uint64(1); i <= rounds; i++ {
			batch := make(map[string][]byte, len(keys))
			for _, k := range keys {
				batch[k] = encode(i)
			}
			st.MultiPut(batch)
		}
	}()

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				got := st.MultiGet(keys)
				if len(got) == 0 {
					continue
				}
				if !assert.Len(t, got, len(keys), "partial batch visible") {
					return
				}
				first := got[keys[0]]
				for _, k := range keys[1:] {
					if !assert.Equal(t, first, got[k], "torn batch") {
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	final := st.MultiGet(keys)
	for _, k := range keys {
		assert.Equal(t, encode(rounds), final[k])
	}
}

func TestMultiGet_SnapshotWithConcurrentPut(t *testing.T) {
	t.Parallel()
	st := kvstore.New()
	st.MultiPut(map[string][]byte{"k1": encode(0), "k2": []byte("fixed")})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := uint64(1); i <= 500; i++ {
			st.Put("k1", encode(i))
		}
	}()

	var last uint64
	for {
		got := st.MultiGet([]string{"k1", "k2"})
		require.Len(t, got, 2)
		assert.Equal(t, []byte("fixed"), got["k2"])
		cur := binary.BigEndian.Uint64(got["k1"])
		assert.GreaterOrEqual(t, cur, last, "k1 went backwards")
		last = cur

		select {
		case <-done:
			return
		default:
		}
	}
}
