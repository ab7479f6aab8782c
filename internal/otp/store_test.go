package otp

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintProducesSixDigitCode(t *testing.T) {
	s := NewStore()
	for i := 0; i < 200; i++ {
		code, err := s.Mint(uint64(i), time.Minute)
		require.NoError(t, err)
		require.Len(t, code, 6)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
	assert.Equal(t, 200, s.Len())
}

func TestVerifyConsumeHappyPath(t *testing.T) {
	s := NewStore()
	code, err := s.Mint(7, time.Minute)
	require.NoError(t, err)

	ok, reason := s.VerifyConsume(7, code)
	assert.True(t, ok)
	assert.Equal(t, ReasonOK, reason)

	// consumed: the same code must not verify twice
	ok, reason = s.VerifyConsume(7, code)
	assert.False(t, ok)
	assert.Equal(t, ReasonNotFound, reason)
}

func TestVerifyConsumeMismatchKeepsEntry(t *testing.T) {
	s := NewStore()
	code, err := s.Mint(7, time.Minute)
	require.NoError(t, err)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	ok, reason := s.VerifyConsume(7, wrong)
	assert.False(t, ok)
	assert.Equal(t, ReasonMismatch, reason)

	// a wrong guess must not burn the real code
	ok, reason = s.VerifyConsume(7, code)
	assert.True(t, ok)
	assert.Equal(t, ReasonOK, reason)
}

func TestVerifyConsumeExpired(t *testing.T) {
	s := NewStore()
	code, err := s.Mint(7, -time.Second)
	require.NoError(t, err)

	ok, reason := s.VerifyConsume(7, code)
	assert.False(t, ok)
	assert.Equal(t, ReasonExpired, reason)
	assert.Equal(t, 0, s.Len())
}

func TestVerifyConsumeUnknownAppointment(t *testing.T) {
	s := NewStore()
	ok, reason := s.VerifyConsume(99, "123456")
	assert.False(t, ok)
	assert.Equal(t, ReasonNotFound, reason)
}

// Two concurrent confirmations racing on the same valid code: exactly one
// may win.  This is the compare-and-delete property the booking flow
// relies on.
func TestVerifyConsumeIsSingleUseUnderConcurrency(t *testing.T) {
	s := NewStore()
	code, err := s.Mint(42, time.Minute)
	require.NoError(t, err)

	const workers = 32
	var wg sync.WaitGroup
	wins := make(chan struct{}, workers)
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if ok, _ := s.VerifyConsume(42, code); ok {
				wins <- struct{}{}
			}
		}()
	}
	close(start)
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestSweepExpired(t *testing.T) {
	s := NewStore()
	_, err := s.Mint(1, time.Minute)
	require.NoError(t, err)
	_, err = s.Mint(2, -time.Minute)
	require.NoError(t, err)
	_, err = s.Mint(3, -time.Minute)
	require.NoError(t, err)

	evicted := s.SweepExpired(time.Now().UTC())
	assert.ElementsMatch(t, []uint64{2, 3}, evicted)
	assert.Equal(t, 1, s.Len())
}

func TestEvict(t *testing.T) {
	s := NewStore()
	_, err := s.Mint(5, time.Minute)
	require.NoError(t, err)
	s.Evict(5)
	s.Evict(5) // idempotent
	assert.Equal(t, 0, s.Len())
}
