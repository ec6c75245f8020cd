package session

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestOneShotGateFiresOnce(t *testing.T) {
	gate := oneShotGate{}

	if !gate.Fire() {
		t.Fatalf("first fire must win")
	}
	if gate.Fire() {
		t.Fatalf("second fire must lose")
	}
	if !gate.Fired() {
		t.Fatalf("gate must report fired")
	}
}

func TestOneShotGateResetRearms(t *testing.T) {
	gate := oneShotGate{}
	gate.Fire()
	gate.Reset()

	if gate.Fired() {
		t.Fatalf("reset gate must report unfired")
	}
	if !gate.Fire() {
		t.Fatalf("reset gate must fire again")
	}
}

func TestOneShotGateSingleWinnerUnderContention(t *testing.T) {
	gate := oneShotGate{}
	wins := atomic.Int32{}

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if gate.Fire() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Fatalf("expected exactly one winner, got %d", got)
	}
}
