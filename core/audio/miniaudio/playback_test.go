package miniaudio

import (
	"bytes"
	"testing"

	"github.com/voxloop/vox-core/core/audio"
)

func TestProcessAudioDrainsQueueAndSilencesTail(t *testing.T) {
	p := &playbackDevice{queued: []byte{1, 2, 3}}
	proc := p.processAudio(2)

	out := bytes.Repeat([]byte{0xAA}, 8)
	proc(out, nil, 4)

	if !bytes.Equal(out[:3], []byte{1, 2, 3}) {
		t.Fatalf("expected queued bytes at the head of the period, got %v", out)
	}

	silence := audio.GetDefaultEncodingInfo().SilenceValue()
	for i := 3; i < len(out); i++ {
		if out[i] != silence {
			t.Fatalf("expected silence fill past the queue, got %v", out)
		}
	}
	if len(p.queued) != 0 {
		t.Fatalf("expected the queue to be drained, got %v", p.queued)
	}
}

func TestProcessAudioReleasesDrainWaitersInPositionOrder(t *testing.T) {
	first := make(chan struct{})
	second := make(chan struct{})
	p := &playbackDevice{
		queued: []byte{1, 2, 3, 4, 5, 6},
		waiters: []drainWaiter{
			{position: 4, done: first},
			{position: 6, done: second},
		},
	}
	proc := p.processAudio(2)

	proc(make([]byte, 4), nil, 2)
	select {
	case <-first:
	default:
		t.Fatalf("expected the first waiter to be released once its position was consumed")
	}
	select {
	case <-second:
		t.Fatalf("second waiter released before its audio played")
	default:
	}

	proc(make([]byte, 4), nil, 2)
	select {
	case <-second:
	default:
		t.Fatalf("expected the second waiter to be released after the queue drained")
	}
}
