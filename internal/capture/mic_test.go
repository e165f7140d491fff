package capture

import "testing"

func TestMicDevice_StartDropsLeftoverPCM(t *testing.T) {
	m := NewMicDevice()
	m.mu.Lock()
	m.buf = append(m.buf, 1, 2, 3)
	m.mu.Unlock()

	if err := m.Start(); err == nil {
		pcm, _ := m.Stop()
		if len(pcm) >= 3 && pcm[0] == 1 && pcm[1] == 2 && pcm[2] == 3 {
			t.Fatalf("leftover PCM from an earlier capture leaked into the new recording")
		}
		return
	}

	// No capture device available: the leftover must already be gone,
	// since the buffer is cleared before the device is touched.
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.buf) != 0 {
		t.Fatalf("Start must clear leftover PCM before acquiring the device, got %d bytes", len(m.buf))
	}
}

func TestMicDevice_StopWithoutStart(t *testing.T) {
	m := NewMicDevice()
	pcm, err := m.Stop()
	if err != nil {
		t.Fatalf("stop without start: %v", err)
	}
	if len(pcm) != 0 {
		t.Fatalf("expected no accumulated audio, got %d bytes", len(pcm))
	}
}
