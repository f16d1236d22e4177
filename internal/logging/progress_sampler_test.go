package logging

import "testing"

func TestProgressSamplerBuckets(t *testing.T) {
	sampler := NewProgressSampler(5)
	if !sampler.ShouldLog(0, "encode") {
		t.Fatal("first event should log")
	}
	if sampler.ShouldLog(2, "encode") {
		t.Fatal("same bucket should be suppressed")
	}
	if !sampler.ShouldLog(5.1, "encode") {
		t.Fatal("crossing a bucket boundary should log")
	}
	if !sampler.ShouldLog(100, "encode") {
		t.Fatal("completion should log")
	}
}

func TestProgressSamplerStageChange(t *testing.T) {
	sampler := NewProgressSampler(5)
	sampler.ShouldLog(42, "decode")
	if !sampler.ShouldLog(42, "encode") {
		t.Fatal("stage change should log even within bucket")
	}
	sampler.Reset()
	if !sampler.ShouldLog(42, "encode") {
		t.Fatal("reset should clear suppression state")
	}
}

func TestProgressSamplerUnknownPercent(t *testing.T) {
	sampler := NewProgressSampler(5)
	if !sampler.ShouldLog(-1, "probe") {
		t.Fatal("stage transition should log with unknown percent")
	}
	if sampler.ShouldLog(-1, "probe") {
		t.Fatal("repeat unknown-percent event should be suppressed")
	}
}
