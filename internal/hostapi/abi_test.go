package hostapi

import (
	"encoding/json"
	"testing"

	"github.com/flagkit/flagkit/internal/flagstore"
	"github.com/flagkit/flagkit/internal/pool"
)

func newTestHost(t *testing.T) *Host {
	t.Helper()
	shell := pool.New(flagstore.New(nil), 2)
	return NewHost(shell)
}

func (h *Host) writeString(t *testing.T, s string) uint64 {
	t.Helper()
	offset, err := h.Alloc(len(s))
	if err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}
	if err := h.Write(offset, []byte(s)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return PackPtrLen(uint32(offset), uint32(len(s)))
}

func (h *Host) readResponse(t *testing.T, packed uint64, out any) {
	t.Helper()
	ptr, length := UnpackPtrLen(packed)
	payload, err := h.Read(int(ptr), int(length))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		t.Fatalf("unmarshal response: %v (raw=%s)", err, payload)
	}
}

func TestHostUpdateStateAndEvaluate(t *testing.T) {
	h := newTestHost(t)

	flagSet := `{"flags":{"welcome-banner":{"state":"ENABLED","defaultVariant":"on","variants":{"on":true,"off":false}}}}`
	updatePacked := h.UpdateState(h.writeString(t, flagSet))

	var updateResp updateStateResponse
	h.readResponse(t, updatePacked, &updateResp)
	if updateResp.Error != "" {
		t.Fatalf("UpdateState() returned error: %s", updateResp.Error)
	}
	if updateResp.Generation == 0 {
		t.Fatalf("UpdateState() generation = 0, want nonzero")
	}

	evalPacked := h.Evaluate(h.writeString(t, "welcome-banner"), h.writeString(t, `{}`))
	var evalResp evaluateResponse
	h.readResponse(t, evalPacked, &evalResp)
	if evalResp.Error != "" {
		t.Fatalf("Evaluate() returned error: %s", evalResp.Error)
	}
	if evalResp.Reason != flagstore.ReasonStatic || evalResp.Value != true {
		t.Fatalf("Evaluate() = %+v, want STATIC/true", evalResp)
	}
}

func TestHostUpdateStateMalformedJSON(t *testing.T) {
	h := newTestHost(t)

	packed := h.UpdateState(h.writeString(t, `not json`))
	var resp updateStateResponse
	h.readResponse(t, packed, &resp)
	if resp.Error == "" {
		t.Fatalf("UpdateState() with malformed JSON should report an error in-band, not panic")
	}
}

func TestHostEvaluateLogicRoundTrip(t *testing.T) {
	h := newTestHost(t)

	rulePacked := h.writeString(t, `{"+": [1, 2]}`)
	dataPacked := h.writeString(t, `{}`)

	packed := h.EvaluateLogic(rulePacked, dataPacked)
	var resp evaluateLogicResponse
	h.readResponse(t, packed, &resp)
	if resp.Error != "" {
		t.Fatalf("EvaluateLogic() returned error: %s", resp.Error)
	}
	if resp.Value != 3.0 {
		t.Fatalf("EvaluateLogic() = %#v, want 3", resp.Value)
	}
}

func TestHostDeallocReleasesArenaSpace(t *testing.T) {
	h := newTestHost(t)

	packed := h.writeString(t, "hello")
	sizeBefore := len(h.arena.buf)

	h.Dealloc(packed)
	offset, err := h.Alloc(5)
	if err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}

	if len(h.arena.buf) > sizeBefore {
		t.Fatalf("Alloc() after Dealloc() grew the arena instead of reusing freed space")
	}
	_ = offset
}

func TestArenaReadWriteOutOfBounds(t *testing.T) {
	a := NewArena()
	offset, err := a.Alloc(4)
	if err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}
	if err := a.Write(offset, []byte("toolong!")); err == nil {
		t.Fatalf("Write() should reject a write past the allocated region")
	}
	if _, err := a.Read(offset, 100); err == nil {
		t.Fatalf("Read() should reject a read past the arena")
	}
}

func TestPackUnpackPtrLenRoundTrip(t *testing.T) {
	packed := PackPtrLen(12345, 678)
	ptr, length := UnpackPtrLen(packed)
	if ptr != 12345 || length != 678 {
		t.Fatalf("UnpackPtrLen(PackPtrLen(12345, 678)) = (%d, %d)", ptr, length)
	}
}
