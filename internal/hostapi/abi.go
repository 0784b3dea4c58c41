package hostapi

import (
	"encoding/json"

	"github.com/flagkit/flagkit/internal/flagstore"
	"github.com/flagkit/flagkit/internal/jsonvalue"
	"github.com/flagkit/flagkit/internal/pool"
)

// Host exposes a pool.Shell through the packed-pointer ABI: every call
// takes its arguments as packed (ptr<<32)|len values into the shared
// Arena and returns a packed pointer/length to a JSON-encoded response,
// never a Go error value — across a sandbox boundary, failures have to be
// data, not panics or multi-value returns.
type Host struct {
	arena *Arena
	shell *pool.Shell
}

// NewHost creates a Host backed by shell, with its own private Arena.
func NewHost(shell *pool.Shell) *Host {
	return &Host{arena: NewArena(), shell: shell}
}

// Alloc reserves n bytes in the arena for the guest to write request
// payloads into, returning the offset.
func (h *Host) Alloc(n int) (int, error) {
	return h.arena.Alloc(n)
}

// Write copies data into the arena at offset.
func (h *Host) Write(offset int, data []byte) error {
	return h.arena.Write(offset, data)
}

// Read returns the length bytes at offset, typically used to pull a
// response payload back out after a call returns its packed pointer.
func (h *Host) Read(offset, length int) ([]byte, error) {
	return h.arena.Read(offset, length)
}

// Dealloc releases a region of the arena, typically a prior call's
// response buffer once the guest has finished reading it.
func (h *Host) Dealloc(packed uint64) {
	ptr, length := UnpackPtrLen(packed)
	h.arena.Dealloc(int(ptr), int(length))
}

type updateStateResponse struct {
	Generation  uint64                     `json:"generation"`
	ChangedKeys []string                   `json:"changedKeys,omitempty"`
	Errors      []flagstore.ValidationError `json:"errors,omitempty"`
	Error       string                     `json:"error,omitempty"`
}

// UpdateState reads a RawFlagSet JSON document from the arena region
// described by packed, applies it to the shell, and returns a packed
// pointer to a JSON-encoded updateStateResponse.
func (h *Host) UpdateState(packed uint64) uint64 {
	payload, err := h.readPacked(packed)
	if err != nil {
		return h.mustWriteJSON(updateStateResponse{Error: err.Error()})
	}

	raw, err := flagstore.ParseRawFlagSet(payload)
	if err != nil {
		return h.mustWriteJSON(updateStateResponse{Error: "parse flag set: " + err.Error()})
	}

	result, err := h.shell.UpdateState(raw)
	resp := updateStateResponse{Generation: result.Generation, ChangedKeys: result.ChangedKeys, Errors: result.Errors}
	if err != nil {
		resp.Error = err.Error()
	}
	return h.mustWriteJSON(resp)
}

type evaluateResponse struct {
	flagstore.EvaluationResult
	Error string `json:"error,omitempty"`
}

// Evaluate reads a flag key and a JSON evaluation context from the arena
// (either may be a zero-length region, meaning "absent") and returns a
// packed pointer to a JSON-encoded EvaluationResult.
func (h *Host) Evaluate(flagKeyPacked, contextPacked uint64) uint64 {
	flagKeyBytes, err := h.readPacked(flagKeyPacked)
	if err != nil {
		return h.mustWriteJSON(evaluateResponse{Error: err.Error()})
	}

	ctx, err := h.readContext(contextPacked)
	if err != nil {
		return h.mustWriteJSON(evaluateResponse{Error: err.Error()})
	}

	result := h.shell.Evaluate(string(flagKeyBytes), ctx)
	return h.mustWriteJSON(evaluateResponse{EvaluationResult: result})
}

// EvaluateByIndex is Evaluate's fast path for a guest that already knows a
// flag's stable index within the current snapshot.
func (h *Host) EvaluateByIndex(index uint32, contextPacked uint64) uint64 {
	ctx, err := h.readContext(contextPacked)
	if err != nil {
		return h.mustWriteJSON(evaluateResponse{Error: err.Error()})
	}

	result := h.shell.EvaluateByIndex(int(index), ctx)
	return h.mustWriteJSON(evaluateResponse{EvaluationResult: result})
}

type evaluateLogicResponse struct {
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// EvaluateLogic runs an arbitrary JSON-Logic rule against arbitrary JSON
// data, both read from the arena, bypassing the flag store entirely.
func (h *Host) EvaluateLogic(rulePacked, dataPacked uint64) uint64 {
	ruleBytes, err := h.readPacked(rulePacked)
	if err != nil {
		return h.mustWriteJSON(evaluateLogicResponse{Error: err.Error()})
	}
	var rule any
	if err := json.Unmarshal(ruleBytes, &rule); err != nil {
		return h.mustWriteJSON(evaluateLogicResponse{Error: "parse rule: " + err.Error()})
	}

	var data any
	if dataBytes, err := h.readPacked(dataPacked); err == nil && len(dataBytes) > 0 {
		if err := json.Unmarshal(dataBytes, &data); err != nil {
			return h.mustWriteJSON(evaluateLogicResponse{Error: "parse data: " + err.Error()})
		}
	}

	result, err := h.shell.EvaluateLogic(rule, data)
	if err != nil {
		return h.mustWriteJSON(evaluateLogicResponse{Error: err.Error()})
	}
	return h.mustWriteJSON(evaluateLogicResponse{Value: result})
}

// ValidationMode selects UpdateState's tolerance for per-flag errors,
// mirroring flagstore.ValidationMode across the boundary as a plain int.
type ValidationMode uint32

const (
	ValidationModeStrict     ValidationMode = 0
	ValidationModePermissive ValidationMode = 1
)

// SetValidationMode changes how future UpdateState calls treat per-flag
// validation failures.
func (h *Host) SetValidationMode(mode ValidationMode) {
	if mode == ValidationModePermissive {
		h.shell.SetValidationMode(flagstore.ValidationPermissive)
		return
	}
	h.shell.SetValidationMode(flagstore.ValidationStrict)
}

func (h *Host) readPacked(packed uint64) ([]byte, error) {
	ptr, length := UnpackPtrLen(packed)
	if length == 0 {
		return nil, nil
	}
	return h.arena.Read(int(ptr), int(length))
}

func (h *Host) readContext(packed uint64) (jsonvalue.Context, error) {
	payload, err := h.readPacked(packed)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, nil
	}
	var ctx jsonvalue.Context
	if err := json.Unmarshal(payload, &ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}

func (h *Host) mustWriteJSON(v any) uint64 {
	payload, err := json.Marshal(v)
	if err != nil {
		// Marshaling our own response structs cannot fail; if it somehow
		// does, surface an empty region rather than panicking across the
		// boundary.
		return 0
	}
	offset, err := h.arena.Alloc(len(payload))
	if err != nil {
		return 0
	}
	if err := h.arena.Write(offset, payload); err != nil {
		return 0
	}
	return PackPtrLen(uint32(offset), uint32(len(payload)))
}
