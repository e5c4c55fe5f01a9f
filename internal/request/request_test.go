package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/go-diskdrv/internal/geometry"
)

func validRequest() Request {
	return Request{Op: OpRead, ID: 1, Block: 10, Size: 1024, Buffer: 0x1000}
}

func TestValidateSingleRules(t *testing.T) {
	g := geometry.Default()

	tests := []struct {
		name   string
		mutate func(*Request)
		want   int
	}{
		{"valid", func(r *Request) {}, 0},
		{"bad operation", func(r *Request) { r.Op = 3 }, -1},
		{"zero operation", func(r *Request) { r.Op = OpNone }, -1},
		{"zero id", func(r *Request) { r.ID = 0 }, -2},
		{"negative id", func(r *Request) { r.ID = -7 }, -2},
		{"block zero", func(r *Request) { r.Block = 0 }, -4},
		{"block past end", func(r *Request) { r.Block = 361 }, -4},
		{"odd size", func(r *Request) { r.Size = 3 }, -8},
		{"negative size", func(r *Request) { r.Size = -2 }, -8},
		{"size over cylinder", func(r *Request) { r.Size = g.CylinderBytes() + 2 }, -8},
		{"size exactly cylinder", func(r *Request) { r.Size = g.CylinderBytes() }, 0},
		{"zero size", func(r *Request) { r.Size = 0 }, 0},
		{"nil buffer", func(r *Request) { r.Buffer = 0 }, -16},
		{"negative buffer", func(r *Request) { r.Buffer = -1 }, -16},
		{"write", func(r *Request) { r.Op = OpWrite }, 0},
		{"last block", func(r *Request) { r.Block = 360 }, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			assert.Equal(t, tt.want, Validate(req, g).Code())
		})
	}
}

func TestValidateAdditivity(t *testing.T) {
	g := geometry.Default()
	breakers := []struct {
		rule  Violation
		apply func(*Request)
	}{
		{ViolationOperation, func(r *Request) { r.Op = 9 }},
		{ViolationRequestID, func(r *Request) { r.ID = -1 }},
		{ViolationBlockRange, func(r *Request) { r.Block = 1000 }},
		{ViolationBlockSize, func(r *Request) { r.Size = 7 }},
		{ViolationBuffer, func(r *Request) { r.Buffer = -5 }},
	}

	for mask := 0; mask < 1<<len(breakers); mask++ {
		req := validRequest()
		want := 0
		for i, b := range breakers {
			if mask&(1<<i) != 0 {
				b.apply(&req)
				want -= int(b.rule)
			}
		}
		v := Validate(req, g)
		require.Equal(t, want, v.Code(), "mask %05b", mask)
		require.Equal(t, v, DecodeCode(want), "mask %05b", mask)
	}
}

func TestValidationScenario(t *testing.T) {
	req := Request{Op: OpWrite, ID: -1, Block: 20, Size: 3, Buffer: 0x2000}
	v := Validate(req, geometry.Default())
	assert.Equal(t, -10, v.Code())
	assert.True(t, v.Has(ViolationRequestID))
	assert.True(t, v.Has(ViolationBlockSize))
	assert.False(t, v.Has(ViolationBuffer))
	assert.Equal(t, "request id,block size", v.String())
}

func TestMessages(t *testing.T) {
	req := Request{Op: OpRead, ID: 4, Block: 12, Size: 512, Buffer: 0x40}

	ok := Completed(req)
	assert.Equal(t, Message{Op: 0, ID: 4, Buffer: 0x40, Block: 12, Size: 512}, ok)
	assert.False(t, ok.Idle())
	assert.False(t, ok.Failed())

	bad := Rejected(req, Violations(0).Add(ViolationBlockRange).Add(ViolationBuffer))
	assert.Equal(t, -20, bad.Op)
	assert.True(t, bad.Failed())
	assert.Equal(t, []Violation{ViolationBlockRange, ViolationBuffer}, bad.Violations().Rules())

	idle := IdleMessage()
	assert.True(t, idle.Idle())
	assert.True(t, idle.Violations().Valid())
	assert.Equal(t, "valid", idle.Violations().String())
}

func TestOperationString(t *testing.T) {
	assert.Equal(t, "READ", OpRead.String())
	assert.Equal(t, "WRITE", OpWrite.String())
	assert.Equal(t, "OP_5", Operation(5).String())
}
