package iocontext

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestDefaultIO(t *testing.T) {
	streams := DefaultIO()
	if streams.Out == nil || streams.ErrOut == nil || streams.In == nil {
		t.Error("DefaultIO should return non-nil streams")
	}
}

func TestWithIO(t *testing.T) {
	out := &bytes.Buffer{}
	ctx := WithIO(context.Background(), &IO{Out: out, ErrOut: &bytes.Buffer{}})

	if got := GetIO(ctx); got.Out != out {
		t.Error("GetIO should return the IO set with WithIO")
	}
	if GetIO(context.Background()) == nil {
		t.Error("GetIO should return default IO when not set")
	}
}

func TestTerminalDetection(t *testing.T) {
	streams := &IO{Out: &bytes.Buffer{}, In: strings.NewReader("data")}
	if streams.OutIsTerminal() {
		t.Error("a buffer is not a terminal")
	}
	if !streams.InIsPiped() {
		t.Error("a reader should count as piped input")
	}
	if (&IO{}).InIsPiped() {
		t.Error("nil input is not piped")
	}
}
