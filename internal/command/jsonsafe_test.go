package command

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/models"
)

func TestCheckJSONSafeAcceptsPlainTrees(t *testing.T) {
	ok := []any{
		nil,
		"text",
		42,
		3.14,
		true,
		[]string{"a", "b"},
		map[string]any{"nested": map[string]any{"n": 1}},
		models.PageEntry{ID: "p", TargetSize: &models.PageSize{Width: 1, Height: 2}},
		addPagesPayload{SourceFile: models.SourceFile{ID: "s"}, Pages: []models.PageEntry{{ID: "p"}}},
	}
	for _, v := range ok {
		if err := CheckJSONSafe(v); err != nil {
			t.Errorf("CheckJSONSafe(%#v) = %v, want nil", v, err)
		}
	}
}

func TestCheckJSONSafeRejections(t *testing.T) {
	cases := []struct {
		name   string
		value  any
		reason string
	}{
		{"time value", time.Now(), "time.Time"},
		{"nested time", struct{ When time.Time }{time.Now()}, "time.Time"},
		{"binary buffer", []byte{1, 2, 3}, "binary buffer"},
		{"nested buffer", map[string]any{"data": []byte("x")}, "binary buffer"},
		{"int-keyed map", map[int]string{1: "a"}, "non-string keys"},
		{"channel", make(chan int), "chan"},
		{"func", func() {}, "func"},
		{"nan", math.NaN(), "non-finite"},
		{"inf", math.Inf(1), "non-finite"},
		{"nested inf", []any{1.0, math.Inf(-1)}, "non-finite"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckJSONSafe(tc.value)
			if err == nil {
				t.Fatalf("CheckJSONSafe(%#v) = nil, want error", tc.value)
			}
			if !errors.Is(err, ErrUnsafePayload) {
				t.Fatalf("error %v does not match ErrUnsafePayload", err)
			}
			if !strings.Contains(err.Error(), tc.reason) {
				t.Fatalf("error %q does not mention %q", err.Error(), tc.reason)
			}
		})
	}
}

func TestUnsafePayloadErrorReportsPath(t *testing.T) {
	payload := map[string]any{"outer": []any{map[string]any{"when": time.Now()}}}
	err := CheckJSONSafe(payload)
	if err == nil {
		t.Fatal("expected error")
	}
	var ue *UnsafePayloadError
	if !errors.As(err, &ue) {
		t.Fatalf("error %T is not *UnsafePayloadError", err)
	}
	if ue.Path != "$.outer[0].when" {
		t.Fatalf("path = %q, want $.outer[0].when", ue.Path)
	}
}

func TestSerializeFailsLoudlyOnUnsafePayload(t *testing.T) {
	_, err := serializePayload(TypeAddPages, 0, struct {
		Stamp time.Time `json:"stamp"`
	}{time.Now()})
	if !errors.Is(err, ErrUnsafePayload) {
		t.Fatalf("serializePayload error = %v, want ErrUnsafePayload", err)
	}
}

func TestSerializePayloadDeepCopies(t *testing.T) {
	pages := []models.PageEntry{{ID: "p1", SourceFileID: "s1"}}
	sc, err := serializePayload(TypeAddPages, 123, addPagesPayload{
		SourceFile: models.SourceFile{ID: "s1"},
		Pages:      pages,
	})
	if err != nil {
		t.Fatal(err)
	}
	if sc.Version != CurrentVersion || sc.Type != string(TypeAddPages) || sc.Timestamp != 123 {
		t.Fatalf("envelope = %+v", sc)
	}

	// Mutating the live objects must not reach the serialized tree.
	pages[0].SourceFileID = "tampered"
	got := sc.Payload["pages"].([]any)[0].(map[string]any)["sourceFileId"]
	if got != "s1" {
		t.Fatalf("serialized tree shares state with live payload: %v", got)
	}
}
