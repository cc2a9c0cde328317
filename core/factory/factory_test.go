package factory

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kilianp07/caribou/core/model"
)

type sample struct {
	A    int
	Name string
}

type sampleConf struct {
	A    int    `json:"a"`
	Name string `json:"name"`
}

func sampleFactory(conf map[string]any) (*sample, error) {
	var c sampleConf
	if err := Decode(conf, &c); err != nil {
		return nil, err
	}
	return &sample{A: c.A, Name: c.Name}, nil
}

// Test registry registration and instantiation using Decode.
func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*sample]()
	if err := reg.Register("s", sampleFactory); err != nil {
		t.Fatalf("register: %v", err)
	}
	inst, err := reg.Create(ModuleConfig{Type: "s", Conf: map[string]any{"a": 3, "name": "x"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inst.A != 3 || inst.Name != "x" {
		t.Fatalf("unexpected instance %+v", inst)
	}
}

// Environment overrides arrive as strings.
func TestDecode_WeakTypes(t *testing.T) {
	var c sampleConf
	if err := Decode(map[string]any{"a": "42"}, &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.A != 42 {
		t.Fatalf("expected 42 got %d", c.A)
	}
}

// Test duplicate registration and unknown type errors.
func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[int]()
	if err := reg.Register("x", func(map[string]any) (int, error) { return 1, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("x", func(map[string]any) (int, error) { return 2, nil }); err == nil {
		t.Fatal("expected duplicate error")
	}
	if err := reg.Register("z", nil); err == nil {
		t.Fatal("expected nil factory error")
	}
	_, err := reg.Create(ModuleConfig{Type: "y"})
	if err == nil {
		t.Fatal("expected unknown type error")
	}
	if !strings.Contains(err.Error(), "known: x") {
		t.Fatalf("expected known types in error, got %v", err)
	}
}

func TestDecode_DurationsAndUnknownKeys(t *testing.T) {
	var c struct {
		Timeout time.Duration `json:"timeout"`
		Tags    []string      `json:"tags"`
	}
	if err := Decode(map[string]any{"timeout": "1500ms", "tags": "a,b"}, &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Timeout != 1500*time.Millisecond || len(c.Tags) != 2 {
		t.Fatalf("unexpected %+v", c)
	}
	err := Decode(map[string]any{"timout": "1s"}, &c)
	if !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected configuration error for a misspelt key, got %v", err)
	}
}

func TestRegistry_CreateAll(t *testing.T) {
	reg := NewRegistry[*sample]()
	if err := reg.Register("s", sampleFactory); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !reg.Has("s") || reg.Has("t") {
		t.Fatalf("unexpected Has results")
	}
	got, err := reg.CreateAll([]ModuleConfig{{Type: "s", Conf: map[string]any{"a": 1}}, {Type: "s", Conf: map[string]any{"a": 2}}})
	if err != nil || len(got) != 2 || got[1].A != 2 {
		t.Fatalf("create all: %v %+v", err, got)
	}

	got, err = reg.CreateAll([]ModuleConfig{{Type: "s"}, {Type: "t"}})
	if !errors.Is(err, ErrUnknownType) || !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected unknown type error, got %v", err)
	}
	if !strings.Contains(err.Error(), "module 1") || len(got) != 1 {
		t.Fatalf("expected failure at index 1, got %v with %d built", err, len(got))
	}

	if err := reg.Register("s", sampleFactory); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if err := reg.Register("", sampleFactory); err == nil {
		t.Fatal("expected empty name error")
	}
}
