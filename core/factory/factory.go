package factory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/kilianp07/caribou/core/model"
)

var (
	// ErrUnknownType is returned by Create for a type with no factory. It
	// matches model.ErrConfiguration.
	ErrUnknownType = fmt.Errorf("%w: unknown module type", model.ErrConfiguration)
	// ErrDuplicate is returned when a type name is registered twice.
	ErrDuplicate = errors.New("module type already registered")
)

// ModuleConfig names a module type and carries its raw settings.
type ModuleConfig struct {
	Type string         `json:"type" yaml:"type"`
	Conf map[string]any `json:"conf" yaml:"conf"`
}

// Factory builds a T from raw settings, usually through Decode.
type Factory[T any] func(conf map[string]any) (T, error)

// Registry maps type names to factories. It is safe for concurrent use;
// registration normally happens from init functions.
type Registry[T any] struct {
	mu     sync.RWMutex
	byName map[string]Factory[T]
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{byName: map[string]Factory[T]{}}
}

// Register binds name to f.
func (r *Registry[T]) Register(name string, f Factory[T]) error {
	switch {
	case name == "":
		return errors.New("module type name is empty")
	case f == nil:
		return fmt.Errorf("module type %s: nil factory", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	r.byName[name] = f
	return nil
}

// Has reports whether name is registered.
func (r *Registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byName[name]
	return ok
}

// Names lists the registered types in lexical order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Create builds the module described by cfg. Factory errors are prefixed
// with the module type.
func (r *Registry[T]) Create(cfg ModuleConfig) (T, error) {
	r.mu.RLock()
	f, ok := r.byName[cfg.Type]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w %q (known: %s)", ErrUnknownType, cfg.Type, strings.Join(r.Names(), ", "))
	}
	v, err := f(cfg.Conf)
	if err != nil {
		return v, fmt.Errorf("%s: %w", cfg.Type, err)
	}
	return v, nil
}

// CreateAll builds every module in order and stops at the first failure,
// reporting its index.
func (r *Registry[T]) CreateAll(cfgs []ModuleConfig) ([]T, error) {
	out := make([]T, 0, len(cfgs))
	for i, c := range cfgs {
		v, err := r.Create(c)
		if err != nil {
			return out, fmt.Errorf("module %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Decode fills out from raw settings using json tags. Scalars given as
// strings, as environment overrides are, are converted to the field type,
// durations parse with time.ParseDuration and unknown keys are rejected.
func Decode(data map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		Result: out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(data); err != nil {
		return fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}
	return nil
}
