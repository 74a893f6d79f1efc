// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

// Package monotest provides an in-memory mono.Runtime for tests.
package monotest

import (
	"sync"
	"unsafe"

	"github.com/mbeema/modloader/pkg/mono"
)

// Assembly is a fake managed assembly.
type Assembly struct {
	Name    string
	Classes []*Class
}

// Class is a fake managed class. Methods are zero-argument static methods;
// a method returning true throws.
type Class struct {
	Namespace string
	Name      string
	Methods   map[string]func() (threw bool)
	// Statics holds static reference fields. A nil value is a null reference.
	Statics map[string]*Instance
	// Fields names the instance fields the class declares.
	Fields []string
}

// Instance is a fake managed object carrying boolean fields.
type Instance struct {
	mu    sync.Mutex
	Bools map[string]bool
}

// Set updates a boolean field; safe to call while the runtime is in use.
func (i *Instance) Set(field string, v bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.Bools == nil {
		i.Bools = make(map[string]bool)
	}
	i.Bools[field] = v
}

func (i *Instance) get(field string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.Bools[field]
}

type fieldRef struct {
	class *Class
	name  string
}

type methodRef struct {
	class *Class
	name  string
}

type image struct{ a *Assembly }

type exception struct{ method string }

// Invocation is one recorded Invoke call.
type Invocation struct {
	Method   string // "Namespace.Class.Method"
	Instance mono.Object
	Args     []unsafe.Pointer
}

// Runtime implements mono.Runtime over fake assemblies. Files maps module
// paths to assemblies that OpenAssembly can load.
type Runtime struct {
	mu         sync.Mutex
	loaded     []*Assembly
	files      map[string]*Assembly
	handles    map[any]uintptr
	objects    []any
	fieldRefs  map[fieldRef]*fieldRef
	methodRefs map[methodRef]*methodRef
	images     map[*Assembly]*image
	opened     []string
	invoked    []Invocation
}

var _ mono.Runtime = (*Runtime)(nil)

// NewRuntime returns a runtime with the given assemblies already loaded.
func NewRuntime(loaded ...*Assembly) *Runtime {
	return &Runtime{
		loaded:     loaded,
		files:      make(map[string]*Assembly),
		handles:    make(map[any]uintptr),
		fieldRefs:  make(map[fieldRef]*fieldRef),
		methodRefs: make(map[methodRef]*methodRef),
		images:     make(map[*Assembly]*image),
	}
}

// AddFile makes a loadable from path through OpenAssembly.
func (r *Runtime) AddFile(path string, a *Assembly) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[path] = a
}

// Load adds a to the loaded assemblies.
func (r *Runtime) Load(a *Assembly) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = append(r.loaded, a)
}

// Opened returns the paths passed to OpenAssembly, in call order.
func (r *Runtime) Opened() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.opened...)
}

// Invoked returns "Namespace.Class.Method" for every Invoke, in call order.
func (r *Runtime) Invoked() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.invoked))
	for i, inv := range r.invoked {
		out[i] = inv.Method
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Invocations returns every Invoke with its instance and arguments, in
// call order.
func (r *Runtime) Invocations() []Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Invocation(nil), r.invoked...)
}

func (r *Runtime) handleLocked(v any) uintptr {
	if h, ok := r.handles[v]; ok {
		return h
	}
	r.objects = append(r.objects, v)
	h := uintptr(len(r.objects)) * 0x10
	r.handles[v] = h
	return h
}

func (r *Runtime) handle(v any) uintptr {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handleLocked(v)
}

func (r *Runtime) deref(h uintptr) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := int(h/0x10) - 1
	if h == 0 || h%0x10 != 0 || i >= len(r.objects) {
		return nil
	}
	return r.objects[i]
}

func (r *Runtime) OpenAssembly(_ mono.Domain, path string) mono.Assembly {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened = append(r.opened, path)
	a, ok := r.files[path]
	if !ok {
		return 0
	}
	found := false
	for _, l := range r.loaded {
		if l == a {
			found = true
			break
		}
	}
	if !found {
		r.loaded = append(r.loaded, a)
	}
	return mono.Assembly(r.handleLocked(a))
}

func (r *Runtime) AssemblyImage(a mono.Assembly) mono.Image {
	asm, ok := r.deref(uintptr(a)).(*Assembly)
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.images[asm]
	if !ok {
		img = &image{a: asm}
		r.images[asm] = img
	}
	return mono.Image(r.handleLocked(img))
}

func (r *Runtime) ClassFromName(img mono.Image, namespace, name string) mono.Class {
	im, ok := r.deref(uintptr(img)).(*image)
	if !ok {
		return 0
	}
	for _, c := range im.a.Classes {
		if c.Namespace == namespace && c.Name == name {
			return mono.Class(r.handle(c))
		}
	}
	return 0
}

func (r *Runtime) MethodFromName(c mono.Class, name string, paramCount int) mono.Method {
	class, ok := r.deref(uintptr(c)).(*Class)
	if !ok || paramCount != 0 {
		return 0
	}
	if _, ok := class.Methods[name]; !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := methodRef{class: class, name: name}
	ref, ok := r.methodRefs[key]
	if !ok {
		ref = &key
		r.methodRefs[key] = ref
	}
	return mono.Method(r.handleLocked(ref))
}

func (r *Runtime) FieldFromName(c mono.Class, name string) mono.Field {
	class, ok := r.deref(uintptr(c)).(*Class)
	if !ok {
		return 0
	}
	_, declared := class.Statics[name]
	for _, f := range class.Fields {
		declared = declared || f == name
	}
	if !declared {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := fieldRef{class: class, name: name}
	ref, ok := r.fieldRefs[key]
	if !ok {
		ref = &key
		r.fieldRefs[key] = ref
	}
	return mono.Field(r.handleLocked(ref))
}

// FieldValue writes a one-byte boolean, matching a managed bool field.
func (r *Runtime) FieldValue(obj mono.Object, f mono.Field, out unsafe.Pointer) {
	inst, ok := r.deref(uintptr(obj)).(*Instance)
	ref, fok := r.deref(uintptr(f)).(*fieldRef)
	if !ok || !fok {
		return
	}
	var v uint8
	if inst.get(ref.name) {
		v = 1
	}
	*(*uint8)(out) = v
}

func (r *Runtime) StaticFieldValue(_ mono.Domain, c mono.Class, f mono.Field, out unsafe.Pointer) {
	class, ok := r.deref(uintptr(c)).(*Class)
	ref, fok := r.deref(uintptr(f)).(*fieldRef)
	if !ok || !fok || ref.class != class {
		return
	}
	var h mono.Object
	if inst := class.Statics[ref.name]; inst != nil {
		h = mono.Object(r.handle(inst))
	}
	*(*mono.Object)(out) = h
}

func (r *Runtime) Invoke(m mono.Method, obj mono.Object, args []unsafe.Pointer) (result, exc mono.Object) {
	ref, ok := r.deref(uintptr(m)).(*methodRef)
	if !ok {
		return 0, 0
	}
	qualified := ref.class.Name + "." + ref.name
	if ref.class.Namespace != "" {
		qualified = ref.class.Namespace + "." + qualified
	}
	r.mu.Lock()
	r.invoked = append(r.invoked, Invocation{Method: qualified, Instance: obj, Args: args})
	r.mu.Unlock()

	if ref.class.Methods[ref.name]() {
		return 0, mono.Object(r.handle(&exception{method: qualified}))
	}
	return 0, 0
}

func (r *Runtime) ForEachAssembly(visit func(mono.Assembly) bool) {
	r.mu.Lock()
	loaded := append([]*Assembly(nil), r.loaded...)
	r.mu.Unlock()

	for _, a := range loaded {
		if !visit(mono.Assembly(r.handle(a))) {
			return
		}
	}
}
