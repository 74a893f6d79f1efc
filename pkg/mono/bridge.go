// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package mono

import (
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/samber/oops"

	"github.com/mbeema/modloader/pkg/symbols"
)

// Bridge implements Runtime on top of the exports of a mapped Mono module.
// Function pointers are resolved once by Bind and kept for the process
// lifetime.
type Bridge struct {
	addrs map[string]uintptr

	classFromName       func(image uintptr, namespace, name string) uintptr
	methodFromName      func(class uintptr, name string, paramCount int32) uintptr
	fieldFromName       func(class uintptr, name string) uintptr
	fieldGetValue       func(obj, field uintptr, value unsafe.Pointer)
	fieldStaticGetValue func(vtable, field uintptr, value unsafe.Pointer)
	classVTable         func(domain, class uintptr) uintptr
	runtimeInvoke       func(method, obj uintptr, params, exc unsafe.Pointer) uintptr
	domainAssemblyOpen  func(domain uintptr, path string) uintptr
	assemblyGetImage    func(assembly uintptr) uintptr
	assemblyForeach     func(fn, userData uintptr)

	// mono_assembly_foreach takes a C callback; one is created lazily and
	// forwards to the visitor of the ForEachAssembly call in progress.
	callbackOnce sync.Once
	callback     uintptr

	visitMu sync.Mutex
	visit   func(Assembly) bool
	stopped bool
}

var _ Runtime = (*Bridge)(nil)

// Bind resolves every symbol in Symbols from m. It fails, naming every
// missing export, unless all of them resolve.
func Bind(r symbols.Resolver, m symbols.Module) (*Bridge, error) {
	addrs, err := symbols.ResolveAll(r, m, Symbols)
	if err != nil {
		return nil, oops.In("mono").Code("MONO_BIND_FAILED").With("module", m.String()).Wrapf(err, "bind mono runtime")
	}

	b := &Bridge{addrs: addrs}
	for _, fn := range []struct {
		fptr any
		name string
	}{
		{&b.classFromName, symClassFromName},
		{&b.methodFromName, symMethodFromName},
		{&b.fieldFromName, symFieldFromName},
		{&b.fieldGetValue, symFieldGetValue},
		{&b.fieldStaticGetValue, symFieldStaticGetValue},
		{&b.classVTable, symClassVTable},
		{&b.runtimeInvoke, symRuntimeInvoke},
		{&b.domainAssemblyOpen, symDomainAssemblyOpen},
		{&b.assemblyGetImage, symAssemblyGetImage},
		{&b.assemblyForeach, symAssemblyForeach},
	} {
		purego.RegisterFunc(fn.fptr, addrs[fn.name])
	}
	return b, nil
}

// Addr returns the resolved address of one of Symbols, or zero.
func (b *Bridge) Addr(symbol string) uintptr {
	return b.addrs[symbol]
}

func (b *Bridge) OpenAssembly(d Domain, path string) Assembly {
	return Assembly(b.domainAssemblyOpen(uintptr(d), path))
}

func (b *Bridge) AssemblyImage(a Assembly) Image {
	return Image(b.assemblyGetImage(uintptr(a)))
}

func (b *Bridge) ClassFromName(img Image, namespace, name string) Class {
	return Class(b.classFromName(uintptr(img), namespace, name))
}

func (b *Bridge) MethodFromName(c Class, name string, paramCount int) Method {
	return Method(b.methodFromName(uintptr(c), name, int32(paramCount)))
}

func (b *Bridge) FieldFromName(c Class, name string) Field {
	return Field(b.fieldFromName(uintptr(c), name))
}

func (b *Bridge) FieldValue(obj Object, f Field, out unsafe.Pointer) {
	b.fieldGetValue(uintptr(obj), uintptr(f), out)
}

// StaticFieldValue reads through the class vtable; mono_field_get_value
// rejects static fields.
func (b *Bridge) StaticFieldValue(d Domain, c Class, f Field, out unsafe.Pointer) {
	vtable := b.classVTable(uintptr(d), uintptr(c))
	if vtable == 0 {
		return
	}
	b.fieldStaticGetValue(vtable, uintptr(f), out)
}

func (b *Bridge) Invoke(m Method, obj Object, args []unsafe.Pointer) (result, exc Object) {
	var params unsafe.Pointer
	if len(args) > 0 {
		params = unsafe.Pointer(&args[0])
	}
	var thrown uintptr
	ret := b.runtimeInvoke(uintptr(m), uintptr(obj), params, unsafe.Pointer(&thrown))
	return Object(ret), Object(thrown)
}

// ForEachAssembly runs mono_assembly_foreach. Calls are serialized; visit
// runs on the calling goroutine.
func (b *Bridge) ForEachAssembly(visit func(Assembly) bool) {
	b.callbackOnce.Do(func() {
		b.callback = purego.NewCallback(b.onAssembly)
	})

	b.visitMu.Lock()
	defer b.visitMu.Unlock()

	b.visit, b.stopped = visit, false
	defer func() { b.visit = nil }()
	b.assemblyForeach(b.callback, 0)
}

func (b *Bridge) onAssembly(assembly, _ uintptr) uintptr {
	if b.stopped || b.visit == nil {
		return 0
	}
	if !b.visit(Assembly(assembly)) {
		b.stopped = true
	}
	return 0
}
