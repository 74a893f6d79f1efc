// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

// Package mono calls into an embedded Mono runtime through its exported C
// API. All handles are opaque; the zero value of each means NULL.
package mono

import "unsafe"

type (
	// Domain is a MonoDomain*, the root handle of a runtime session.
	Domain uintptr
	// Assembly is a MonoAssembly*.
	Assembly uintptr
	// Image is a MonoImage*.
	Image uintptr
	// Class is a MonoClass*.
	Class uintptr
	// Method is a MonoMethod*.
	Method uintptr
	// Field is a MonoClassField*.
	Field uintptr
	// Object is a MonoObject*.
	Object uintptr
)

// Runtime is the subset of the Mono embedding API the loader relies on.
// Lookups return the zero handle when the name does not exist in the
// current runtime state; that is not an error.
type Runtime interface {
	OpenAssembly(d Domain, path string) Assembly
	AssemblyImage(a Assembly) Image
	ClassFromName(img Image, namespace, name string) Class
	MethodFromName(c Class, name string, paramCount int) Method
	FieldFromName(c Class, name string) Field

	// FieldValue copies an instance field of obj into out, which must point
	// to storage of the field's size.
	FieldValue(obj Object, f Field, out unsafe.Pointer)
	// StaticFieldValue copies a static field of c into out.
	StaticFieldValue(d Domain, c Class, f Field, out unsafe.Pointer)

	// Invoke calls m on obj (zero for static methods) with args, returning
	// the result and any thrown exception object.
	Invoke(m Method, obj Object, args []unsafe.Pointer) (result, exc Object)

	// ForEachAssembly visits every loaded assembly until visit returns false.
	ForEachAssembly(visit func(Assembly) bool)
}
