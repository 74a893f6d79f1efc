// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package mono

// DomainGetSymbol is the entry point the host calls throughout startup; the
// loader intercepts it.
const DomainGetSymbol = "mono_domain_get"

const (
	symClassFromName       = "mono_class_from_name"
	symMethodFromName      = "mono_class_get_method_from_name"
	symFieldFromName       = "mono_class_get_field_from_name"
	symFieldGetValue       = "mono_field_get_value"
	symFieldStaticGetValue = "mono_field_static_get_value"
	symClassVTable         = "mono_class_vtable"
	symRuntimeInvoke       = "mono_runtime_invoke"
	symDomainAssemblyOpen  = "mono_domain_assembly_open"
	symAssemblyGetImage    = "mono_assembly_get_image"
	symAssemblyForeach     = "mono_assembly_foreach"
)

// Symbols lists every export Bind requires.
var Symbols = []string{
	DomainGetSymbol,
	symClassFromName,
	symMethodFromName,
	symFieldFromName,
	symFieldGetValue,
	symFieldStaticGetValue,
	symClassVTable,
	symRuntimeInvoke,
	symDomainAssemblyOpen,
	symAssemblyGetImage,
	symAssemblyForeach,
}
