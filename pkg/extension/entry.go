// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package extension

import (
	"errors"
	"strings"

	"github.com/samber/oops"
)

// ErrEntryTooDeep is returned (wrapped) for entry methods with more than
// three dotted segments. Nested namespaces are not split.
var ErrEntryTooDeep = errors.New("entry method has more than three segments")

// EntryPoint is an entry method split into its three lookup slots.
type EntryPoint struct {
	Namespace string
	Class     string
	Method    string
}

// String joins the non-empty slots with dots.
func (e EntryPoint) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{e.Namespace, e.Class, e.Method} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}

// SplitEntryMethod cuts s at each '.' and fills Namespace, Class and Method
// left to right, leaving unfilled slots empty:
//
//	"NS.Class.Method" -> ("NS", "Class", "Method")
//	"Class.Method"    -> ("Class", "Method", "")
//	"Method"          -> ("Method", "", "")
func SplitEntryMethod(s string) (EntryPoint, error) {
	parts := strings.SplitN(s, ".", 4)
	if len(parts) > 3 {
		return EntryPoint{}, oops.In("extension").
			Code("ENTRY_TOO_DEEP").
			With("entry_method", s).
			Wrap(ErrEntryTooDeep)
	}

	var slots [3]string
	copy(slots[:], parts)
	return EntryPoint{Namespace: slots[0], Class: slots[1], Method: slots[2]}, nil
}
