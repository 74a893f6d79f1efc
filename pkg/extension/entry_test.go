package extension

import (
	"errors"
	"testing"
)

func TestSplitEntryMethod(t *testing.T) {
	tests := []struct {
		in   string
		want EntryPoint
	}{
		{"NS.Class.Method", EntryPoint{Namespace: "NS", Class: "Class", Method: "Method"}},
		{"Class.Method", EntryPoint{Namespace: "Class", Class: "Method"}},
		{"Method", EntryPoint{Namespace: "Method"}},
		{".Class.Method", EntryPoint{Class: "Class", Method: "Method"}},
		{"", EntryPoint{}},
		{"NS..Method", EntryPoint{Namespace: "NS", Method: "Method"}},
	}

	for _, tt := range tests {
		got, err := SplitEntryMethod(tt.in)
		if err != nil {
			t.Errorf("SplitEntryMethod(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("SplitEntryMethod(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestSplitEntryMethodTooDeep(t *testing.T) {
	for _, in := range []string{"A.B.C.D", "Company.Product.Mods.Main.Load", "a.b.c."} {
		_, err := SplitEntryMethod(in)
		if !errors.Is(err, ErrEntryTooDeep) {
			t.Errorf("SplitEntryMethod(%q) error = %v, want ErrEntryTooDeep", in, err)
		}
	}
}

func TestEntryPointString(t *testing.T) {
	tests := map[EntryPoint]string{
		{Namespace: "NS", Class: "Class", Method: "Method"}: "NS.Class.Method",
		{Namespace: "Class", Class: "Method"}:               "Class.Method",
		{}:                                                  "",
	}
	for ep, want := range tests {
		if got := ep.String(); got != want {
			t.Errorf("%+v.String() = %q, want %q", ep, got, want)
		}
	}
}
