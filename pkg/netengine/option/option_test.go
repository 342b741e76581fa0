package option

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCanonicalLines(t *testing.T) {
	cases := []struct {
		name string
		line string
		want Option
	}{
		{
			name: "check true",
			line: "option name Nullmove type check default true",
			want: Option{Name: "Nullmove", Kind: Check, Default: Value{Bool: true}, Current: Value{Bool: true}},
		},
		{
			name: "check false",
			line: "option name Ponder type check default false",
			want: Option{Name: "Ponder", Kind: Check, Default: Value{Bool: false}, Current: Value{Bool: false}},
		},
		{
			name: "spin with min max",
			line: "option name Selectivity type spin default 2 min 0 max 4",
			want: Option{Name: "Selectivity", Kind: Spin, Min: 0, Max: 4, Default: Value{Int: 2}, Current: Value{Int: 2}},
		},
		{
			name: "skill level spin",
			line: "option name Skill Level type spin default 20 min 0 max 20",
			want: Option{Name: "Skill Level", Kind: Spin, Min: 0, Max: 20, Default: Value{Int: 20}, Current: Value{Int: 20}},
		},
		{
			name: "combo multi-word name, three vars",
			line: "option name Eval Style type combo default Normal var Solid var Normal var Risky",
			want: Option{Name: "Eval Style", Kind: Combo, Vars: []string{"Solid", "Normal", "Risky"}, Default: Value{Str: "Normal"}, Current: Value{Str: "Normal"}},
		},
		{
			name: "multi-word button",
			line: "option name Clear Hash type button",
			want: Option{Name: "Clear Hash", Kind: Button},
		},
		{
			name: "string with empty placeholder",
			line: "option name NalimovPath type string default <empty>",
			want: Option{Name: "NalimovPath", Kind: String, Default: Value{Str: ""}, Current: Value{Str: ""}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Parse(tc.line)
			require.True(t, ok)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tc.line, diff)
			}
		})
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"not an option line",
		"option type check",          // missing name
		"option name Foo",            // missing type
		"option name Foo type blorp", // unknown type
		"option name Foo type spin default abc min 0 max 10", // bad default
		"option name Foo type spin default 1 min x max 10",   // bad min
	}
	for _, line := range cases {
		_, ok := Parse(line)
		assert.False(t, ok, "expected Parse(%q) to fail", line)
	}
}

func TestSpinOutOfRangeRejected(t *testing.T) {
	o, ok := Parse("option name Hash type spin default 16 min 1 max 1024")
	require.True(t, ok)

	applied := o.SetFromString("2048")
	assert.False(t, applied)
	assert.Equal(t, int64(16), o.Current.Int)
	assert.False(t, o.Modified)
}

func TestComboCaseInsensitiveCanonical(t *testing.T) {
	o, ok := Parse("option name Style type combo default Normal var Solid var Normal var Risky")
	require.True(t, ok)

	applied := o.SetFromString("risky")
	require.True(t, applied)
	assert.Equal(t, "Risky", o.GetStringValue())
	assert.True(t, o.Modified)
}

func TestComboRejectsUnknownValue(t *testing.T) {
	o, ok := Parse("option name Style type combo default Normal var Solid var Normal var Risky")
	require.True(t, ok)

	applied := o.SetFromString("Aggressive")
	assert.False(t, applied)
	assert.Equal(t, "Normal", o.GetStringValue())
}

func TestEqualAssignmentIsUnchangedNoOp(t *testing.T) {
	o, ok := Parse("option name Ponder type check default false")
	require.True(t, ok)

	applied := o.SetFromString("false")
	assert.True(t, applied)
	assert.False(t, o.Modified)
}

func TestOptionRoundTrip(t *testing.T) {
	cases := []string{
		"option name Nullmove type check default true",
		"option name Selectivity type spin default 2 min 0 max 4",
		"option name Style type combo default Normal var Solid var Normal var Risky",
		"option name NalimovPath type string default c:\\tb",
	}
	for _, line := range cases {
		o, ok := Parse(line)
		require.True(t, ok)

		var s string
		switch o.Kind {
		case Check:
			s = "false"
		case Spin:
			s = "3"
		case Combo:
			s = "solid"
		case String:
			s = "d:\\other"
		}

		applied := o.SetFromString(s)
		require.True(t, applied)

		got := o.GetStringValue()
		if o.Kind == Combo {
			assert.Equal(t, "Solid", got)
		} else {
			assert.Equal(t, s, got)
		}
	}
}

func TestIsHostManaged(t *testing.T) {
	managed := []string{"Hash", "hash", "UCI_Chess960", "uci_elo", "OwnBook", "SyzygyPath", "GaviotaTbPath", "Ponder", "MultiPV"}
	for _, name := range managed {
		assert.True(t, IsHostManaged(name), name)
	}

	visible := []string{"Skill Level", "Threads", "Contempt", "Style"}
	for _, name := range visible {
		assert.False(t, IsHostManaged(name), name)
	}
}

func TestRegistryInsertionOrderAndLookup(t *testing.T) {
	r := NewRegistry()
	require.True(t, r.RegisterDeclaration("option name Hash type spin default 16 min 1 max 1024"))
	require.True(t, r.RegisterDeclaration("option name Skill Level type spin default 20 min 0 max 20"))
	require.True(t, r.RegisterDeclaration("option name OwnBook type check default false"))

	assert.Equal(t, []string{"hash", "skill level", "ownbook"}, r.Names())

	o, ok := r.Lookup("SKILL level")
	require.True(t, ok)
	assert.Equal(t, "Skill Level", o.Name)
}

func TestRegistryVisibilityFilter(t *testing.T) {
	r := NewRegistry()
	require.True(t, r.RegisterDeclaration("option name Hash type spin default 16 min 1 max 1024"))
	require.True(t, r.RegisterDeclaration("option name Skill Level type spin default 20 min 0 max 20"))
	require.True(t, r.RegisterDeclaration("option name UCI_AnalyseMode type check default false"))

	visible := r.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, "Skill Level", visible[0].Name)
}

func TestRegistryUpdate(t *testing.T) {
	r := NewRegistry()
	require.True(t, r.RegisterDeclaration("option name Threads type spin default 1 min 1 max 512"))

	found, applied := r.Update("threads", "4")
	assert.True(t, found)
	assert.True(t, applied)

	o, _ := r.Lookup("Threads")
	assert.Equal(t, int64(4), o.Current.Int)

	found, applied = r.Update("missing", "1")
	assert.False(t, found)
	assert.False(t, applied)
}

func TestRegistryCloneIsDeep(t *testing.T) {
	r := NewRegistry()
	require.True(t, r.RegisterDeclaration("option name Style type combo default Normal var Solid var Normal var Risky"))

	clone := r.Clone()
	clone.Update("style", "solid")

	orig, _ := r.Lookup("style")
	copied, _ := clone.Lookup("style")
	assert.Equal(t, "Normal", orig.GetStringValue())
	assert.Equal(t, "Solid", copied.GetStringValue())
}

func TestRegistryClear(t *testing.T) {
	r := NewRegistry()
	require.True(t, r.RegisterDeclaration("option name Hash type spin default 16 min 1 max 1024"))
	assert.Equal(t, 1, r.Len())

	r.Clear()
	assert.Equal(t, 0, r.Len())
	_, ok := r.Lookup("Hash")
	assert.False(t, ok)
}
