package permission

import "testing"

func TestSatisfies(t *testing.T) {
	cases := []struct {
		name     string
		held     Permission
		required Permission
		want     bool
	}{
		{name: "view satisfies view", held: View, required: View, want: true},
		{name: "edit satisfies edit", held: Edit, required: Edit, want: true},
		{name: "edit satisfies view", held: Edit, required: View, want: true},
		{name: "view does not satisfy edit", held: View, required: Edit, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.held.Satisfies(tc.required); got != tc.want {
				t.Fatalf("Satisfies(%q, %q) = %v, want %v", tc.held, tc.required, got, tc.want)
			}
		})
	}
}

func TestExpand(t *testing.T) {
	if got := Expand(View); len(got) != 2 || got[0] != View || got[1] != Edit {
		t.Fatalf("Expand(view) = %v, want [view edit]", got)
	}
	if got := Expand(Edit); len(got) != 1 || got[0] != Edit {
		t.Fatalf("Expand(edit) = %v, want [edit]", got)
	}
}

func TestResolve(t *testing.T) {
	caller := "0x1dec5f50cb1467f505bb3ddfd408805114406b10"
	other := "0x87956abc4078a0cc3b89b419928b857b8af826ed"

	cases := []struct {
		name     string
		required Permission
		grants   []Grant
		want     bool
	}{
		{
			name:     "no grants",
			required: View,
			grants:   nil,
			want:     false,
		},
		{
			name:     "personal view grant allows view",
			required: View,
			grants:   []Grant{{Permission: View, Grantee: Address(caller)}},
			want:     true,
		},
		{
			name:     "personal view grant denies edit",
			required: Edit,
			grants:   []Grant{{Permission: View, Grantee: Address(caller)}},
			want:     false,
		},
		{
			name:     "wildcard view allows any caller to view",
			required: View,
			grants:   []Grant{{Permission: View, Grantee: Everyone()}},
			want:     true,
		},
		{
			name:     "wildcard view denies edit",
			required: Edit,
			grants:   []Grant{{Permission: View, Grantee: Everyone()}},
			want:     false,
		},
		{
			name:     "wildcard edit allows any caller to edit",
			required: Edit,
			grants:   []Grant{{Permission: Edit, Grantee: Everyone()}},
			want:     true,
		},
		{
			name:     "edit grant satisfies view requirement",
			required: View,
			grants:   []Grant{{Permission: Edit, Grantee: Address(caller)}},
			want:     true,
		},
		{
			name:     "grant for another address does not apply",
			required: View,
			grants:   []Grant{{Permission: Edit, Grantee: Address(other)}},
			want:     false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Resolve(tc.required, tc.grants, caller); got != tc.want {
				t.Fatalf("Resolve(%q) = %v, want %v", tc.required, got, tc.want)
			}
		})
	}
}

func TestStrongest(t *testing.T) {
	caller := "0x1dec5f50cb1467f505bb3ddfd408805114406b10"

	t.Run("none match", func(t *testing.T) {
		if _, ok := Strongest([]Grant{{Permission: View, Grantee: Address("0xother")}}, caller); ok {
			t.Fatal("expected no applicable permission")
		}
	})

	t.Run("edit beats view", func(t *testing.T) {
		grants := []Grant{
			{Permission: View, Grantee: Everyone()},
			{Permission: Edit, Grantee: Address(caller)},
		}
		got, ok := Strongest(grants, caller)
		if !ok || got != Edit {
			t.Fatalf("Strongest = %q, %v, want edit, true", got, ok)
		}
	})

	t.Run("wildcard view alone", func(t *testing.T) {
		got, ok := Strongest([]Grant{{Permission: View, Grantee: Everyone()}}, caller)
		if !ok || got != View {
			t.Fatalf("Strongest = %q, %v, want view, true", got, ok)
		}
	})
}

func TestGrantee(t *testing.T) {
	if got := ParseGrantee("*"); !got.IsEveryone() {
		t.Fatal("ParseGrantee(*) should be the wildcard grantee")
	}
	if got := ParseGrantee("0xabc"); got.IsEveryone() || got.String() != "0xabc" {
		t.Fatalf("ParseGrantee(0xabc) = %q", got.String())
	}
	if Everyone().String() != "*" {
		t.Fatalf("Everyone().String() = %q, want *", Everyone().String())
	}
	if !Everyone().Matches("0xanyone") {
		t.Fatal("wildcard grantee should match any caller")
	}
	if Address("0xabc").Matches("0xdef") {
		t.Fatal("address grantee should not match another caller")
	}
}
