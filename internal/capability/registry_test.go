package capability

import "testing"

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Contract{
		Name:   "custom_cap",
		Grants: [4]Grant{{}, {}, {Allowed: true}, {Allowed: true}},
		Needs:  []Dependency{DepDisk},
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	c, ok := r.Lookup("custom_cap")
	if !ok {
		t.Fatal("registered capability not found")
	}
	if !c.Grants[2].Allowed || c.Grants[1].Allowed {
		t.Errorf("grants wrong: %+v", c.Grants)
	}

	if _, ok := r.Lookup("missing"); ok {
		t.Error("unregistered capability must not resolve")
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	c := Contract{Name: "dup"}
	if err := r.Register(c); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := r.Register(c); err == nil {
		t.Error("duplicate registration must fail")
	}
}

func TestRegisterRejectsEmptyName(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Contract{}); err == nil {
		t.Error("empty name must be rejected")
	}
}

func TestBuiltinContracts(t *testing.T) {
	r := Builtin()
	names := r.Names()
	if len(names) == 0 {
		t.Fatal("builtin registry is empty")
	}

	fw, ok := r.Lookup("file_write")
	if !ok {
		t.Fatal("file_write missing from builtin registry")
	}
	if fw.Grants[0].Allowed {
		t.Error("observer must not hold file_write")
	}
	if !fw.Grants[2].Allowed {
		t.Error("partner must hold file_write")
	}

	sm, ok := r.Lookup("self_modify")
	if !ok {
		t.Fatal("self_modify missing from builtin registry")
	}
	for tier := 0; tier < 3; tier++ {
		if sm.Grants[tier].Allowed {
			t.Errorf("self_modify must be surrogate-only, allowed at tier %d", tier)
		}
	}
}
