package capability

// Builtin returns the default registry: the capabilities the agent
// actually uses, with per-tier grants and constraints.
//
// Tier ordinals: 0=observer, 1=assistant, 2=partner, 3=surrogate.
// Constraint strings are scanned by the gate for the literal markers
// "approval required" and "preview" (case-insensitive substring
// match), so wording changes here change gate behavior.
func Builtin() *Registry {
	r := NewRegistry()
	for _, c := range builtinContracts {
		// Builtin names are unique by construction.
		_ = r.Register(c)
	}
	return r
}

var builtinContracts = []Contract{
	{
		Name: "file_read",
		Grants: [4]Grant{
			{Allowed: true},
			{Allowed: true},
			{Allowed: true},
			{Allowed: true},
		},
		Needs: []Dependency{DepDisk},
	},
	{
		Name: "file_write",
		Grants: [4]Grant{
			{Allowed: false},
			{Allowed: true, Constraints: []string{"sandbox paths only", "preview diff before write"}},
			{Allowed: true, Constraints: []string{"commit before mutate"}},
			{Allowed: true, Constraints: []string{"commit before mutate"}},
		},
		Needs: []Dependency{DepDisk},
	},
	{
		Name: "write_outside_sandbox",
		Grants: [4]Grant{
			{Allowed: false},
			{Allowed: false},
			{Allowed: true, Constraints: []string{"commit before mutate", "preview diff before write", "approval required for system paths"}},
			{Allowed: true, Constraints: []string{"commit before mutate"}},
		},
		Needs: []Dependency{DepDisk},
	},
	{
		Name: "execute_shell",
		Grants: [4]Grant{
			{Allowed: false},
			{Allowed: false},
			{Allowed: true, Constraints: []string{"approval required", "commit before mutate"}},
			{Allowed: true, Constraints: []string{"commit before mutate"}},
		},
		Needs: []Dependency{DepDisk},
	},
	{
		Name: "send_external_message",
		Grants: [4]Grant{
			{Allowed: false},
			{Allowed: false},
			{Allowed: true, Constraints: []string{"approval required", "preview message before send"}},
			{Allowed: true, Constraints: []string{"preview message before send"}},
		},
		Needs: []Dependency{DepInference},
	},
	{
		Name: "inference",
		Grants: [4]Grant{
			{Allowed: true},
			{Allowed: true},
			{Allowed: true},
			{Allowed: true},
		},
		Needs: []Dependency{DepInference},
	},
	{
		Name: "memory_recall",
		Grants: [4]Grant{
			{Allowed: true},
			{Allowed: true},
			{Allowed: true},
			{Allowed: true},
		},
		Needs: []Dependency{DepMemory},
	},
	{
		Name: "memory_store",
		Grants: [4]Grant{
			{Allowed: false},
			{Allowed: true},
			{Allowed: true},
			{Allowed: true},
		},
		Needs: []Dependency{DepMemory, DepDisk},
	},
	{
		Name: "self_modify",
		Grants: [4]Grant{
			{Allowed: false},
			{Allowed: false},
			{Allowed: false},
			{Allowed: true, Constraints: []string{"approval required", "commit before mutate", "preview diff before write"}},
		},
		Needs: []Dependency{DepDisk, DepInference},
	},
}
