package policyopa

import "github.com/open-policy-agent/opa/ast"

// allowedBuiltins is the set of builtins an admin policy may call. Anything
// that reaches the network, the clock or randomness is excluded.
var allowedBuiltins = map[string]struct{}{
	"assign":            {},
	"concat":            {},
	"contains":          {},
	"count":             {},
	"endswith":          {},
	"eq":                {},
	"equal":             {},
	"internal.member_2": {},
	"lower":             {},
	"neq":               {},
	"object.get":        {},
	"regex.match":       {},
	"split":             {},
	"sprintf":           {},
	"startswith":        {},
	"trim":              {},
	"trim_space":        {},
	"upper":             {},
}

func filterBuiltins(builtins []*ast.Builtin) []*ast.Builtin {
	allowed := make([]*ast.Builtin, 0, len(allowedBuiltins))
	for _, builtin := range builtins {
		if _, ok := allowedBuiltins[builtin.Name]; ok {
			allowed = append(allowed, builtin)
		}
	}
	return allowed
}
