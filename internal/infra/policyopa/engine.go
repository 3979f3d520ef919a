package policyopa

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"provisiond/internal/domain"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
)

const defaultQuery = "data.provisiond.admin.allow"

//go:embed admin.rego
var defaultPolicy string

// Authorizer evaluates the admin policy for every privileged action.
type Authorizer struct {
	query  rego.PreparedEvalQuery
	admins []string
}

// NewAuthorizer compiles the policy at policyPath, or the embedded default
// when policyPath is empty. admins is exposed to the policy as input.admins.
func NewAuthorizer(ctx context.Context, admins []string, policyPath string) (*Authorizer, error) {
	capabilities := ast.CapabilitiesForThisVersion()
	capabilities.Builtins = filterBuiltins(capabilities.Builtins)
	compiler := ast.NewCompiler().WithCapabilities(capabilities)

	opts := []func(*rego.Rego){
		rego.Query(defaultQuery),
		rego.Compiler(compiler),
		rego.StrictBuiltinErrors(true),
	}
	if policyPath != "" {
		opts = append(opts, rego.Load([]string{policyPath}, nil))
	} else {
		opts = append(opts, rego.Module("admin.rego", defaultPolicy))
	}
	prepared, err := rego.New(opts...).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare admin policy: %w", err)
	}
	if err := assertNoForbiddenBuiltins(compiler); err != nil {
		return nil, err
	}
	return &Authorizer{query: prepared, admins: normalizeAdmins(admins)}, nil
}

func (a *Authorizer) Authorize(ctx context.Context, principal domain.Principal, action string) error {
	if a == nil {
		return errors.New("admin authorizer is nil")
	}
	if principal.Subject == "" && principal.Email == "" {
		return domain.ErrUnauthorized
	}
	input := map[string]any{
		"principal": map[string]any{
			"subject": principal.Subject,
			"email":   principal.Email,
			"admin":   principal.Admin,
		},
		"action": action,
		"admins": a.admins,
	}
	results, err := a.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return fmt.Errorf("evaluate admin policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return domain.ErrForbidden
	}
	allowed, ok := results[0].Expressions[0].Value.(bool)
	if !ok || !allowed {
		return domain.ErrForbidden
	}
	return nil
}

func normalizeAdmins(admins []string) []string {
	out := make([]string, 0, len(admins))
	for _, admin := range admins {
		admin = strings.ToLower(strings.TrimSpace(admin))
		if admin != "" {
			out = append(out, admin)
		}
	}
	return out
}

func assertNoForbiddenBuiltins(compiler *ast.Compiler) error {
	if compiler == nil {
		return errors.New("policy compiler is nil")
	}
	forbidden := make(map[string]struct{})
	for _, module := range compiler.Modules {
		ast.WalkTerms(module, func(term *ast.Term) bool {
			call, ok := term.Value.(ast.Call)
			if !ok || len(call) == 0 || call[0] == nil {
				return false
			}
			name := call[0].Value.String()
			if _, ok := ast.BuiltinMap[name]; !ok {
				return false
			}
			if _, ok := allowedBuiltins[name]; ok {
				return false
			}
			forbidden[name] = struct{}{}
			return false
		})
	}
	if len(forbidden) == 0 {
		return nil
	}
	names := make([]string, 0, len(forbidden))
	for name := range forbidden {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Errorf("forbidden builtins: %s", strings.Join(names, ", "))
}
