// Package rbac decides which roles may perform privileged chat actions.
package rbac

import (
	"log/slog"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
)

// Permissions checked by the chat engine. Each is "object:action".
const (
	PermHide        = "messages:hide"
	PermSeeHidden   = "messages:see_hidden"
	PermScheduleAny = "sessions:schedule_any"
	PermPurgeAny    = "messages:purge_any"
	PermAlert       = "messages:alert"
)

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && keyMatch(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

// DefaultPolicy applies when no policy file is configured.
var DefaultPolicy = [][]string{
	{"owner", "messages", "hide"},
	{"specialist", "messages", "hide"},
	{"owner", "messages", "see_hidden"},
	{"specialist", "messages", "see_hidden"},
	{"admin", "messages", "see_hidden"},
	{"owner", "sessions", "schedule_any"},
	{"admin", "sessions", "schedule_any"},
	{"owner", "messages", "purge_any"},
	{"owner", "messages", "alert"},
	{"admin", "messages", "alert"},
	{"specialist", "messages", "alert"},
}

type Config struct {
	PolicyFile string `json:",optional"`
	Watch      bool   `json:",default=true"`
}

type Policy struct {
	e   *casbin.SyncedEnforcer
	log *slog.Logger
}

// New builds the enforcer from the embedded model, either with the default
// rules or with the CSV policy file in c.
func New(c Config, log *slog.Logger) (*Policy, error) {
	if log == nil {
		log = slog.Default()
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	if c.PolicyFile != "" {
		e, err := casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(c.PolicyFile))
		if err != nil {
			return nil, err
		}
		log.Info("[RBAC] policy loaded", "file", c.PolicyFile)
		return &Policy{e: e, log: log}, nil
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	if _, err := e.AddPolicies(DefaultPolicy); err != nil {
		return nil, err
	}
	return &Policy{e: e, log: log}, nil
}

// Can reports whether role holds perm ("object:action").
func (p *Policy) Can(role, perm string) bool {
	obj, act := split(perm)
	ok, err := p.e.Enforce(role, obj, act)
	if err != nil {
		p.log.Warn("[RBAC] enforce failed", "role", role, "perm", perm, "err", err)
		return false
	}
	return ok
}

// Reload re-reads the policy file; a no-op for the default policy.
func (p *Policy) Reload() error {
	if p.e.GetAdapter() == nil {
		return nil
	}
	return p.e.LoadPolicy()
}

func split(perm string) (string, string) {
	obj, act, ok := strings.Cut(perm, ":")
	if !ok {
		return perm, "*"
	}
	return obj, act
}
