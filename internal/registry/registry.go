// Package registry assembles tenant modules into the immutable dispatch
// table the engine executes against. Modules are enumerated explicitly,
// never discovered by reflection or classpath-style scanning: a module
// lists its executors, and what it lists is exactly what dispatches.
//
// A module that fails to build is logged and skipped so one broken tenant
// does not take the server down. Conflicts between modules and validator
// failures are configuration errors and abort the build.
package registry

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aqueductql/aqueduct/internal/checks"
	"github.com/aqueductql/aqueduct/internal/engine"
	"github.com/aqueductql/aqueduct/internal/eventbus"
	"github.com/aqueductql/aqueduct/internal/events"
	"github.com/aqueductql/aqueduct/internal/schema"
)

// Module is one tenant unit of executors. All three methods enumerate
// eagerly; returning an error rejects the whole module.
type Module interface {
	Name() string
	FieldResolvers(s *schema.Schema) ([]engine.FieldResolverExecutor, error)
	NodeResolvers(s *schema.Schema) ([]engine.NodeResolverExecutor, error)
}

// CheckerFactory supplies access checkers. It is queried once per schema
// coordinate at build time; nil means the coordinate is unguarded.
type CheckerFactory interface {
	FieldChecker(typeName, fieldName string) checks.Executor
	TypeChecker(typeName string) checks.Executor
}

// Validator inspects the finished registry against the schema. A
// validation error is fatal: a server must not start with an incomplete
// or inconsistent dispatch table.
type Validator interface {
	Validate(s *schema.Schema, r *Registry) error
}

// Options configures Build.
type Options struct {
	Modules []Module
	// CheckerFactory is optional; without one no coordinate is guarded.
	CheckerFactory CheckerFactory
	// Validators run after assembly. Any error aborts the build.
	Validators []Validator
	Logger     *zap.Logger
}

type coordinate struct {
	typeName  string
	fieldName string
}

func (c coordinate) String() string {
	if c.fieldName == "" {
		return c.typeName
	}
	return c.typeName + "." + c.fieldName
}

// Registry is the immutable dispatch table. It satisfies
// engine.Dispatcher and is never mutated after Build returns.
type Registry struct {
	fieldResolvers map[coordinate]engine.FieldResolverExecutor
	nodeResolvers  map[string]engine.NodeResolverExecutor
	fieldCheckers  map[coordinate]checks.Executor
	typeCheckers   map[string]checks.Executor
}

var _ engine.Dispatcher = (*Registry)(nil)

// Build assembles the registry from modules against a compiled schema.
func Build(s *schema.Schema, opts Options) (*Registry, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Registry{
		fieldResolvers: make(map[coordinate]engine.FieldResolverExecutor),
		nodeResolvers:  make(map[string]engine.NodeResolverExecutor),
		fieldCheckers:  make(map[coordinate]checks.Executor),
		typeCheckers:   make(map[string]checks.Executor),
	}

	for _, mod := range opts.Modules {
		staged, err := buildModule(s, mod)
		if err != nil {
			logger.Error("module failed to build, skipping",
				zap.String("module", mod.Name()),
				zap.Error(err))
			eventbus.Publish(context.Background(), events.ModuleSkipped{Module: mod.Name(), Err: err})
			continue
		}
		if err := r.merge(mod.Name(), staged); err != nil {
			return nil, err
		}
		logger.Info("module registered",
			zap.String("module", mod.Name()),
			zap.Int("field_resolvers", len(staged.fields)),
			zap.Int("node_resolvers", len(staged.nodes)))
		eventbus.Publish(context.Background(), events.ModuleRegistered{
			Module:    mod.Name(),
			Resolvers: len(staged.fields) + len(staged.nodes),
		})
	}

	if opts.CheckerFactory != nil {
		r.collectCheckers(s, opts.CheckerFactory)
	}

	for _, v := range opts.Validators {
		if err := v.Validate(s, r); err != nil {
			return nil, fmt.Errorf("registry validation failed: %w", err)
		}
	}
	return r, nil
}

type stagedModule struct {
	fields map[coordinate]engine.FieldResolverExecutor
	nodes  map[string]engine.NodeResolverExecutor
}

// buildModule enumerates one module's executors and verifies each against
// the schema. A panic during enumeration rejects the module like an
// error would.
func buildModule(s *schema.Schema, mod Module) (staged *stagedModule, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			staged, err = nil, fmt.Errorf("panic while building module: %v", rec)
		}
	}()

	staged = &stagedModule{
		fields: make(map[coordinate]engine.FieldResolverExecutor),
		nodes:  make(map[string]engine.NodeResolverExecutor),
	}

	fieldExecs, err := mod.FieldResolvers(s)
	if err != nil {
		return nil, err
	}
	for _, exec := range fieldExecs {
		meta := exec.Metadata()
		coord := coordinate{typeName: meta.TypeName, fieldName: meta.FieldName}
		if s.GetField(meta.TypeName, meta.FieldName) == nil {
			return nil, fmt.Errorf("resolver %s targets unknown field %s", meta.Identity(), coord)
		}
		if _, dup := staged.fields[coord]; dup {
			return nil, fmt.Errorf("module registers %s twice", coord)
		}
		staged.fields[coord] = exec
	}

	nodeExecs, err := mod.NodeResolvers(s)
	if err != nil {
		return nil, err
	}
	for _, exec := range nodeExecs {
		meta := exec.Metadata()
		t := s.Types[meta.TypeName]
		if t == nil || t.Kind != schema.TypeKindObject {
			return nil, fmt.Errorf("node resolver %s targets non-object type %q", meta.Identity(), meta.TypeName)
		}
		if _, dup := staged.nodes[meta.TypeName]; dup {
			return nil, fmt.Errorf("module registers node resolver for %s twice", meta.TypeName)
		}
		staged.nodes[meta.TypeName] = exec
	}
	return staged, nil
}

// merge installs a staged module. A coordinate already claimed by another
// module is a deployment-wide configuration error, not a per-module one,
// and fails the build.
func (r *Registry) merge(module string, staged *stagedModule) error {
	for coord, exec := range staged.fields {
		if prev, taken := r.fieldResolvers[coord]; taken {
			return fmt.Errorf("field %s registered by both %s and module %s",
				coord, prev.Metadata().Identity(), module)
		}
		r.fieldResolvers[coord] = exec
	}
	for typeName, exec := range staged.nodes {
		if prev, taken := r.nodeResolvers[typeName]; taken {
			return fmt.Errorf("node resolver for %s registered by both %s and module %s",
				typeName, prev.Metadata().Identity(), module)
		}
		r.nodeResolvers[typeName] = exec
	}
	return nil
}

func (r *Registry) collectCheckers(s *schema.Schema, factory CheckerFactory) {
	for _, t := range s.Types {
		if t.Kind != schema.TypeKindObject {
			continue
		}
		if c := factory.TypeChecker(t.Name); c != nil {
			r.typeCheckers[t.Name] = c
		}
		for _, f := range t.Fields {
			if c := factory.FieldChecker(t.Name, f.Name); c != nil {
				r.fieldCheckers[coordinate{t.Name, f.Name}] = c
			}
		}
	}
}

// FieldResolver implements engine.Dispatcher.
func (r *Registry) FieldResolver(typeName, fieldName string) engine.FieldResolverExecutor {
	return r.fieldResolvers[coordinate{typeName, fieldName}]
}

// NodeResolver implements engine.Dispatcher.
func (r *Registry) NodeResolver(typeName string) engine.NodeResolverExecutor {
	return r.nodeResolvers[typeName]
}

// FieldChecker implements engine.Dispatcher.
func (r *Registry) FieldChecker(typeName, fieldName string) checks.Executor {
	return r.fieldCheckers[coordinate{typeName, fieldName}]
}

// TypeChecker implements engine.Dispatcher.
func (r *Registry) TypeChecker(typeName string) checks.Executor {
	return r.typeCheckers[typeName]
}
