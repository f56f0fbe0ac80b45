package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aqueductql/aqueduct/internal/eventbus"
	"github.com/aqueductql/aqueduct/internal/events"
	"github.com/aqueductql/aqueduct/internal/future"
	"github.com/aqueductql/aqueduct/internal/globalid"
	"github.com/aqueductql/aqueduct/internal/language"
	"github.com/aqueductql/aqueduct/internal/opid"
	"github.com/aqueductql/aqueduct/internal/schema"
)

// Engine executes operations against a compiled schema using the
// executors exposed by a Dispatcher. It is stateless across operations
// and safe for concurrent use.
type Engine struct {
	schema     *schema.Schema
	dispatcher Dispatcher
	codec      globalid.Codec
	logger     *zap.Logger
}

// Options configures optional engine collaborators.
type Options struct {
	// Codec encodes and decodes global IDs. Defaults to the base64 codec.
	Codec globalid.Codec
	// Logger receives engine diagnostics. Defaults to a nop logger.
	Logger *zap.Logger
}

func New(s *schema.Schema, dispatcher Dispatcher, opts Options) *Engine {
	codec := opts.Codec
	if codec == nil {
		codec = globalid.NewBase64Codec()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{schema: s, dispatcher: dispatcher, codec: codec, logger: logger}
}

// Execute runs one operation from a parsed document and returns its
// response. Request-level failures (unknown operation, bad variables)
// produce a response with errors and no data.
func (e *Engine) Execute(ctx context.Context, document *language.QueryDocument, operationName string, variables map[string]any) *Response {
	opDef := getOperation(document, operationName)
	if opDef == nil {
		return errorResponse("operation not found")
	}
	coerced, err := coerceVariableValues(e.schema, opDef, variables)
	if err != nil {
		return errorResponse(err.Error())
	}

	var rootType string
	switch opDef.Operation {
	case language.Query:
		rootType = e.schema.QueryType
	case language.Mutation:
		rootType = e.schema.MutationType
	default:
		return errorResponse(fmt.Sprintf("unsupported operation type: %s", opDef.Operation))
	}
	if rootType == "" || e.schema.Types[rootType] == nil {
		return errorResponse(fmt.Sprintf("root type not found for %s operation", opDef.Operation))
	}

	ctx, _ = opid.NewContext(ctx)
	start := time.Now()
	eventbus.Publish(ctx, events.OperationStart{
		OperationName: opDef.Name,
		OperationType: string(opDef.Operation),
	})

	op := newOperation(e, ctx, document, coerced)
	data := op.run(rootType, opDef.SelectionSet)
	resp := &Response{Data: data, Errors: op.errors}

	eventbus.Publish(ctx, events.OperationFinish{
		OperationName: opDef.Name,
		OperationType: string(opDef.Operation),
		ErrorCount:    len(resp.Errors),
		Duration:      time.Since(start),
	})
	return resp
}

// ExecuteQuery parses and executes query source in one call.
func (e *Engine) ExecuteQuery(ctx context.Context, query, operationName string, variables map[string]any) *Response {
	doc, err := language.ParseQuery(query)
	if err != nil {
		return errorResponse(err.Error())
	}
	return e.Execute(ctx, doc, operationName, variables)
}

// ExecuteSelectionSet runs an ad-hoc selection set ("{ ... }") against the
// query root as its own operation. onBehalfOf attributes the execution to
// the caller in diagnostics. The response arrives asynchronously.
//
// Unlike Selector.ExecuteSelectionSet this does not share a running
// operation's memoization; it is the entry point for callers outside any
// operation.
func (e *Engine) ExecuteSelectionSet(ctx context.Context, onBehalfOf, source string, variables map[string]any) *future.Value[*Response] {
	out := future.Pending[*Response]()
	sel, err := language.ParseSelectionSet(e.schema.QueryType, source)
	if err != nil {
		out.Fail(usageErrorf(onBehalfOf, "invalid selection set: %v", err))
		return out
	}
	go func() {
		ctx, _ := opid.NewContext(ctx)
		op := newOperation(e, ctx, nil, variables)
		data := op.run(e.schema.QueryType, sel)
		out.Complete(&Response{Data: data, Errors: op.errors})
	}()
	return out
}

func errorResponse(message string) *Response {
	return &Response{Errors: []GraphQLError{{Message: message}}}
}

func getOperation(document *language.QueryDocument, operationName string) *language.OperationDefinition {
	if operationName == "" && len(document.Operations) == 1 {
		for _, op := range document.Operations {
			return op
		}
	}
	for _, op := range document.Operations {
		if op.Name == operationName {
			return op
		}
	}
	return nil
}
