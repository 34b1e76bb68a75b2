// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cor (Chain of Responsibility) provides the building blocks used to
// express the thumbnail pipeline as an ordered list of commands sharing one
// Context. A command either succeeds, records an error (which stops the
// chain) or halts the chain on purpose with a reason, which is how the no-op
// outcomes short-circuit without being treated as failures.
package cor

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// CtxIn is the default input key. BaseChain moves the previous command's
	// CtxOut value here before running the next command.
	CtxIn = "__IN__"
	// CtxOut is the default output key.
	CtxOut = "__OUT__"
)

// Context is the state shared by the commands of one chain execution. It is
// not safe for concurrent use; each invocation owns its own Context.
type Context interface {
	// SetContext sets the Go context carrying cancellation and the active span.
	SetContext(context context.Context)
	GetContext() context.Context

	// Add stores a value and returns the Context for chaining.
	Add(key string, value interface{}) Context
	Get(key string) interface{}
	Remove(key string)

	// AddError records a failure, keyed by the name of the command that
	// produced it. Any recorded error stops a BaseChain.
	AddError(key string, err error)
	GetErrors() map[string]error
	HasErrors() bool

	// Halt stops the chain without an error. The reason is kept for the
	// caller, typically an outcome name.
	Halt(reason string)
	IsHalted() bool
	GetHaltReason() string

	// AddCloser registers a resource released by Close, in reverse order.
	AddCloser(closer io.Closer)

	// Close releases every registered resource. Defer it right after the
	// Context is created so release happens on every exit path.
	Close()
}

type Executable interface {
	Execute(context Context)
}

// Command is one step of a chain.
type Command interface {
	Executable

	GetName() string

	// GetInputParam is the key the command reads its primary input from.
	GetInputParam() string

	// GetOutputParam is the key the command writes its primary output to.
	GetOutputParam() string

	// IsExecutable checks the command's preconditions against the Context.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is a Command that runs other commands in order.
type Chain interface {
	Command

	// ContinueOnFailure keeps executing after a command records an error.
	ContinueOnFailure(bool) Chain

	AddCommand(command Command) Chain
}
