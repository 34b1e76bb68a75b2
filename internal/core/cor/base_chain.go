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

// Package cor (Chain of Responsibility) provides the building blocks of the
// pipeline. This file defines `BaseChain`, the default `Chain`.
//
// Logic Flow:
//  1. A span is opened for the whole chain.
//  2. Commands run in insertion order, each inside its own child span.
//  3. The loop stops when a command records an error (unless
//     `continueOnFailure` is set) or halts the context.
//  4. A command whose preconditions are not met is a wiring bug: it is
//     recorded as an error instead of being skipped silently.
//  5. After every command the value in CtxOut is moved to CtxIn so simple
//     commands can be piped without naming their keys.
package cor

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type BaseChain struct {
	BaseCommand
	continueOnFailure bool
	commands          []Command
}

func NewBaseChain(name string) *BaseChain {
	return &BaseChain{BaseCommand: *NewBaseCommand(name)}
}

func (c *BaseChain) ContinueOnFailure(continueOnFailure bool) Chain {
	c.continueOnFailure = continueOnFailure
	return c
}

func (c *BaseChain) AddCommand(command Command) Chain {
	c.commands = append(c.commands, command)
	return c
}

// IsExecutable only requires a Go context; each command checks its own inputs.
func (c *BaseChain) IsExecutable(context Context) bool {
	return context != nil && context.GetContext() != nil
}

func (c *BaseChain) Execute(chCtx Context) {
	parentCtx := chCtx.GetContext()
	outerCtx, chainSpan := c.Tracer.Start(parentCtx, fmt.Sprintf("%s_execute", c.GetName()))
	defer chainSpan.End()
	// Hand the caller's context back so it can keep logging under its span.
	defer chCtx.SetContext(parentCtx)

	for _, command := range c.commands {
		if chCtx.IsHalted() {
			break
		}
		if chCtx.HasErrors() && !c.continueOnFailure {
			break
		}

		commandContext, commandSpan := c.Tracer.Start(outerCtx, command.GetName())

		if command.IsExecutable(chCtx) {
			chCtx.SetContext(commandContext)
			command.Execute(chCtx)
			// Keep sibling spans flat rather than nesting each under the previous one.
			chCtx.SetContext(outerCtx)
		} else {
			command.GetErrorCounter().Add(outerCtx, 1)
			chCtx.AddError(command.GetName(), fmt.Errorf("command not executable: %s (missing %s)", command.GetName(), command.GetInputParam()))
		}

		switch {
		case chCtx.HasErrors():
			commandSpan.SetStatus(codes.Error, "error during or after command execution")
		case chCtx.IsHalted():
			commandSpan.SetAttributes(attribute.String("halt.reason", chCtx.GetHaltReason()))
			commandSpan.SetStatus(codes.Ok, "chain halted")
		default:
			commandSpan.SetStatus(codes.Ok, "command completed successfully")
		}
		commandSpan.End()

		outputValue := chCtx.Get(CtxOut)
		chCtx.Remove(CtxIn)
		if outputValue != nil {
			chCtx.Add(CtxIn, outputValue)
		}
		chCtx.Remove(CtxOut)
	}

	if chCtx.HasErrors() {
		chainSpan.SetStatus(codes.Error, "chain failed to execute")
		return
	}
	if chCtx.IsHalted() {
		chainSpan.SetAttributes(attribute.String("halt.reason", chCtx.GetHaltReason()))
	}
	chainSpan.SetStatus(codes.Ok, "chain completed successfully")
}
