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
// pipeline. This file defines `BaseContext`, the default implementation of
// the `Context` interface.
//
// This implementation includes:
//   - A map holding the values passed between commands (`data`).
//   - A map collecting errors keyed by command name (`errors`).
//   - A halt reason set by commands that end the chain early on purpose.
//   - The resources (source streams) released when the invocation ends.
//   - A standard Go `context.Context` for cancellation and tracing.
package cor

import (
	"context"
	"io"
	"log/slog"
)

type BaseContext struct {
	data       map[string]interface{}
	errors     map[string]error
	haltReason string
	closers    []io.Closer
	context    context.Context
}

// NewBaseContext creates an empty context with a background Go context.
func NewBaseContext() Context {
	return &BaseContext{
		data:    make(map[string]interface{}),
		errors:  make(map[string]error),
		context: context.Background(),
	}
}

func (c *BaseContext) SetContext(context context.Context) {
	c.context = context
}

func (c *BaseContext) GetContext() context.Context {
	return c.context
}

// Close releases registered resources in reverse registration order. It is
// safe to call more than once.
func (c *BaseContext) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			slog.WarnContext(c.context, "failed to release resource", "error", err)
		}
	}
	c.closers = nil
}

func (c *BaseContext) AddCloser(closer io.Closer) {
	if closer != nil {
		c.closers = append(c.closers, closer)
	}
}

func (c *BaseContext) Add(key string, value interface{}) Context {
	c.data[key] = value
	return c
}

func (c *BaseContext) AddError(key string, err error) {
	c.errors[key] = err
}

func (c *BaseContext) GetErrors() map[string]error {
	return c.errors
}

func (c *BaseContext) Get(key string) interface{} {
	return c.data[key]
}

func (c *BaseContext) Remove(key string) {
	delete(c.data, key)
}

func (c *BaseContext) HasErrors() bool {
	return len(c.errors) > 0
}

// Halt keeps the first reason given.
func (c *BaseContext) Halt(reason string) {
	if c.haltReason == "" {
		c.haltReason = reason
	}
}

func (c *BaseContext) IsHalted() bool {
	return c.haltReason != ""
}

func (c *BaseContext) GetHaltReason() string {
	return c.haltReason
}
