// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package state

import (
	"context"
	"time"
)

type Complete struct{}

func (s *Complete) Name() ActionName { return "Programming" }
func (s *Complete) Execute(ctx context.Context, updateCtx *UpdateContext) error {
	err := updateCtx.Controller.Session().PollComplete(ctx)
	if err == nil {
		updateCtx.CompletedAt = time.Now()
	}
	return err
}
