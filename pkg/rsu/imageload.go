// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package rsu

import (
	"context"
	"fmt"

	"github.com/foundriesio/bmcrsu/pkg/doorbell"
)

const (
	ImageBMCFactory = "bmc_factory"
	ImageBMCUser    = "bmc_user"
	ImageRetimerFW  = "retimer_fw"
)

type (
	// ImageLoad is a named device flow that makes a staged image active.
	ImageLoad struct {
		Name string
		Load func(ctx context.Context) error
	}

	// ImageLoadTable is the ordered set of image loads a board supports.
	ImageLoadTable struct {
		loads []ImageLoad
	}
)

func NewImageLoadTable(loads ...ImageLoad) *ImageLoadTable {
	return &ImageLoadTable{loads: loads}
}

// Names returns the available image loads in table order.
func (t *ImageLoadTable) Names() []string {
	names := make([]string, 0, len(t.loads))
	for _, l := range t.loads {
		names = append(names, l.Name)
	}
	return names
}

// Load runs the image load registered under name.
func (t *ImageLoadTable) Load(ctx context.Context, name string) error {
	for _, l := range t.loads {
		if l.Name == name {
			return l.Load(ctx)
		}
	}
	return newError("image load", ErrUnknownImage, nil, fmt.Errorf("%q", name))
}

func defaultImageLoads(c *Controller) *ImageLoadTable {
	bmc := func(name string, sel uint8) ImageLoad {
		return ImageLoad{Name: name, Load: func(ctx context.Context) error {
			c.session.SetActiveFlow(name)
			return c.LoadBMCImage(sel)
		}}
	}
	switch c.csr.Board {
	case doorbell.BoardN3000:
		return NewImageLoadTable(
			bmc(ImageBMCFactory, 1),
			bmc(ImageBMCUser, 0),
			ImageLoad{Name: ImageRetimerFW, Load: func(ctx context.Context) error {
				c.session.SetActiveFlow(ImageRetimerFW)
				return c.ReloadRetimer(ctx)
			}},
		)
	case doorbell.BoardD5005, doorbell.BoardN5010, doorbell.BoardN6000:
		return NewImageLoadTable(
			bmc(ImageBMCFactory, 0),
			bmc(ImageBMCUser, 1),
		)
	}
	return NewImageLoadTable()
}

// LoadBMCImage reboots the BMC into flash configuration sel.
func (c *Controller) LoadBMCImage(sel uint8) error {
	if sel > 1 {
		return newError("load bmc image", ErrInvalidArgument, nil, fmt.Errorf("config %d", sel))
	}
	snap, err := c.ReadDoorbell()
	if err != nil {
		return err
	}
	if snap.RebootDisabled {
		return newError("load bmc image", ErrBusy, &snap, fmt.Errorf("reboot disabled"))
	}
	if err := c.updateDoorbell("load bmc image", doorbell.RequestReboot(sel)); err != nil {
		return err
	}
	c.logger.Info().Uint8("config", sel).Msg("BMC reboot requested")
	return nil
}
