// Package access implements the ledger's three-tier capability model.
// Admin implies Maintainer implies Pusher for permission checks, but the
// grants themselves are independent sets: Admin is fixed to the owner at
// creation, Maintainer is granted by Admin, Pusher by Maintainer.
package access

import "errors"

var ErrPermissionDenied = errors.New("permission denied")

type Controller struct {
	admin       string
	maintainers map[string]struct{}
	pushers     map[string]struct{}
}

// NewController creates a controller with owner holding all three
// capabilities.
func NewController(owner string) *Controller {
	return &Controller{
		admin:       owner,
		maintainers: map[string]struct{}{owner: {}},
		pushers:     map[string]struct{}{owner: {}},
	}
}

func (c *Controller) isAdmin(actor string) bool { return actor == c.admin }

func (c *Controller) isMaintainer(actor string) bool {
	_, ok := c.maintainers[actor]
	return ok
}

func (c *Controller) isPusher(actor string) bool {
	_, ok := c.pushers[actor]
	return ok
}

// RequirePusher succeeds iff actor holds Pusher, Maintainer, or Admin.
func (c *Controller) RequirePusher(actor string) error {
	if c.isPusher(actor) || c.isMaintainer(actor) || c.isAdmin(actor) {
		return nil
	}
	return ErrPermissionDenied
}

// RequireMaintainer succeeds iff actor holds Maintainer or Admin.
func (c *Controller) RequireMaintainer(actor string) error {
	if c.isMaintainer(actor) || c.isAdmin(actor) {
		return nil
	}
	return ErrPermissionDenied
}

// RequireAdmin succeeds iff actor is the owner.
func (c *Controller) RequireAdmin(actor string) error {
	if c.isAdmin(actor) {
		return nil
	}
	return ErrPermissionDenied
}

// AddPusher grants Pusher to grantee. Caller must hold Maintainer.
func (c *Controller) AddPusher(actor, grantee string) error {
	if err := c.RequireMaintainer(actor); err != nil {
		return err
	}
	c.pushers[grantee] = struct{}{}
	return nil
}

// RemovePusher revokes Pusher from grantee. Caller must hold Maintainer.
// Revoking does not touch grantee's other capabilities.
func (c *Controller) RemovePusher(actor, grantee string) error {
	if err := c.RequireMaintainer(actor); err != nil {
		return err
	}
	delete(c.pushers, grantee)
	return nil
}

// AddMaintainer grants Maintainer to grantee. Caller must hold Admin.
func (c *Controller) AddMaintainer(actor, grantee string) error {
	if err := c.RequireAdmin(actor); err != nil {
		return err
	}
	c.maintainers[grantee] = struct{}{}
	return nil
}
