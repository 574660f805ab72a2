// Package middleware provides HTTP authorization middleware for Ostiary.
package middleware

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xraph/forge"

	"github.com/ostiary/ostiary"
)

// Require enforces that the request's user holds at least one of the
// given permissions.
func Require(eng *ostiary.Engine, permissions ...string) forge.Middleware {
	return Authorize(eng, &ostiary.Requirement{
		Permissions: permissions,
		Mode:        ostiary.ModeAny,
	})
}

// RequireAny is an alias for Require.
func RequireAny(eng *ostiary.Engine, permissions ...string) forge.Middleware {
	return Require(eng, permissions...)
}

// RequireAll enforces that the request's user holds every one of the
// given permissions.
func RequireAll(eng *ostiary.Engine, permissions ...string) forge.Middleware {
	return Authorize(eng, &ostiary.Requirement{
		Permissions: permissions,
		Mode:        ostiary.ModeAll,
	})
}

// RequireResource enforces a resource-scoped check: the user needs
// "{resourceType}.{action}", or its ".own" variant when the route
// parameter named by ownerParam matches their own ID.
func RequireResource(eng *ostiary.Engine, resourceType, action, ownerParam string) forge.Middleware {
	return Authorize(eng, &ostiary.Requirement{
		Resource: &ostiary.ResourceRequirement{
			Type:       resourceType,
			Action:     action,
			OwnerParam: ownerParam,
		},
	})
}

// Authorize enforces an arbitrary declared requirement. Denials are
// answered directly: 401 when no identity is present, 403 otherwise.
// Infrastructure faults (store outage, malformed declaration) are not
// denials: they are returned to the host so its error handler answers
// with a server error and the outage stays visible in the logs.
func Authorize(eng *ostiary.Engine, req *ostiary.Requirement) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			o := classify(eng.Authorize(requestContext(ctx), resolveOwner(ctx, req)))
			switch {
			case o.err != nil:
				return o.err
			case o.pass:
				return next(ctx)
			default:
				return deny(ctx, o)
			}
		}
	}
}

// outcome is how the middleware answers a guard result: pass the request
// through, write a deny response, or fail with an error for the host.
type outcome struct {
	pass    bool
	status  int
	code    string
	message string
	missing []string
	err     error
}

func classify(dec *ostiary.Decision, err error) outcome {
	if err != nil {
		return outcome{err: fmt.Errorf("ostiary middleware: %w", err)}
	}
	if dec.Allowed {
		return outcome{pass: true}
	}
	if dec.Status == ostiary.StatusUnauthenticated {
		return outcome{status: 401, code: "unauthenticated", message: "authentication required"}
	}
	return outcome{status: 403, code: "forbidden", message: "access denied", missing: dec.Missing}
}

// requestContext attaches the Forge-authenticated user, if any, as the
// engine identity.
func requestContext(ctx forge.Context) context.Context {
	reqCtx := ctx.Context()
	if userID := forge.UserIDFromContext(reqCtx); userID != "" {
		return ostiary.WithIdentity(reqCtx, userID)
	}
	return reqCtx
}

// resolveOwner fills a resource requirement's OwnerID from the declared
// route parameter. The original requirement is never mutated.
func resolveOwner(ctx forge.Context, req *ostiary.Requirement) *ostiary.Requirement {
	if req == nil || req.Resource == nil || req.Resource.OwnerParam == "" {
		return req
	}
	r := *req.Resource
	r.OwnerID = ctx.Param(r.OwnerParam)
	cp := *req
	cp.Resource = &r
	return &cp
}

type denyBody struct {
	Code    string   `json:"code"`
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

func deny(ctx forge.Context, o outcome) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(o.status)
	return json.NewEncoder(ctx.Response()).Encode(denyBody{
		Code:    o.code,
		Error:   o.message,
		Missing: o.missing,
	})
}
