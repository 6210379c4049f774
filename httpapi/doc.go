// Package httpapi exposes the catalog over REST with echo.
//
// The caller is identified by the X-Celsus-User header, which a trusted gateway sets after
// authenticating the request. Every route is scoped to that owner.
package httpapi
