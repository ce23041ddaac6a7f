// Package tatami is a typed web framework for Go. Handlers are plain
// functions with typed request and response structs, and the framework
// derives parameter binding, validation, dependency injection, and
// OpenAPI specs from those types.
//
// The core handler signature removes http.ResponseWriter and *http.Request:
//
//	type Handler[Req, Resp any] func(ctx context.Context, req *Req) (*Resp, error)
//
// Endpoints are declared on routers with package-level generic functions:
//
//	posts := tatami.NewRouter("/post")
//	tatami.Get(posts, "/{post_id}", getPost)
//	tatami.Get(posts, "", listPosts) // served at exactly /post
//
//	app := tatami.New(tatami.WithTitle("Blog"), tatami.WithVersion("1.0.0"))
//	app.Include(posts)
//
// Request struct fields are classified as path, query, header, body, or
// injected parameters. Explicit tags force a classification; untagged
// fields are inferred from the path template:
//
//	type GetPostReq struct {
//	    PostID       string       `path:"post_id"`
//	    ShowComments bool         `query:"show_comments"`
//	    UserAgent    string       `header:""` // bound from User-Agent
//	    Posts        *PostService `inject:""`
//	}
//
// Dependencies are registered on a router's Registry with a scope:
//
//	tatami.Provide(app.Registry(), newPostService) // singleton
//	tatami.Provide(app.Registry(), newAuditTrail, tatami.InScope(tatami.ScopeRequest))
//
// Validation failures are collected across all parameters and reported
// as a single RFC 9457 problem details response with status 422.
//
// The OpenAPI spec is generated from the same classification the
// dispatcher uses:
//
//	app.ServeSpec("/openapi.json")
//	app.ServeDocs("/docs")
package tatami
