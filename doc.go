/*
Package fireserver is a synchronous HTTP/1.1 server built around a
middleware pipeline and a last-registered-wins route table.

Every connection is served by one worker from a fixed pool. A request is
parsed, passed through the pre hooks of every middleware, dispatched to the
matching route, passed through the post hooks, written, and finally handed
to the end hooks. Panics in any hook or handler become a 500 response and
the server keeps running.

Features

  - Keep-alive and pipelined requests, Content-Length and chunked bodies
  - Routes with {name} parameters, * segments and ** or {*name} tails
  - Stateless and stateful handlers sharing one server-wide state value
  - Middleware with pre, post and end phases that may replace the request,
    replace the response or answer early
  - Stock middleware: rate limiting, request ids, access log, Date header,
    CORS, Prometheus metrics and static files
  - Server-sent event streams and a broadcast broker
  - koanf configuration with live log level reload

Quick Start

	package main

	import (
	    "context"

	    "github.com/searchktools/fire-server/core"
	    "github.com/searchktools/fire-server/core/http"
	)

	func main() {
	    server := core.New[struct{}]("localhost", 8080)

	    server.Route(http.GET, "/greet/{name}", func(req *http.Request) *http.Response {
	        name, _ := req.Param("name")
	        return http.NewResponse().Text("Hello, " + name)
	    })

	    server.ListenAndServe(context.Background())
	}

Modules

  - app: builds a server from configuration and handles shutdown
  - config: configuration loading, validation and file watching
  - logger: structured logging
  - core: Server, connection handling and the listener loop
  - core/http: requests, responses, the parser and the response writer
  - core/router: path patterns and the route table
  - core/middleware: the pipeline and the stock middleware
  - core/pools: worker and buffer pools
  - core/sse: server-sent events
  - core/static: static file serving
  - core/codec: JSON and protobuf bodies
*/
package fireserver
