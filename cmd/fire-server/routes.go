package main

import (
	"html"
	"strings"
	"sync/atomic"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/searchktools/fire-server/core"
	"github.com/searchktools/fire-server/core/codec"
	"github.com/searchktools/fire-server/core/http"
	"github.com/searchktools/fire-server/core/sse"
)

// State is shared by the stateful routes.
type State struct {
	hits atomic.Uint64
}

const formPage = `<form method="post">
  <label for="name">Name:</label>
  <input type="text" id="name" name="name"><br><br>
  <input type="submit" value="Submit">
</form>`

func registerRoutes(s *core.Server[*State], broker *sse.Broker) {
	s.SetState(&State{})

	s.Route(http.GET, "/", greetQuery)
	s.Route(http.GET, "/form", func(*http.Request) *http.Response {
		return http.NewResponse().Text(formPage).Content(http.ContentTypeHTML)
	})
	s.Route(http.POST, "/form", greetForm)
	s.Route(http.GET, "/greet/{name}", greetPath)
	s.StatefulRoute(http.GET, "/count", count)
	s.StatefulRoute(http.POST, "/count", setCount)
	s.Route(http.GET, "/events", broker.Handler())
	s.Route(http.POST, "/events", publish(broker))
}

func hello(name string) *http.Response {
	if name == "" {
		name = "Nobody"
	}
	return http.NewResponse().
		Text("<h1>Hello, " + html.EscapeString(name) + "!</h1>").
		Content(http.ContentTypeHTML)
}

func greetQuery(req *http.Request) *http.Response {
	return hello(req.Query.Value("name"))
}

func greetForm(req *http.Request) *http.Response {
	form, err := req.Form()
	if err != nil {
		return http.Textf(400, "Invalid form: %v", err)
	}
	return hello(form.Value("name"))
}

func greetPath(req *http.Request) *http.Response {
	name, _ := req.Param("name")
	return hello(name)
}

// count answers with the number of times it was called, as protobuf when
// the client accepts it and JSON otherwise.
func count(state *State, req *http.Request) *http.Response {
	n := state.hits.Add(1)
	if strings.Contains(req.Header("Accept"), codec.Protobuf.ContentType()) {
		return http.NewResponse().Encode(codec.Protobuf, wrapperspb.UInt64(n))
	}
	return http.NewResponse().Encode(codec.JSON, map[string]uint64{"count": n})
}

// setCount resets the counter from a JSON or protobuf body, chosen by
// Content-Type, and answers in the same encoding.
func setCount(state *State, req *http.Request) *http.Response {
	c, err := codec.ForContentType(req.Header("Content-Type"))
	if err != nil {
		return http.Textf(415, "Unsupported Content-Type %q", req.Header("Content-Type"))
	}

	var n uint64
	if c == codec.Protobuf {
		var v wrapperspb.UInt64Value
		if err := req.Decode(c, &v); err != nil {
			return http.Textf(400, "Invalid body: %v", err)
		}
		n = v.GetValue()
	} else {
		var v struct {
			Count uint64 `json:"count"`
		}
		if err := req.Decode(c, &v); err != nil {
			return http.Textf(400, "Invalid body: %v", err)
		}
		n = v.Count
	}
	state.hits.Store(n)

	if c == codec.Protobuf {
		return http.NewResponse().Encode(c, wrapperspb.UInt64(n))
	}
	return http.NewResponse().Encode(c, map[string]uint64{"count": n})
}

// publish sends the request body to every event stream subscriber. The
// event type comes from the "event" query parameter.
func publish(broker *sse.Broker) core.Handler {
	return func(req *http.Request) *http.Response {
		eventType := req.Query.Value("event")
		if eventType == "" {
			eventType = "message"
		}
		n := broker.Publish(sse.NewEvent(eventType).WithData(string(req.Body)))
		return http.Textf(202, "Delivered to %d clients", n)
	}
}
