package site

import (
	"strings"
)

// Route is one named page of the site. Path segments starting with ':' are parameters.
type Route struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Route names.
const (
	RouteHome         = "Home"
	RoutePortfolio    = "Portfolio"
	RouteClients      = "Clients"
	RouteAbout        = "About"
	RouteProducts     = "Products"
	RouteTechnologies = "Technologies"
	RouteCareers      = "Careers"
	RouteService      = "Service"
)

var routes = []Route{
	{Name: RouteHome, Path: "/"},
	{Name: RoutePortfolio, Path: "/portfolio"},
	{Name: RouteClients, Path: "/clients"},
	{Name: RouteAbout, Path: "/about"},
	{Name: RouteProducts, Path: "/products"},
	{Name: RouteTechnologies, Path: "/technologies"},
	{Name: RouteCareers, Path: "/careers"},
	{Name: RouteService, Path: "/services/:id"},
}

// Routes returns a copy of the route table.
func Routes() []Route {
	out := make([]Route, len(routes))
	copy(out, routes)
	return out
}

// Match is a resolved route plus its path parameters.
type Match struct {
	Route  Route
	Params map[string]string
}

// Resolve matches a request path against the route table. A trailing slash is
// ignored. Parameters must be non-empty single segments.
func Resolve(path string) (Match, bool) {
	segs := splitPath(path)
	for _, route := range routes {
		params, ok := matchSegments(splitPath(route.Path), segs)
		if ok {
			return Match{Route: route, Params: params}, true
		}
	}
	return Match{}, false
}

// RouteByName looks up a route by its name.
func RouteByName(name string) (Route, bool) {
	for _, route := range routes {
		if route.Name == name {
			return route, true
		}
	}
	return Route{}, false
}

// Build fills a route's parameters in order. It returns "/" for unknown names.
func Build(name string, params ...string) string {
	route, ok := RouteByName(name)
	if !ok {
		return "/"
	}
	segs := splitPath(route.Path)
	next := 0
	for i, seg := range segs {
		if strings.HasPrefix(seg, ":") && next < len(params) {
			segs[i] = params[next]
			next++
		}
	}
	return "/" + strings.Join(segs, "/")
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func matchSegments(pattern, segs []string) (map[string]string, bool) {
	if len(pattern) != len(segs) {
		return nil, false
	}
	var params map[string]string
	for i, p := range pattern {
		if strings.HasPrefix(p, ":") {
			if segs[i] == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[p[1:]] = segs[i]
			continue
		}
		if p != segs[i] {
			return nil, false
		}
	}
	return params, true
}

// NavItem is one entry of the header navigation. Anchors point into the home page.
type NavItem struct {
	Label   string
	Href    string
	IsRoute bool
}

var navItems = []NavItem{
	{Label: "Services", Href: "/#services"},
	{Label: "Products", Href: "/products", IsRoute: true},
	{Label: "Technologies", Href: "/technologies", IsRoute: true},
	{Label: "Portfolio", Href: "/portfolio", IsRoute: true},
	{Label: "Clients", Href: "/clients", IsRoute: true},
	{Label: "About", Href: "/about", IsRoute: true},
	{Label: "Contact", Href: "/#contact"},
	{Label: "Careers", Href: "/careers", IsRoute: true},
}

// Nav returns the header navigation.
func Nav() []NavItem {
	out := make([]NavItem, len(navItems))
	copy(out, navItems)
	return out
}
