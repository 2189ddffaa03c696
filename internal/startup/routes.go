package startup

import (
	"sort"
	"strings"

	"video-captioner/internal/logging"

	"github.com/gorilla/mux"
)

// RouteInfo describes one registered handler.
type RouteInfo struct {
	Methods []string
	Path    string
	Name    string
}

// GetRoutes lists the router's handler routes in registration order.
// Subrouter prefixes, which carry no handler of their own, are omitted.
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		if route.GetHandler() == nil {
			return nil
		}
		path, err := route.GetPathTemplate()
		if err != nil {
			return err
		}
		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"ANY"}
		}
		routes = append(routes, RouteInfo{Methods: methods, Path: path, Name: route.GetName()})
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs the route table at debug level and the access log
// settings at info level.
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	section("HTTP SERVER SETUP")

	if logging.IsDebugEnabled() {
		logRouteTable(router)
	}

	logging.Info("  Access log (W3C) enabled")
	logging.Info("    Static files:  %s", onOff(logStaticFiles, "LOG_STATIC_FILES"))
	logging.Info("    Health checks: %s", onOff(logHealthChecks, "LOG_HEALTH_CHECKS"))
}

func logRouteTable(router *mux.Router) {
	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}

	byGroup := make(map[string][]RouteInfo)
	var groups []string
	for _, route := range routes {
		g := getRouteGroup(route.Path)
		if _, seen := byGroup[g]; !seen {
			groups = append(groups, g)
		}
		byGroup[g] = append(byGroup[g], route)
	}
	sort.Strings(groups)

	logging.Debug("  Registered routes (%d):", len(routes))
	for _, g := range groups {
		label := g
		if label == "" {
			label = "root"
		}
		logging.Debug("  [%s]", label)
		for _, route := range byGroup[g] {
			logging.Debug("    %-11s %s", strings.Join(route.Methods, ","), route.Path)
		}
	}
}

func onOff(enabled bool, key string) string {
	if enabled {
		return "ON"
	}
	return "OFF (set " + key + "=true to enable)"
}

// getRouteGroup returns the first path segment, or api/<segment> for API routes.
func getRouteGroup(path string) string {
	first, rest, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if first == "api" && rest != "" {
		sub, _, _ := strings.Cut(rest, "/")
		return "api/" + sub
	}
	return first
}
