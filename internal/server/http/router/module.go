package router

import "go.uber.org/fx"

// Module registers HTTP router construction for fx runtime. The engine
// serves the REST API, the live socket and the scrape endpoint.
var Module = fx.Provide(Setup)
