package config

import "github.com/google/wire"

// ProviderSet provides the loaded configuration to the wire graph.
var ProviderSet = wire.NewSet(Load)
