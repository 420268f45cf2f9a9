// Package data embeds the default intent and resource corpora shipped with Lantern.
//
// Deployments can point at their own files instead; see LANTERN_INTENTS_FILE
// and LANTERN_RESOURCES_FILE.
package data

import _ "embed"

// Intents is the default intent corpus ({"intents": [{tag, patterns, responses}]}).
//
//go:embed intents.json
var Intents []byte

// Resources is the default support resource catalog ({"resources": [...]}).
//
//go:embed resources.json
var Resources []byte
