package main

import (
	"encoding/json"
	"net/http"

	"github.com/modkit/modkit/pkg/types"
)

// builtinModules returns the modules this binary ships with. A host
// application embedding the engine replaces this list with its own
// descriptors; the demo modules give `modkit serve` something to
// install out of the box.
func builtinModules() []*types.ModuleDescriptor {
	return []*types.ModuleDescriptor{
		productModule(),
		greeterModule(),
	}
}

func productModule() *types.ModuleDescriptor {
	products := []map[string]any{
		{"id": 1, "name": "Widget", "price": 9.99},
		{"id": 2, "name": "Gadget", "price": 24.50},
		{"id": 3, "name": "Doohickey", "price": 3.25},
	}

	return &types.ModuleDescriptor{
		ID:          "product",
		Name:        "Product Catalog",
		Description: "Demo product listing endpoints",
		Version:     "1.0.0",
		Routes: []types.Route{
			{Pattern: "GET /{$}", Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeDemoJSON(w, map[string]any{"module": "product", "endpoints": []string{"/list"}})
			})},
			{Pattern: "GET /list", Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeDemoJSON(w, map[string]any{"products": products})
			})},
		},
	}
}

func greeterModule() *types.ModuleDescriptor {
	return &types.ModuleDescriptor{
		ID:          "greeter",
		Name:        "Greeter",
		Description: "Demo greeting endpoint",
		Version:     "1.0.0",
		Routes: []types.Route{
			{Pattern: "GET /{$}", Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				name := r.URL.Query().Get("name")
				if name == "" {
					name = "world"
				}
				writeDemoJSON(w, map[string]string{"greeting": "hello, " + name})
			})},
		},
	}
}

func writeDemoJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
