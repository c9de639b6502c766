// Package internal contains the core implementation packages for blockwright.
//
// # Package Organization
//
//   - registry: component definitions decoded from the payload document
//   - tree: arena tree of component instances with slot and property edits
//   - validation: duplicate exposed prop name detection and list scopes
//   - session: builder session tying a tree to a registry with events
//   - export: Astro template and CloudCannon YAML generation plus bundling
//   - server: HTTP API, WebSocket event streaming and HTML outline pages
//   - watcher: payload file monitoring with debounced registry reloads
//   - config, logging, errors, version: ambient support packages
//
// # Data Flow
//
// The CLI loads configuration, builds a registry from the payload and opens
// a session. Edits flow through the session, which revalidates the tree and
// notifies observers. Export turns a valid tree into a bundle of generated
// files.
package internal
