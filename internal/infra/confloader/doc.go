// Package confloader loads layered configuration with koanf.
//
// Sources, lowest to highest priority:
//
//  1. Defaults already present in the target struct
//  2. YAML configuration file
//  3. Environment variables (MAGMA_ prefix)
//  4. Explicit overrides from LoadMap, typically CLI flags
//
// Environment keys nest on a double underscore so that single
// underscores stay inside key names:
//
//	MAGMA_CACHE__MAX_ENTRIES=5000  ->  cache.max_entries
//
// Watcher reports changes to the configuration file.
package confloader
