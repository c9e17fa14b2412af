// Package confloader loads layered configuration with koanf.
//
// Sources, lowest priority first:
//
//  1. Defaults passed through LoadMap
//  2. A YAML configuration file
//  3. Environment variables (DXSHELL_SECTION_KEY)
//
// Watcher pairs with Loader to re-read the file when it changes on disk.
package confloader
