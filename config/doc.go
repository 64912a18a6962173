/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package config provides loading of configuration parameters from files (YAML, JSON), readers and environment variables.
// Configuration objects implement the Config interface and receive their values through a DataProvider,
// so every package of the library (log, fetchcache) can describe its own keys, defaults and validation.
package config
