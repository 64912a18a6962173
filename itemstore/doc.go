/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package itemstore provides a synchronous in-memory registry of locally known item metadata.
//
// Items are stored by their identifier, a later write for the same identifier replaces the earlier one,
// and nothing is ever deleted. Looking up an unknown identifier is not an error.
package itemstore
